package testsupport

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"techxfer/internal/remote"
	"techxfer/internal/session"
)

// ErrNotFound is returned by FakeStore for unknown ids.
var ErrNotFound = errors.New("not found")

// StatusStep is one scripted GetSession response.
type StatusStep struct {
	Status  session.Status
	Pending int
	Err     error
}

// FakeStore is an in-memory session.Store with scriptable failures.
type FakeStore struct {
	mu       sync.Mutex
	sessions map[string]session.Session
	blobs    []session.Blob
	data     map[string][]byte
	nextID   int
	clock    time.Time
	scripts  map[string][]StatusStep
	calls    []string

	Queued        [][]string
	ContentWrites []string
	Messages      map[string][]remote.Message

	// Failure injection. Nil funcs never fail.
	QueueErr    error
	UpdateErr   error
	ChatErr     error
	ChatReply   string
	UploadErr   func(name string) error
	DeleteErr   func(blobID string) error
	DownloadErr func(blobID string) error
	ListErr     func(sessionID string) error

	// Hooks run outside the lock before the call is served.
	BeforeGetSession func(id string)
	BeforeListBlobs  func(sessionID string)
}

// NewFakeStore returns an empty store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		sessions: make(map[string]session.Session),
		data:     make(map[string][]byte),
		scripts:  make(map[string][]StatusStep),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddSession stores s.
func (f *FakeStore) AddSession(s session.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.Status == "" {
		s.Status = session.StatusPending
	}
	f.sessions[s.ID] = s
}

// Session returns the stored record.
func (f *FakeStore) Session(id string) session.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id]
}

// Script queues GetSession responses for id. The last step repeats forever.
func (f *FakeStore) Script(id string, steps ...StatusStep) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[id] = append(f.scripts[id], steps...)
}

// AddBlob stores a blob with a fresh id and a strictly increasing CreatedAt.
func (f *FakeStore) AddBlob(sessionID, name, contentType string, data []byte) session.Blob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addBlobLocked(sessionID, name, contentType, data)
}

func (f *FakeStore) addBlobLocked(sessionID, name, contentType string, data []byte) session.Blob {
	f.nextID++
	f.clock = f.clock.Add(time.Second)
	blob := session.Blob{
		ID:          fmt.Sprintf("blob-%d", f.nextID),
		SessionID:   sessionID,
		FileName:    name,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   f.clock,
	}
	f.blobs = append(f.blobs, blob)
	f.data[blob.ID] = append([]byte(nil), data...)
	return blob
}

// BlobsNamed returns the stored blobs of sessionID called name.
func (f *FakeStore) BlobsNamed(sessionID, name string) []session.Blob {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []session.Blob
	for _, b := range f.blobs {
		if b.SessionID == sessionID && b.FileName == name {
			out = append(out, b)
		}
	}
	return out
}

// Data returns the stored bytes of blobID.
func (f *FakeStore) Data(blobID string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.data[blobID]...)
}

// Calls returns the recorded method names in order.
func (f *FakeStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount counts recorded calls of method.
func (f *FakeStore) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *FakeStore) record(method string) {
	f.calls = append(f.calls, method)
}

func (f *FakeStore) GetSession(_ context.Context, id string) (session.Session, error) {
	if f.BeforeGetSession != nil {
		f.BeforeGetSession(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetSession")
	s, ok := f.sessions[id]
	if !ok {
		return session.Session{}, ErrNotFound
	}
	if steps := f.scripts[id]; len(steps) > 0 {
		step := steps[0]
		if len(steps) > 1 {
			f.scripts[id] = steps[1:]
		}
		if step.Err != nil {
			return session.Session{}, step.Err
		}
		s.Status = step.Status
		s.PendingTasks = step.Pending
		f.sessions[id] = s
	}
	return s, nil
}

func (f *FakeStore) UpdateContent(_ context.Context, id, content string) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateContent")
	if f.UpdateErr != nil {
		return session.Session{}, f.UpdateErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return session.Session{}, ErrNotFound
	}
	s.Content = content
	f.sessions[id] = s
	f.ContentWrites = append(f.ContentWrites, content)
	return s, nil
}

func (f *FakeStore) CancelSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CancelSession")
	if _, ok := f.sessions[id]; !ok {
		return ErrNotFound
	}
	return nil
}

func (f *FakeStore) RetrySession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RetrySession")
	s, ok := f.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = session.StatusProcessing
	f.sessions[id] = s
	return nil
}

func (f *FakeStore) ListBlobs(_ context.Context, sessionID string) ([]session.Blob, error) {
	if f.BeforeListBlobs != nil {
		f.BeforeListBlobs(sessionID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListBlobs")
	if f.ListErr != nil {
		if err := f.ListErr(sessionID); err != nil {
			return nil, err
		}
	}
	var out []session.Blob
	for _, b := range f.blobs {
		if b.SessionID == sessionID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *FakeStore) UploadBlob(_ context.Context, sessionID string, file session.Upload) (session.Blob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UploadBlob")
	if f.UploadErr != nil {
		if err := f.UploadErr(file.FileName); err != nil {
			return session.Blob{}, err
		}
	}
	return f.addBlobLocked(sessionID, file.FileName, file.ContentType, file.Data), nil
}

func (f *FakeStore) DeleteBlob(_ context.Context, blobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteBlob")
	if f.DeleteErr != nil {
		if err := f.DeleteErr(blobID); err != nil {
			return err
		}
	}
	idx := slices.IndexFunc(f.blobs, func(b session.Blob) bool { return b.ID == blobID })
	if idx < 0 {
		return ErrNotFound
	}
	f.blobs = slices.Delete(f.blobs, idx, idx+1)
	delete(f.data, blobID)
	return nil
}

func (f *FakeStore) DownloadBlob(_ context.Context, blobID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DownloadBlob")
	if f.DownloadErr != nil {
		if err := f.DownloadErr(blobID); err != nil {
			return nil, err
		}
	}
	data, ok := f.data[blobID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (f *FakeStore) QueueTasks(_ context.Context, sessionID string, tasks []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("QueueTasks")
	if f.QueueErr != nil {
		return f.QueueErr
	}
	s, ok := f.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.Status = session.StatusProcessing
	s.PendingTasks = len(tasks)
	f.sessions[sessionID] = s
	f.Queued = append(f.Queued, append([]string(nil), tasks...))
	return nil
}

func (f *FakeStore) Chat(_ context.Context, sessionID, message string) (session.ChatReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Chat")
	if f.ChatErr != nil {
		return session.ChatReply{}, f.ChatErr
	}
	if _, ok := f.sessions[sessionID]; !ok {
		return session.ChatReply{}, ErrNotFound
	}
	return session.ChatReply{Role: "assistant", Content: f.ChatReply}, nil
}

func (f *FakeStore) ListSessions(_ context.Context, projectID string) ([]session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListSessions")
	var out []session.Session
	for _, s := range f.sessions {
		if projectID == "" || s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b session.Session) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (f *FakeStore) CreateSession(_ context.Context, projectID, title string) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateSession")
	f.nextID++
	f.clock = f.clock.Add(time.Second)
	s := session.Session{
		ID:        fmt.Sprintf("session-%d", f.nextID),
		Title:     title,
		ProjectID: projectID,
		Status:    session.StatusPending,
		CreatedAt: f.clock,
		UpdatedAt: f.clock,
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *FakeStore) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteSession")
	if _, ok := f.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(f.sessions, id)
	f.blobs = slices.DeleteFunc(f.blobs, func(b session.Blob) bool { return b.SessionID == id })
	return nil
}

func (f *FakeStore) ListMessages(_ context.Context, sessionID string) ([]remote.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListMessages")
	return slices.Clone(f.Messages[sessionID]), nil
}

var _ session.Store = (*FakeStore)(nil)
