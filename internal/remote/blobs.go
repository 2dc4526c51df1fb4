package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"techxfer/internal/session"
)

func (c *Client) ListBlobs(ctx context.Context, sessionID string) ([]session.Blob, error) {
	var dtos []blobDTO
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/api/sessions/" + escape(sessionID) + "/blobs"}, &dtos); err != nil {
		return nil, err
	}
	out := make([]session.Blob, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toBlob())
	}
	return out, nil
}

// UploadBlob posts file as multipart field "file". A missing content type is
// sniffed from the data.
func (c *Client) UploadBlob(ctx context.Context, sessionID string, file session.Upload) (session.Blob, error) {
	name := strings.TrimSpace(file.FileName)
	if name == "" {
		return session.Blob{}, fmt.Errorf("upload blob: file name required")
	}
	contentType := strings.TrimSpace(file.ContentType)
	if contentType == "" {
		contentType = DetectContentType(name, file.Data)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return session.Blob{}, fmt.Errorf("upload blob: create part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return session.Blob{}, fmt.Errorf("upload blob: write part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return session.Blob{}, fmt.Errorf("upload blob: close multipart: %w", err)
	}

	payload := buf.Bytes()
	req := request{
		method:      http.MethodPost,
		path:        "/api/sessions/" + escape(sessionID) + "/blobs",
		body:        bytes.NewReader(payload),
		contentType: writer.FormDataContentType(),
		rewind:      func() io.Reader { return bytes.NewReader(payload) },
	}
	var dto blobDTO
	if err := c.doJSON(ctx, req, &dto); err != nil {
		return session.Blob{}, err
	}
	blob := dto.toBlob()
	if blob.SessionID == "" {
		blob.SessionID = sessionID
	}
	if blob.FileName == "" {
		blob.FileName = name
	}
	return blob, nil
}

func (c *Client) DeleteBlob(ctx context.Context, blobID string) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: "/api/blobs/" + escape(blobID)})
	return err
}

func (c *Client) DownloadBlob(ctx context.Context, blobID string) ([]byte, error) {
	return c.do(ctx, request{method: http.MethodGet, path: "/api/blobs/" + escape(blobID) + "/download"})
}

// DetectContentType picks a MIME type for an upload. Extensions the agent
// keys on win over sniffing, since CSV and JSON sniff as plain text.
func DetectContentType(name string, data []byte) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return "text/csv"
	case strings.HasSuffix(lower, ".json"):
		return "application/json"
	case strings.HasSuffix(lower, ".md"):
		return "text/markdown"
	}
	return mimetype.Detect(data).String()
}
