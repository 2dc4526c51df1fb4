package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"techxfer/internal/content"
	"techxfer/internal/session"
	"techxfer/internal/stage"
	"techxfer/internal/workbench"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "List, create, inspect and delete sessions",
	}
	cmd.AddCommand(newSessionListCommand(ctx))
	cmd.AddCommand(newSessionCreateCommand(ctx))
	cmd.AddCommand(newSessionShowCommand(ctx))
	cmd.AddCommand(newSessionDeleteCommand(ctx))
	return cmd
}

func newSessionListCommand(ctx *commandContext) *cobra.Command {
	var project string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions of a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			if project == "" {
				project = ctx.config.API.ProjectID
			}
			sessions, err := store.ListSessions(cmd.Context(), project)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			if jsonOut {
				return writeJSON(cmd, sessionSummaries(sessions))
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions")
				return nil
			}
			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				rows = append(rows, []string{
					s.ID,
					s.Title,
					titleLabel(string(s.Status)),
					titleLabel(string(stage.Persisted(s.Content))),
					formatTime(s.UpdatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Status", "Stage", "Updated"},
				rows,
			))
			return nil
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "Project id (defaults to api.project_id)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newSessionCreateCommand(ctx *commandContext) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			if project == "" {
				project = ctx.config.API.ProjectID
			}
			s, err := store.CreateSession(cmd.Context(), project, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created session %s (%s)\n", s.ID, s.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "Project id (defaults to api.project_id)")
	return cmd
}

func newSessionDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			if err := store.DeleteSession(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	}
}

type sessionView struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	ProjectID    string     `json:"project_id,omitempty"`
	Status       string     `json:"status"`
	Stage        string     `json:"stage"`
	Wizard       string     `json:"wizard,omitempty"`
	PendingTasks int        `json:"pending_tasks"`
	Digest       string     `json:"content_digest,omitempty"`
	Lifecycle    *lifecycle `json:"lifecycle,omitempty"`
	Blobs        []blobView `json:"blobs,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

type lifecycle struct {
	Steps   []string `json:"steps"`
	Current int      `json:"current_step"`
}

type blobView struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Comments    []string  `json:"comments,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session with its stage, lifecycle and files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, sel, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			view := buildSessionView(wb, sel)
			if jsonOut {
				return writeJSON(cmd, view)
			}
			printSessionView(cmd, view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func buildSessionView(wb *workbench.Workbench, sel workbench.Selection) sessionView {
	s := sel.Session
	view := sessionView{
		ID:           s.ID,
		Title:        s.Title,
		ProjectID:    s.ProjectID,
		Status:       string(s.Status),
		Stage:        string(sel.Stage),
		PendingTasks: s.PendingTasks,
	}
	if sel.Stage == stage.Ingestion {
		view.Wizard = sel.Wizard.String()
	}
	if digest, err := content.Digest(s.Content); err == nil {
		view.Digest = digest
	}
	if !s.UpdatedAt.IsZero() {
		updated := s.UpdatedAt
		view.UpdatedAt = &updated
	}
	if lc, err := wb.Lifecycle(); err == nil && !lc.Empty() {
		view.Lifecycle = &lifecycle{Steps: lc.Steps, Current: lc.CurrentStep}
	}
	comments, _ := wb.Comments()
	for _, b := range sel.Blobs {
		view.Blobs = append(view.Blobs, blobView{
			ID:          b.ID,
			FileName:    b.FileName,
			ContentType: b.ContentType,
			Size:        b.Size,
			Comments:    comments.For(b.ID),
			CreatedAt:   b.CreatedAt,
		})
	}
	return view
}

func printSessionView(cmd *cobra.Command, view sessionView) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader(view.Title, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "ID:       %s\n", view.ID)
	if view.ProjectID != "" {
		fmt.Fprintf(out, "Project:  %s\n", view.ProjectID)
	}
	fmt.Fprintf(out, "Status:   %s\n", titleLabel(view.Status))
	if view.Status == string(session.StatusProcessing) {
		fmt.Fprintf(out, "Pending:  %d tasks\n", view.PendingTasks)
	}
	fmt.Fprintf(out, "Stage:    %s\n", titleLabel(view.Stage))
	if view.Wizard != "" {
		fmt.Fprintf(out, "Step:     %s\n", titleLabel(view.Wizard))
	}
	if view.Digest != "" {
		fmt.Fprintf(out, "Content:  %s\n", view.Digest[:min(12, len(view.Digest))])
	}
	if view.Lifecycle != nil {
		fmt.Fprintln(out)
		printLifecycle(out, view.Lifecycle.Steps, view.Lifecycle.Current)
	}
	if len(view.Blobs) == 0 {
		fmt.Fprintln(out, "\nNo files")
		return
	}
	rows := make([][]string, 0, len(view.Blobs))
	for _, b := range view.Blobs {
		rows = append(rows, []string{
			b.ID,
			b.FileName,
			b.ContentType,
			strconv.FormatInt(b.Size, 10),
			strconv.Itoa(len(b.Comments)),
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"Blob", "File", "Type", "Bytes", "Notes"},
		rows, 3, 4,
	))
}

type sessionSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Stage     string    `json:"stage"`
	UpdatedAt time.Time `json:"updated_at"`
}

func sessionSummaries(sessions []session.Session) []sessionSummary {
	out := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionSummary{
			ID:        s.ID,
			Title:     s.Title,
			Status:    string(s.Status),
			Stage:     string(stage.Persisted(s.Content)),
			UpdatedAt: s.UpdatedAt,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
