package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"techxfer/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the local batch journal",
	}
	cmd.AddCommand(newHistoryListCommand(ctx))
	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	cmd.AddCommand(newHistoryRepairCommand(ctx))
	return cmd
}

func requireJournal(ctx *commandContext) (*journal.Store, error) {
	store, err := ctx.openJournal()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("batch journal is disabled (journal.enabled = false)")
	}
	return store, nil
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var (
		sessionID string
		limit     int
		jsonOut   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent batches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := requireJournal(ctx)
			if err != nil {
				return err
			}
			batches, err := store.List(cmd.Context(), sessionID, limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, batches)
			}
			if len(batches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No batches recorded")
				return nil
			}
			now := time.Now()
			rows := make([][]string, 0, len(batches))
			for _, b := range batches {
				rows = append(rows, []string{
					b.ID,
					b.SessionID,
					b.Kind,
					titleLabel(string(b.Outcome)),
					strconv.Itoa(b.TotalTasks),
					strconv.Itoa(b.Attempts),
					formatTime(b.StartedAt),
					b.Duration(now).Round(time.Second).String(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Batch", "Session", "Kind", "Outcome", "Tasks", "Polls", "Started", "Duration"},
				rows, 4, 5, 7,
			))
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Only batches of this session")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of batches")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show one batch with its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := requireJournal(ctx)
			if err != nil {
				return err
			}
			b, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Batch:    %s\n", b.ID)
			fmt.Fprintf(out, "Session:  %s\n", b.SessionID)
			fmt.Fprintf(out, "Kind:     %s\n", b.Kind)
			fmt.Fprintf(out, "Outcome:  %s\n", titleLabel(string(b.Outcome)))
			if b.FinalStatus != "" {
				fmt.Fprintf(out, "Status:   %s\n", titleLabel(b.FinalStatus))
			}
			fmt.Fprintf(out, "Polls:    %d\n", b.Attempts)
			fmt.Fprintf(out, "Started:  %s\n", formatTime(b.StartedAt))
			fmt.Fprintf(out, "Duration: %s\n", b.Duration(time.Now()).Round(time.Second))
			if b.ProgressText != "" {
				fmt.Fprintf(out, "Last:     %s\n", b.ProgressText)
			}
			if b.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:    %s\n", b.ErrorMessage)
			}
			for i, task := range b.Tasks {
				fmt.Fprintf(out, "\nTask %d:\n%s\n", i+1, strings.TrimRight(task, "\n"))
			}
			return nil
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished batches older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			store, err := requireJournal(ctx)
			if err != nil {
				return err
			}
			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d batches\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age of batches to remove")
	return cmd
}

func newHistoryRepairCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Close batches left running by a client that exited",
		Long: `Close batches left running by a client that exited.

Only run this when no other techxfer process is following a batch; their
running entries would be closed too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := requireJournal(ctx)
			if err != nil {
				return err
			}
			closed, err := store.MarkInterrupted(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d batches interrupted\n", closed)
			return nil
		},
	}
}
