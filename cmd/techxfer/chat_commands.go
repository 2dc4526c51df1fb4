package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCritiqueCommand(ctx *commandContext) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "critique <session-id>",
		Short: "Ask the agent to review the generated assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, _, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			reply, err := wb.Critique(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
			if !save {
				return nil
			}
			blob, err := wb.AddNote(cmd.Context(), "critique", reply.Content)
			if err != nil {
				return fmt.Errorf("save critique: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved critique as %s (%s)\n", blob.FileName, blob.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Save the reply as a note")
	return cmd
}

func newMessagesCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "messages <session-id>",
		Short: "Show the agent conversation of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			messages, err := store.ListMessages(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("list messages: %w", err)
			}
			if jsonOut {
				return writeJSON(cmd, messages)
			}
			out := cmd.OutOrStdout()
			if len(messages) == 0 {
				fmt.Fprintln(out, "No messages")
				return nil
			}
			for i, m := range messages {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "[%s] %s\n", formatTime(m.CreatedAt), titleLabel(m.Role))
				fmt.Fprintln(out, strings.TrimRight(m.Content, "\n"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
