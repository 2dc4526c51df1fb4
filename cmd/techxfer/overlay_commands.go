package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"techxfer/internal/content"
	"techxfer/internal/session"
)

func newCommentCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Attach notes to session files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <session-id> <blob-id|file-name> <text>...",
		Short: "Append a note to a file",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, sel, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			blob, ok := resolveBlob(sel.Blobs, args[1])
			if !ok {
				return fmt.Errorf("no file %q in this session", args[1])
			}
			if err := wb.AddComment(cmd.Context(), blob.ID, strings.Join(args[2:], " ")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Noted %s\n", blob.FileName)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list <session-id> [blob-id|file-name]",
		Short: "List notes, for one file or all of them",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, sel, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			comments, err := wb.Comments()
			if err != nil {
				return err
			}
			blobs := sel.Blobs
			if len(args) == 2 {
				blob, ok := resolveBlob(sel.Blobs, args[1])
				if !ok {
					return fmt.Errorf("no file %q in this session", args[1])
				}
				blobs = []session.Blob{blob}
			}
			rows := [][]string{}
			for _, b := range blobs {
				for _, text := range comments.For(b.ID) {
					rows = append(rows, []string{b.FileName, text})
				}
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notes")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"File", "Note"}, rows))
			return nil
		},
	})
	return cmd
}

func newLifecycleCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lifecycle",
		Short: "Show and move the product lifecycle of a session",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the lifecycle steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, _, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			lc, err := wb.Lifecycle()
			if err != nil {
				return err
			}
			printLifecycle(cmd.OutOrStdout(), lc.Steps, lc.CurrentStep)
			return nil
		},
	})

	var current int
	set := &cobra.Command{
		Use:   "set <session-id> <step>...",
		Short: "Replace the lifecycle steps",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, _, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			lc, err := wb.SetLifecycle(cmd.Context(), args[1:], current-1)
			if err != nil {
				return err
			}
			printLifecycle(cmd.OutOrStdout(), lc.Steps, lc.CurrentStep)
			return nil
		},
	}
	set.Flags().IntVar(&current, "current", 1, "1-based current step")
	cmd.AddCommand(set)

	cmd.AddCommand(lifecycleStepCommand(ctx, "next", "Advance to the next step", true))
	cmd.AddCommand(lifecycleStepCommand(ctx, "prev", "Go back one step", false))

	cmd.AddCommand(&cobra.Command{
		Use:   "generate <session-id>",
		Short: "Ask the agent to propose lifecycle steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, _, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			lc, usedDefault, err := wb.GenerateLifecycle(cmd.Context())
			if err != nil {
				return err
			}
			if usedDefault {
				fmt.Fprintln(cmd.ErrOrStderr(), "The agent reply had no usable steps; saved the default lifecycle")
			}
			printLifecycle(cmd.OutOrStdout(), lc.Steps, lc.CurrentStep)
			return nil
		},
	})
	return cmd
}

func lifecycleStepCommand(ctx *commandContext, use, short string, forward bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, _, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			lc, err := wb.StepLifecycle(cmd.Context(), forward)
			if err != nil {
				return err
			}
			printLifecycle(cmd.OutOrStdout(), lc.Steps, lc.CurrentStep)
			return nil
		},
	}
}

func printLifecycle(out io.Writer, steps []string, current int) {
	if len(steps) == 0 {
		fmt.Fprintln(out, "No lifecycle steps")
		return
	}
	lc := content.Lifecycle{Steps: steps, CurrentStep: current}.Clamp()
	fmt.Fprintln(out, "Lifecycle:")
	for i, step := range lc.Steps {
		marker := " "
		if i == lc.CurrentStep {
			marker = ">"
		}
		fmt.Fprintf(out, "  %s %d. %s\n", marker, i+1, step)
	}
}
