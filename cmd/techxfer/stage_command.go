package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"techxfer/internal/stage"
)

func newStageCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Show or change the workflow stage of a session",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the current stage and the stages reachable from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sel, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Stage: %s\n", titleLabel(string(sel.Stage)))
			if sel.Stage.Locked() {
				fmt.Fprintln(out, "Locked: edits are disabled for completed sessions")
			}
			targets := stage.Targets(sel.Stage)
			if len(targets) == 0 {
				return nil
			}
			names := make([]string, 0, len(targets))
			for _, t := range targets {
				names = append(names, string(t))
			}
			fmt.Fprintf(out, "Next:  %s\n", strings.Join(names, ", "))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <session-id> <stage>",
		Short: "Move a session to another stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			next, ok := stage.Parse(args[1])
			if !ok {
				return fmt.Errorf("unknown stage %q", args[1])
			}
			wb, sel, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			if _, err := wb.Transition(cmd.Context(), next); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stage: %s -> %s\n", titleLabel(string(sel.Stage)), titleLabel(string(next)))
			return nil
		},
	})
	return cmd
}
