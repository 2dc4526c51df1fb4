package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"techxfer/internal/workflow"
)

func newMetadataCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Inspect, generate and save metadata.json",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Print the current metadata document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, _, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			metadata, blobID := wb.Metadata()
			if metadata == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "No metadata.json in this session")
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "metadata.json (%s)\n", blobID)
			return writeJSON(cmd, metadata)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "generate <session-id>",
		Short: "Queue the metadata generation batch and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, _, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			return runBatch(cmd, func(runCtx context.Context) (workflow.Result, error) {
				return wb.GenerateMetadata(runCtx)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "save <session-id> <file.json>",
		Short: "Replace metadata.json with a local JSON object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[1], err)
			}
			var metadata map[string]any
			if err := json.Unmarshal(data, &metadata); err != nil {
				return fmt.Errorf("parse %s: %w", args[1], err)
			}
			if metadata == nil {
				return fmt.Errorf("%s does not hold a JSON object", args[1])
			}
			wb, _, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			blob, err := wb.SaveMetadata(cmd.Context(), metadata)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved metadata.json (%s)\n", blob.ID)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sync <session-id>",
		Short: "Ask the agent to bring metadata.json in line with the files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, _, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			reply, err := wb.Sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
			return nil
		},
	})
	return cmd
}
