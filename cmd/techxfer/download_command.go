package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"techxfer/internal/fileutil"
	"techxfer/internal/textutil"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "download <session-id> <blob-id|file-name>",
		Short: "Save a session file to disk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, sel, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			ref, ok := resolveBlob(sel.Blobs, args[1])
			if !ok {
				return fmt.Errorf("no file %q in this session", args[1])
			}
			blob, data, err := wb.Download(cmd.Context(), ref.ID)
			if err != nil {
				return err
			}

			target := outPath
			if target == "" {
				target = textutil.SanitizeFileName(blob.FileName)
				if target == "" {
					target = blob.ID
				}
			} else if info, err := os.Stat(target); err == nil && info.IsDir() {
				target = filepath.Join(target, textutil.SanitizeFileName(blob.FileName))
			}
			if err := fileutil.WriteFileVerified(target, data, 0o644); err != nil {
				return fmt.Errorf("save %s: %w", blob.FileName, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes) to %s\n", blob.FileName, len(data), target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Destination file or directory (defaults to the file name)")
	return cmd
}
