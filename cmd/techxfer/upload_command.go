package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"techxfer/internal/prompts"
	"techxfer/internal/session"
	"techxfer/internal/workflow"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var (
		convert string
		docs    []string
	)
	cmd := &cobra.Command{
		Use:   "upload <session-id> <file>...",
		Short: "Upload files, replacing earlier versions with the same name",
		Long: `Upload files, replacing earlier versions with the same name.

With --convert (bom or sketch) the conversion batch is queued as soon as every
file is stored, the same as running convert afterwards.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var startType prompts.StartType
			if cmd.Flags().Changed("convert") {
				parsed, err := prompts.ParseStartType(convert)
				if err != nil {
					return err
				}
				if parsed == prompts.StartDescription {
					return errors.New("--convert takes bom or sketch; use convert --start description for a product description")
				}
				startType = parsed
			}

			files := make([]session.Upload, 0, len(args)-1)
			for _, path := range args[1:] {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				files = append(files, session.Upload{FileName: filepath.Base(path), Data: data})
			}

			wb, _, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			res, err := wb.Upload(cmd.Context(), files)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, blob := range res.Uploaded {
				line := fmt.Sprintf("Uploaded %s (%s)", blob.FileName, blob.ID)
				if replaced := res.Replaced[blob.ID]; len(replaced) > 0 {
					line += fmt.Sprintf(", replaces %s", strings.Join(replaced, ", "))
				}
				fmt.Fprintln(out, line)
			}
			for _, failure := range res.Failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed %s: %v\n", failure.FileName, failure.Err)
			}
			if res.CommentsErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Notes were not carried over: %v\n", res.CommentsErr)
			}
			if err := errors.Join(res.Err(), res.CommentsErr); err != nil {
				return err
			}
			if startType == "" {
				return nil
			}
			return runBatch(cmd, func(runCtx context.Context) (workflow.Result, error) {
				return wb.Convert(runCtx, prompts.Conversion{Start: startType, Documents: docs})
			})
		},
	}
	cmd.Flags().StringVar(&convert, "convert", "", "Queue the conversion batch after uploading (bom or sketch)")
	cmd.Flags().Lookup("convert").NoOptDefVal = string(prompts.StartBOM)
	cmd.Flags().StringArrayVar(&docs, "doc", nil, "Deliverable document for the conversion batch (repeatable)")
	return cmd
}

func newNoteCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Save text notes as session files",
	}

	var title, body, file string
	add := &cobra.Command{
		Use:   "add <session-id>",
		Short: "Save a text note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := noteBody(cmd.InOrStdin(), body, file)
			if err != nil {
				return err
			}
			wb, _, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			blob, err := wb.AddNote(cmd.Context(), title, text)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved note %s (%s)\n", blob.FileName, blob.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&title, "title", "t", "", "Note title")
	add.Flags().StringVarP(&body, "body", "b", "", "Note text")
	add.Flags().StringVarP(&file, "file", "f", "", "Read the note text from a file (- for stdin)")
	add.MarkFlagsMutuallyExclusive("body", "file")
	cmd.AddCommand(add)
	return cmd
}

func noteBody(stdin io.Reader, body, file string) (string, error) {
	switch {
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	case strings.TrimSpace(body) != "":
		return body, nil
	default:
		return "", errors.New("note text is required (use --body or --file)")
	}
}
