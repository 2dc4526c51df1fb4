package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"techxfer/internal/projection"
	"techxfer/internal/session"
	"techxfer/internal/workbench"
)

func newCSVCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Inspect and edit CSV files of a session",
	}
	cmd.AddCommand(newCSVShowCommand(ctx))
	cmd.AddCommand(newCSVEditCommand(ctx))
	return cmd
}

func newCSVShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id> [blob-id|file-name]",
		Short: "Show a CSV file as a table, or list the CSV files",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, sel, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				rows := [][]string{}
				for _, b := range sel.Blobs {
					if !b.IsCSV() {
						continue
					}
					t, loaded := wb.Table(b.ID)
					shape := "not loaded"
					if loaded {
						shape = fmt.Sprintf("%d rows", max(len(t)-1, 0))
					}
					rows = append(rows, []string{b.ID, b.FileName, shape})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No CSV files")
					return nil
				}
				fmt.Fprintln(out, renderTable([]string{"Blob", "File", "Rows"}, rows, 2))
				return nil
			}
			blob, table, err := resolveTable(wb, sel.Blobs, args[1])
			if err != nil {
				return err
			}
			for _, line := range renderSectionHeader(blob.FileName, shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderGrid(table))
			return nil
		},
	}
}

func newCSVEditCommand(ctx *commandContext) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "edit <session-id> <blob-id|file-name> --set ROW:COL=VALUE...",
		Short: "Edit cells of a CSV file and save it as a new version",
		Long: `Edit cells of a CSV file and save it as a new version.

ROW is the row number shown by csv show. COL is a header name or a 1-based
column number. Notes attached to the old version move to the new one.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(sets) == 0 {
				return fmt.Errorf("at least one --set is required")
			}
			wb, sel, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			blob, table, err := resolveTable(wb, sel.Blobs, args[1])
			if err != nil {
				return err
			}
			for _, raw := range sets {
				edit, err := parseCellEdit(raw, table)
				if err != nil {
					return err
				}
				if err := wb.SetCell(blob.ID, edit.row, edit.col, edit.value); err != nil {
					return fmt.Errorf("--set %s: %w", raw, err)
				}
			}
			saved, err := wb.SaveCSV(cmd.Context(), blob.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s, replaces %s)\n", saved.FileName, saved.ID, blob.ID)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Cell edit as ROW:COL=VALUE (repeatable)")
	return cmd
}

// resolveBlob finds a blob by id, or the newest blob with that file name.
func resolveBlob(blobs []session.Blob, ref string) (session.Blob, bool) {
	var match session.Blob
	found := false
	for _, b := range blobs {
		if b.ID == ref {
			return b, true
		}
		if b.FileName == ref && (!found || !b.CreatedAt.Before(match.CreatedAt)) {
			match = b
			found = true
		}
	}
	return match, found
}

func resolveTable(wb *workbench.Workbench, blobs []session.Blob, ref string) (session.Blob, projection.Table, error) {
	blob, ok := resolveBlob(blobs, ref)
	if !ok {
		return session.Blob{}, nil, fmt.Errorf("no file %q in this session", ref)
	}
	if !blob.IsCSV() {
		return session.Blob{}, nil, fmt.Errorf("%s is not a CSV file", blob.FileName)
	}
	table, ok := wb.Table(blob.ID)
	if !ok {
		return session.Blob{}, nil, fmt.Errorf("%s could not be loaded", blob.FileName)
	}
	return blob, table, nil
}

type cellEdit struct {
	row   int
	col   int
	value string
}

func parseCellEdit(raw string, table projection.Table) (cellEdit, error) {
	coords, value, ok := strings.Cut(raw, "=")
	if !ok {
		return cellEdit{}, fmt.Errorf("invalid --set %q (want ROW:COL=VALUE)", raw)
	}
	rowText, colText, ok := strings.Cut(coords, ":")
	if !ok {
		return cellEdit{}, fmt.Errorf("invalid --set %q (want ROW:COL=VALUE)", raw)
	}
	row, err := strconv.Atoi(strings.TrimSpace(rowText))
	if err != nil || row < 1 {
		return cellEdit{}, fmt.Errorf("invalid row %q in --set %q", rowText, raw)
	}
	col, err := columnIndex(table, strings.TrimSpace(colText))
	if err != nil {
		return cellEdit{}, fmt.Errorf("--set %q: %w", raw, err)
	}
	return cellEdit{row: row, col: col, value: value}, nil
}

func columnIndex(table projection.Table, ref string) (int, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 {
			return 0, fmt.Errorf("column numbers start at 1")
		}
		return n - 1, nil
	}
	if len(table) > 0 {
		for i, name := range table[0] {
			if strings.EqualFold(strings.TrimSpace(name), ref) {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown column %q", ref)
}
