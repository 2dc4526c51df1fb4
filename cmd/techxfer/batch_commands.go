package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"techxfer/internal/prompts"
	"techxfer/internal/workflow"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		start       string
		description string
		docs        []string
		allDocs     bool
		columns     []string
	)
	cmd := &cobra.Command{
		Use:   "convert <session-id>",
		Short: "Queue the conversion batch and wait for it to finish",
		Long: fmt.Sprintf(`Queue the conversion batch and wait for it to finish.

The batch seeds metadata.json, standardizes the BOM, writes one report per
--doc and closes with a summary. Known documents:
  %s`, strings.Join(prompts.Documents(), "\n  ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			startType, err := prompts.ParseStartType(start)
			if err != nil {
				return err
			}
			if startType == prompts.StartDescription && strings.TrimSpace(description) == "" {
				return errors.New("--description is required with --start description")
			}
			if allDocs {
				docs = prompts.Documents()
			}
			wb, _, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			return runBatch(cmd, func(runCtx context.Context) (workflow.Result, error) {
				return wb.Convert(runCtx, prompts.Conversion{
					Start:         startType,
					Description:   description,
					TargetColumns: columns,
					Documents:     docs,
				})
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "bom", "How to start: bom, description or sketch")
	cmd.Flags().StringVar(&description, "description", "", "Product description")
	cmd.Flags().StringArrayVar(&docs, "doc", nil, "Deliverable document to generate (repeatable)")
	cmd.Flags().BoolVar(&allDocs, "all-docs", false, "Generate every known deliverable document")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "BOM target columns (defaults to workflow.target_columns)")
	cmd.MarkFlagsMutuallyExclusive("doc", "all-docs")
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var tasksFile string
	cmd := &cobra.Command{
		Use:   "run <session-id> --tasks <file>",
		Short: "Queue custom tasks from a YAML file and wait for them",
		Long: `Queue custom tasks from a YAML file and wait for them.

The file holds either a list of task strings or a mapping with a "tasks" list.
Use - to read it from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := readTasks(cmd.InOrStdin(), tasksFile)
			if err != nil {
				return err
			}
			wb, _, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			return runBatch(cmd, func(runCtx context.Context) (workflow.Result, error) {
				return wb.RunTasks(runCtx, tasks)
			})
		},
	}
	cmd.Flags().StringVar(&tasksFile, "tasks", "", "YAML task file (- for stdin)")
	_ = cmd.MarkFlagRequired("tasks")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Follow a batch the server is still running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, sel, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			if !sel.ResumePolling {
				fmt.Fprintf(cmd.OutOrStdout(), "Session is not processing (status: %s)\n", titleLabel(string(sel.Session.Status)))
				return nil
			}
			return runBatch(cmd, wb.Resume)
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <session-id>",
		Short: "Ask the server to stop the running batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, _, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			if err := wb.Cancel(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cancellation requested")
			return nil
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <session-id>",
		Short: "Re-run the session's tasks after an execution error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, _, err := ctx.openSession(cmd, args[0])
			if err != nil {
				return err
			}
			return runBatch(cmd, wb.Retry)
		},
	}
}

// runBatch runs fn until the batch ends or the user interrupts, then reports
// the result. Outcomes other than completed or cancelled are returned as
// errors.
func runBatch(cmd *cobra.Command, fn func(context.Context) (workflow.Result, error)) error {
	runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := fn(runCtx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch res.Outcome {
	case workflow.OutcomeCompleted:
		fmt.Fprintf(out, "Batch %s completed after %d polls (%s)\n", shortID(res.BatchID), res.Attempts, res.Elapsed.Round(time.Second))
		return nil
	case workflow.OutcomeCancelled:
		fmt.Fprintf(out, "Batch %s was cancelled\n", shortID(res.BatchID))
		return nil
	case workflow.OutcomeError:
		return fmt.Errorf("batch ended with an execution error; run 'techxfer retry %s' to try again", res.SessionID)
	case workflow.OutcomeCeiling:
		return fmt.Errorf("batch still processing after %d polls; run 'techxfer watch %s' to keep following it", res.Attempts, res.SessionID)
	case workflow.OutcomeInterrupted:
		fmt.Fprintf(out, "Stopped watching; the server keeps processing. Run 'techxfer watch %s' to resume.\n", res.SessionID)
		return context.Canceled
	default:
		return fmt.Errorf("batch ended: %s", res.Outcome)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type taskFile struct {
	Tasks []string `yaml:"tasks"`
}

func readTasks(stdin io.Reader, path string) ([]string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}

	var list []string
	if err := yaml.Unmarshal(data, &list); err == nil {
		return nonEmptyTasks(list)
	}
	var file taskFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse tasks: %w", err)
	}
	return nonEmptyTasks(file.Tasks)
}

func nonEmptyTasks(tasks []string) ([]string, error) {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		if strings.TrimSpace(task) != "" {
			out = append(out, task)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("task file lists no tasks")
	}
	return out, nil
}
