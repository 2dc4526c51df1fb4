package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"techxfer/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, local state and session store access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var lister preflight.SessionLister
			if cfg.RequireToken() == nil {
				store, err := ctx.store()
				if err != nil {
					return err
				}
				lister = store
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("techxfer", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg, lister)
			if lister == nil {
				results = append(results, preflight.Result{Name: "Session store", Detail: "api token missing"})
			}
			failed := 0
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
					failed++
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if failed > 0 {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}
