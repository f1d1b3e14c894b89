package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tejaswa-jaiswal/facedata-iist/internal/config"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/enrollment"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/intake"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/store"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/students"
)

// env is opened lazily by each command so --help works without a database.
type env struct {
	db   *store.DB
	repo *students.Repository
	svc  *intake.Service
}

func openEnv(ctx context.Context) (*env, error) {
	cfg := config.Load()
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	db, err := store.NewDB(ctx, cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}
	repo := students.NewRepository(db)
	svc, err := intake.NewService(repo, intake.Options{DataDir: cfg.DataDir})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &env{db: db, repo: repo, svc: svc}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "facedatactl",
		Short:        "Inspect and repair student face-image folders",
		SilenceUsage: true,
	}
	root.AddCommand(newStudentsCmd(), newReconcileCmd())
	return root
}

func newStudentsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "students [enrollment]",
		Short:   "List students and their image counts",
		Aliases: []string{"ls"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.db.Close()

			var list []students.Student
			if len(args) == 1 {
				st, err := e.repo.Get(ctx, enrollment.Sanitize(args[0]))
				if err != nil {
					return err
				}
				list = []students.Student{st}
			} else if list, err = e.repo.List(ctx); err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ENROLLMENT\tIMAGES")
			for _, st := range list {
				fmt.Fprintf(tw, "%s\t%d\n", st.Enrollment, st.ImageCount)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newReconcileCmd() *cobra.Command {
	var only string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reset image counters to the number of images on disk",
		Long: `Reset image counters to the number of images on disk.

Examples:
  facedatactl reconcile
  facedatactl reconcile --enrollment 0818CS211001`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.db.Close()

			var results []intake.Reconciliation
			if only != "" {
				rec, err := e.svc.Reconcile(ctx, enrollment.Sanitize(only))
				if err != nil {
					return err
				}
				results = []intake.Reconciliation{rec}
			} else if results, err = e.svc.ReconcileAll(ctx); err != nil {
				return err
			}

			changed := 0
			for _, rec := range results {
				if rec.Changed {
					changed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d -> %d\n", rec.Enrollment, rec.Before, rec.After)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked %d, corrected %d\n", len(results), changed)
			return nil
		},
	}
	cmd.Flags().StringVar(&only, "enrollment", "", "Reconcile a single enrollment")
	return cmd
}
