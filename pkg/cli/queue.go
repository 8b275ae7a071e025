package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/beam-cloud/metacatalog/pkg/gateway"
)

func newProcessCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Execute queued indexing jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(ctx context.Context, s *gateway.Services) error {
				report, err := s.Runner().Drain(ctx, limit)
				if err != nil {
					return err
				}
				if PrintStructured(report) {
					return nil
				}

				PrintKeyValue("Run", report.RunID)
				PrintKeyValue("Processed", report.Processed)
				PrintKeyValue("Failed", report.Failed)
				if report.Remaining >= 0 {
					PrintKeyValue("Remaining", report.Remaining)
				}
				if report.Failed > 0 {
					PrintWarning(fmt.Sprintf("%d job(s) failed", report.Failed))
				} else {
					PrintSuccessf("%d job(s) processed", report.Processed)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", catalog.Unlimited, "Maximum number of jobs to execute (negative for all)")
	return cmd
}

type jobsResult struct {
	Items map[string][]catalog.IntID `json:"items" yaml:"items"`
	Total int                        `json:"total" yaml:"total"`
}

func newJobsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List the ids waiting in the indexing queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(ctx context.Context, s *gateway.Services) error {
				keys, err := s.Queue.Keys(ctx)
				if err != nil {
					return err
				}

				result := jobsResult{
					Items: map[string][]catalog.IntID{s.Queue.Name(): keys},
					Total: len(keys),
				}
				if PrintStructured(result) {
					return nil
				}

				if len(keys) == 0 {
					PrintInfo("queue " + s.Queue.Name() + " is empty")
					return nil
				}
				PrintHeader(fmt.Sprintf("%s (%d)", s.Queue.Name(), len(keys)))
				for _, id := range keys {
					PrintBullet(strconv.FormatInt(int64(id), 10))
				}
				return nil
			})
		},
	}
}

func newEmptyQueuesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "empty-queues",
		Short: "Drop every pending indexing job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(ctx context.Context, s *gateway.Services) error {
				if err := s.Queue.Clear(ctx); err != nil {
					return err
				}
				if !PrintStructured(map[string]string{"emptied": s.Queue.Name()}) {
					PrintSuccess("queue " + s.Queue.Name() + " emptied")
				}
				return nil
			})
		},
	}
}
