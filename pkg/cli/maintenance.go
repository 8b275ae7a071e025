package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/beam-cloud/metacatalog/pkg/gateway"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		all       bool
		broken    bool
		structure bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Remove dangling and broken ids from the catalogs",
		Long: `Enumerate every id referenced by the selected catalogs, resolve it against the
object store and unindex the ids whose objects are missing (or broken, with --broken).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := catalog.CheckOptions{
				Selector:         catalog.SelectDeferred,
				TestBroken:       broken,
				InspectStructure: structure,
			}
			if all {
				opts.Selector = catalog.SelectAll
			}

			return a.withServices(cmd.Context(), func(ctx context.Context, s *gateway.Services) error {
				return withLock(ctx, s, "check", func() error {
					report, err := s.Checker().Check(ctx, opts)
					if err != nil {
						return err
					}
					printCheckReport(report)
					return nil
				})
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Check every editable catalog instead of the deferred ones")
	cmd.Flags().BoolVar(&broken, "broken", false, "Also remove objects that report themselves broken")
	cmd.Flags().BoolVar(&structure, "structure", false, "Run each index's structural self-check")
	return cmd
}

func printCheckReport(report *catalog.CheckReport) {
	if PrintStructured(report) {
		return
	}

	PrintHeader("Consistency check")
	PrintKeyValue("Run", report.RunID)
	PrintKeyValue("Catalogs", report.Catalogs)
	PrintKeyValue("Indexed", report.TotalIndexed)
	PrintKeyValue("Missing", report.TotalMissing)
	PrintKeyValue("Skipped", report.TotalSkipped)
	if report.TotalBroken != nil {
		PrintKeyValue("Broken", *report.TotalBroken)
	}
	PrintKeyValue("Elapsed", fmt.Sprintf("%.3fs", report.Elapsed))

	if len(report.Broken) > 0 {
		ids := make([]catalog.IntID, 0, len(report.Broken))
		for id := range report.Broken {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		table := NewTable("ID", "TYPE")
		for _, id := range ids {
			table.AddRow(strconv.FormatInt(int64(id), 10), report.Broken[id])
		}
		PrintHeader("Broken objects")
		table.Print()
	}

	if report.TotalMissing == 0 && (report.TotalBroken == nil || *report.TotalBroken == 0) {
		PrintSuccess("catalogs are consistent")
	} else {
		PrintWarning(fmt.Sprintf("%d id(s) unindexed", report.TotalMissing+len(report.Broken)))
	}
}

func newRebuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the canonical catalog from scratch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(ctx context.Context, s *gateway.Services) error {
				return withLock(ctx, s, "rebuild", func() error {
					report, err := s.Rebuilder().Rebuild(ctx)
					if err != nil {
						return err
					}
					if PrintStructured(report) {
						return nil
					}

					PrintHeader("Rebuild " + report.Catalog)
					PrintKeyValue("Run", report.RunID)
					PrintKeyValue("Collected", report.Collected)
					PrintKeyValue("Indexed", report.Total)
					PrintKeyValue("Skipped", report.Skipped)
					PrintKeyValue("Failed", report.Failed)
					PrintKeyValue("Elapsed", fmt.Sprintf("%.3fs", report.Elapsed))
					PrintSuccessf("%d object(s) indexed", report.Total)
					return nil
				})
			})
		},
	}
}

func newReindexCmd(a *app) *cobra.Command {
	var req catalog.ReindexRequest

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Queue the objects of principals for indexing",
		Example: `  metacatalog reindex --usernames alice,bob
  metacatalog reindex --term al --accept application/vnd.nextthought.note
  metacatalog reindex --all --system`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(ctx context.Context, s *gateway.Services) error {
				report, err := s.Reindexer().Reindex(ctx, req)
				if err != nil {
					return err
				}
				if PrintStructured(report) {
					return nil
				}

				PrintHeader("Reindex")
				PrintKeyValue("Run", report.RunID)
				PrintKeyValue("Principals", len(report.Principals))
				PrintKeyValue("Queued", report.Total)
				PrintKeyValue("Elapsed", fmt.Sprintf("%.3fs", report.Elapsed))

				mimeTypes := make([]string, 0, len(report.MimeTypeCount))
				for mt := range report.MimeTypeCount {
					mimeTypes = append(mimeTypes, mt)
				}
				sort.Strings(mimeTypes)

				table := NewTable("MIME TYPE", "COUNT")
				for _, mt := range mimeTypes {
					table.AddRow(mt, strconv.Itoa(report.MimeTypeCount[mt]))
				}
				table.Print()

				for _, name := range report.Skipped {
					PrintWarning("skipped " + name)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&req.Usernames, "usernames", "u", nil, "Principals to reindex (comma separated)")
	cmd.Flags().StringVarP(&req.Term, "term", "t", "", "Reindex every principal whose name starts with term")
	cmd.Flags().BoolVar(&req.AllPrincipals, "all", false, "Reindex every principal")
	cmd.Flags().BoolVarP(&req.IncludeSystem, "system", "s", false, "Include the system principal")
	cmd.Flags().StringSliceVar(&req.Accept, "accept", nil, "Only queue these mime types (*/* for all)")
	return cmd
}
