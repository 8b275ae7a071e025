package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/beam-cloud/metacatalog/pkg/gateway"
)

type mimeTypesResult struct {
	Items []string `json:"items" yaml:"items"`
	Total int      `json:"total" yaml:"total"`
}

func newMimeTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mime-types",
		Short: "List the mime types held by the catalogs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(ctx context.Context, s *gateway.Services) error {
				catalogs, err := s.Source.Catalogs(ctx, catalog.SelectDeferred)
				if err != nil {
					return err
				}
				mimeTypes, err := catalog.IndexedMimeTypes(ctx, catalogs)
				if err != nil {
					return err
				}

				if PrintStructured(mimeTypesResult{Items: mimeTypes, Total: len(mimeTypes)}) {
					return nil
				}
				for _, mt := range mimeTypes {
					PrintBullet(mt)
				}
				PrintInfo(fmt.Sprintf("%d mime type(s)", len(mimeTypes)))
				return nil
			})
		},
	}
}

func parseDocID(arg string) (catalog.IntID, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid document id %q", arg)
	}
	return catalog.IntID(n), nil
}

func newIndexDocCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index-doc <id>",
		Short: "Index one document into every catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocID(args[0])
			if err != nil {
				return err
			}

			return a.withServices(cmd.Context(), func(ctx context.Context, s *gateway.Services) error {
				obj, err := s.Objects.Resolve(ctx, id)
				if err != nil {
					return err
				}
				if obj == nil {
					return fmt.Errorf("document %d not found", id)
				}

				report, err := catalog.IndexDocument(ctx, s.Source, id, obj)
				if err != nil {
					return err
				}
				if !PrintStructured(report) {
					PrintSuccessf("indexed %d into %v", id, report.Catalogs)
				}
				return nil
			})
		},
	}
}

func newUnindexDocCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unindex-doc <id>",
		Short: "Remove one document from every catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocID(args[0])
			if err != nil {
				return err
			}

			return a.withServices(cmd.Context(), func(ctx context.Context, s *gateway.Services) error {
				report, err := catalog.UnindexDocument(ctx, s.Source, id)
				if err != nil {
					return err
				}
				if !PrintStructured(report) {
					PrintSuccessf("unindexed %d from %v", id, report.Catalogs)
				}
				return nil
			})
		},
	}
}
