package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beam-cloud/metacatalog/pkg/common"
	"github.com/beam-cloud/metacatalog/pkg/gateway"
	"github.com/beam-cloud/metacatalog/pkg/types"
)

// Build information (injected at compile time via ldflags)
var Version = "dev"

// app carries the state shared by every command of one invocation.
type app struct {
	configPath string
	output     string
	config     types.AppConfig

	// services overrides the backends built from config
	services *gateway.Services
}

// NewRootCmd builds the metacatalog command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "metacatalog",
		Short: "Catalog consistency and reindexing tools",
		Long: BrandStyle.Render("metacatalog") + ` - catalog consistency and reindexing tools

Check catalogs against the object store, rebuild them, queue principals for
reindexing and drain the indexing queue.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := SetOutput(a.output, cmd.OutOrStdout()); err != nil {
				return err
			}
			return a.loadConfig()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (yaml or json), overlaid on the defaults")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", OutputText, "Output format: text, json or yaml")

	rootCmd.AddCommand(newCheckCmd(a))
	rootCmd.AddCommand(newRebuildCmd(a))
	rootCmd.AddCommand(newReindexCmd(a))
	rootCmd.AddCommand(newProcessCmd(a))
	rootCmd.AddCommand(newJobsCmd(a))
	rootCmd.AddCommand(newEmptyQueuesCmd(a))
	rootCmd.AddCommand(newMimeTypesCmd(a))
	rootCmd.AddCommand(newIndexDocCmd(a))
	rootCmd.AddCommand(newUnindexDocCmd(a))
	rootCmd.AddCommand(newServeCmd(a))

	return rootCmd
}

// Execute runs the CLI
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		PrintError(err)
	}
	return err
}

func (a *app) loadConfig() error {
	configManager, err := common.NewConfigManager[types.AppConfig]()
	if err != nil {
		return err
	}
	if a.configPath != "" {
		if err := configManager.LoadFile(a.configPath); err != nil {
			return err
		}
	}
	a.config = configManager.GetConfig()
	gateway.SetupLogging(a.config)
	return nil
}

// withServices runs fn against the configured backends.
func (a *app) withServices(ctx context.Context, fn func(ctx context.Context, s *gateway.Services) error) error {
	if a.services != nil {
		return fn(ctx, a.services)
	}

	s, err := gateway.NewServices(ctx, a.config, "MetacatalogCLI")
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer s.Close()

	return fn(ctx, s)
}

// withLock runs fn while holding the maintenance lock of operation.
func withLock(ctx context.Context, s *gateway.Services, operation string, fn func() error) error {
	release, err := s.Lock(ctx, operation)
	if err != nil {
		return fmt.Errorf("another %s is running: %w", operation, err)
	}
	defer release()
	return fn()
}
