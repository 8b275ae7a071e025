package cli

import (
	"github.com/spf13/cobra"

	"github.com/beam-cloud/metacatalog/pkg/gateway"
)

func newServeCmd(a *app) *cobra.Command {
	var noProcess bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API and the queue processor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := a.config
			if noProcess {
				config.Queue.Process = false
			}

			gw, err := gateway.NewGatewayWithConfig(config)
			if err != nil {
				return err
			}
			return gw.Start()
		},
	}

	cmd.Flags().BoolVar(&noProcess, "no-process", false, "Do not drain the queue in this process")
	return cmd
}
