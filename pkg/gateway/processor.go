package gateway

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/beam-cloud/metacatalog/pkg/common"
	"github.com/beam-cloud/metacatalog/pkg/types"
)

// Processor is the standalone queue processor: it drains the indexing queue on
// an interval until terminated.
type Processor struct {
	Config   types.AppConfig
	Services *Services
}

func NewProcessor() (*Processor, error) {
	configManager, err := common.NewConfigManager[types.AppConfig]()
	if err != nil {
		return nil, err
	}
	config := configManager.GetConfig()
	SetupLogging(config)

	services, err := NewServices(context.Background(), config, "MetacatalogProcessor")
	if err != nil {
		return nil, err
	}
	return &Processor{Config: config, Services: services}, nil
}

// Run blocks until SIGINT or SIGTERM.
func (p *Processor) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() {
		if err := p.Services.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close services")
		}
	}()

	return p.Services.Runner().Run(ctx, p.Config.Queue.Interval, p.Config.Queue.Batch)
}
