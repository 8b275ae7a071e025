package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/beam-cloud/metacatalog/pkg/gateway"
)

func main() {
	p, err := gateway.NewProcessor()
	if err != nil {
		log.Fatal().Err(err).Msg("processor initialization failed")
	}

	if err := p.Run(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("processor failed to run")
	}
	log.Info().Msg("processor stopped")
}
