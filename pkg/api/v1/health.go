package apiv1

import (
	"context"
	"net/http"

	"github.com/beam-cloud/metacatalog/pkg/common"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Pinger is a backend whose liveness is reported by the health check
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthGroup struct {
	redisClient *common.RedisClient
	backend     Pinger
	routerGroup *echo.Group
}

func NewHealthGroup(g *echo.Group, rdb *common.RedisClient, backend Pinger) *HealthGroup {
	group := &HealthGroup{routerGroup: g, redisClient: rdb, backend: backend}

	g.GET("", group.HealthCheck)

	return group
}

func (h *HealthGroup) HealthCheck(c echo.Context) error {
	ctx := c.Request().Context()

	var err error
	if h.redisClient != nil {
		err = h.redisClient.Ping(ctx).Err()
	}
	if err == nil && h.backend != nil {
		err = h.backend.Ping(ctx)
	}
	if err != nil {
		log.Error().Err(err).Msg("health check failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"status": "not ok",
			"error":  err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
