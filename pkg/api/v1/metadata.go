package apiv1

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/beam-cloud/metacatalog/pkg/metrics"
	"github.com/beam-cloud/metacatalog/pkg/repository"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// MaintenanceLocker serializes long-running maintenance operations across processes.
type MaintenanceLocker interface {
	Lock(ctx context.Context, operation string) (release func(), err error)
}

// MetadataConfig holds the collaborators of the metadata API. Locker and Metrics
// are optional.
type MetadataConfig struct {
	Source  catalog.CatalogSource
	Objects repository.ObjectRepository
	Queue   repository.JobQueue
	Locker  MaintenanceLocker
	Metrics *metrics.Metrics
}

// MetadataGroup exposes the catalog maintenance operations.
type MetadataGroup struct {
	routerGroup *echo.Group
	source      catalog.CatalogSource
	objects     repository.ObjectRepository
	queue       repository.JobQueue
	locker      MaintenanceLocker

	checker   *catalog.Checker
	rebuilder *catalog.Rebuilder
	reindexer *catalog.Reindexer
	runner    *catalog.Runner
}

func NewMetadataGroup(routerGroup *echo.Group, cfg MetadataConfig) *MetadataGroup {
	opts := []catalog.Option{catalog.WithMetrics(cfg.Metrics)}

	g := &MetadataGroup{
		routerGroup: routerGroup,
		source:      cfg.Source,
		objects:     cfg.Objects,
		queue:       cfg.Queue,
		locker:      cfg.Locker,
		checker:     catalog.NewChecker(cfg.Source, cfg.Objects, opts...),
		rebuilder:   catalog.NewRebuilder(cfg.Source, cfg.Objects, cfg.Objects, opts...),
		reindexer:   catalog.NewReindexer(cfg.Objects, cfg.Objects, cfg.Objects, cfg.Queue, opts...),
		runner:      catalog.NewRunner(cfg.Queue, cfg.Objects, cfg.Source, catalog.SelectAll, opts...),
	}
	g.registerRoutes()
	return g
}

func (g *MetadataGroup) lock(ctx context.Context, operation string) (func(), error) {
	if g.locker == nil {
		return func() {}, nil
	}
	return g.locker.Lock(ctx, operation)
}

func (g *MetadataGroup) registerRoutes() {
	g.routerGroup.GET("/mime_types", g.MimeTypes)
	g.routerGroup.POST("/reindexer", g.Reindex)
	g.routerGroup.GET("/check_indices", g.CheckIndices)
	g.routerGroup.POST("/check_indices", g.CheckIndices)
	g.routerGroup.POST("/index_doc/:id", g.IndexDoc)
	g.routerGroup.POST("/unindex_doc/:id", g.UnindexDoc)
	g.routerGroup.POST("/rebuild", g.Rebuild)
	g.routerGroup.GET("/jobs", g.Jobs)
	g.routerGroup.POST("/empty_queues", g.EmptyQueues)
	g.routerGroup.POST("/drain", g.Drain)
}

// MimeTypes lists the mime types held by the deferred catalogs
func (g *MetadataGroup) MimeTypes(c echo.Context) error {
	ctx := c.Request().Context()

	catalogs, err := g.source.Catalogs(ctx, catalog.SelectDeferred)
	if err != nil {
		return errorFrom(c, err)
	}
	mimeTypes, err := catalog.IndexedMimeTypes(ctx, catalogs)
	if err != nil {
		return errorFrom(c, err)
	}

	return SuccessResponse(c, ItemsResponse{Items: mimeTypes, ItemCount: len(mimeTypes), Total: len(mimeTypes)})
}

// Reindex queues the objects of the requested principals
func (g *MetadataGroup) Reindex(c echo.Context) error {
	values, err := readValues(c)
	if err != nil {
		return ErrorResponse(c, http.StatusBadRequest, err.Error())
	}

	req := catalog.ReindexRequest{
		Term:          values.first("term", "search"),
		AllPrincipals: values.flag("all"),
		IncludeSystem: values.flag("system", "systemUser"),
	}
	if usernames := values.first("usernames", "username"); usernames != "" {
		req.Usernames = []string{usernames}
	}
	if accept := values.first("accept", "mimeTypes"); accept != "" {
		req.Accept = []string{accept}
	}

	report, err := g.reindexer.Reindex(c.Request().Context(), req)
	if err != nil {
		return errorFrom(c, err)
	}
	return SuccessResponse(c, report)
}

// CheckIndices runs a consistency check. Parameters: all, broken, check.
func (g *MetadataGroup) CheckIndices(c echo.Context) error {
	values, err := readValues(c)
	if err != nil {
		return ErrorResponse(c, http.StatusBadRequest, err.Error())
	}

	opts := catalog.CheckOptions{
		Selector:         catalog.SelectDeferred,
		TestBroken:       values.flag("broken"),
		InspectStructure: values.flag("check"),
	}
	if values.flag("all") {
		opts.Selector = catalog.SelectAll
	}

	ctx := c.Request().Context()
	release, err := g.lock(ctx, "check")
	if err != nil {
		return errorFrom(c, err)
	}
	defer release()

	report, err := g.checker.Check(ctx, opts)
	if err != nil {
		return errorFrom(c, err)
	}
	return SuccessResponse(c, report)
}

// IndexDoc indexes one document into every catalog
func (g *MetadataGroup) IndexDoc(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok, err := g.documentID(c)
	if !ok {
		return err
	}

	obj, err := g.objects.Resolve(ctx, id)
	if err != nil {
		kind, ok := catalog.ResolutionKind(err)
		switch {
		case !ok:
			return errorFrom(c, err)
		case kind != catalog.Missing:
			return ErrorResponse(c, http.StatusUnprocessableEntity, err.Error())
		}
		obj = nil
	}
	if obj == nil {
		return ErrorResponse(c, http.StatusNotFound, "document not found")
	}

	if _, err := catalog.IndexDocument(ctx, g.source, id, obj); err != nil {
		return errorFrom(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UnindexDoc removes one document from every catalog. Integer ids are accepted
// even when they no longer resolve.
func (g *MetadataGroup) UnindexDoc(c echo.Context) error {
	id, ok, err := g.documentID(c)
	if !ok {
		return err
	}

	if _, err := catalog.UnindexDocument(c.Request().Context(), g.source, id); err != nil {
		return errorFrom(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// documentID parses an integer id or looks up an external id. When ok is false
// the error response has already been written and err is its write result.
func (g *MetadataGroup) documentID(c echo.Context) (id catalog.IntID, ok bool, err error) {
	raw := strings.TrimSpace(c.Param("id"))

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return catalog.IntID(n), true, nil
	}

	if _, err := uuid.Parse(raw); err != nil {
		return 0, false, ErrorResponse(c, http.StatusUnprocessableEntity, "invalid document id")
	}

	ctx := c.Request().Context()
	obj, err := g.objects.GetObjectByExternalId(ctx, raw)
	if err != nil {
		return 0, false, errorFrom(c, err)
	}
	if obj == nil {
		return 0, false, ErrorResponse(c, http.StatusNotFound, "document not found")
	}

	id, registered, err := g.objects.IDOf(ctx, obj)
	if err != nil {
		return 0, false, errorFrom(c, err)
	}
	if !registered {
		return 0, false, ErrorResponse(c, http.StatusNotFound, "document not registered")
	}
	return id, true, nil
}

// Rebuild rebuilds the canonical catalog from scratch
func (g *MetadataGroup) Rebuild(c echo.Context) error {
	ctx := c.Request().Context()
	release, err := g.lock(ctx, "rebuild")
	if err != nil {
		return errorFrom(c, err)
	}
	defer release()

	report, err := g.rebuilder.Rebuild(ctx)
	if err != nil {
		return errorFrom(c, err)
	}
	return SuccessResponse(c, report)
}

// Jobs lists the queued ids by queue name
func (g *MetadataGroup) Jobs(c echo.Context) error {
	keys, err := g.queue.Keys(c.Request().Context())
	if err != nil {
		return errorFrom(c, err)
	}

	items := map[string][]catalog.IntID{g.queue.Name(): keys}
	return SuccessResponse(c, ItemsResponse{Items: items, ItemCount: len(keys), Total: len(keys)})
}

// EmptyQueues drops every pending job
func (g *MetadataGroup) EmptyQueues(c echo.Context) error {
	if err := g.queue.Clear(c.Request().Context()); err != nil {
		return errorFrom(c, err)
	}
	log.Warn().Str("queue", g.queue.Name()).Msg("queue emptied")
	return c.NoContent(http.StatusNoContent)
}

// Drain executes up to limit queued jobs; no limit drains the queue.
func (g *MetadataGroup) Drain(c echo.Context) error {
	limit := catalog.Unlimited
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return ErrorResponse(c, http.StatusUnprocessableEntity, "invalid limit")
		}
		limit = n
	}

	report, err := g.runner.Drain(c.Request().Context(), limit)
	if err != nil {
		if report != nil {
			log.Warn().Err(err).Int("processed", report.Processed).Msg("drain stopped early")
		}
		return errorFrom(c, err)
	}
	return SuccessResponse(c, report)
}
