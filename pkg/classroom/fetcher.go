package classroom

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/Sternrassler/classroom-client/pkg/pagination"
)

// Request selects a resource and the parameters identifying what to fetch.
type Request struct {
	Resource string
	Params   map[string]string
}

// listAll drains a paginated listing into one slice, in page order. unwrap
// names the response field the items come from.
func listAll[T any](ctx context.Context, g *Gateway, req Request, unwrap string, fetch pagination.PageFetcher[T]) ([]T, error) {
	start := time.Now()
	logger := g.logger.With().
		Str("resource", req.Resource).
		Interface("params", req.Params).
		Str("unwrap", unwrap).
		Logger()

	fetchWithRetry := func(ctx context.Context, pageToken string) (pagination.Page[T], error) {
		var page pagination.Page[T]
		err := g.execute(ctx, req, func() error {
			var err error
			page, err = fetch(ctx, pageToken)
			return err
		})
		return page, err
	}

	pages := 0
	items, err := pagination.CollectFunc(ctx, fetchWithRetry, pagination.Config{MaxPages: g.config.MaxPages}, func(page pagination.Page[T]) {
		pages++
		logger.Debug().
			Int("page", page.Number).
			Int("page_items", len(page.Items)).
			Bool("has_next", page.NextPageToken != "").
			Msg("Fetched page")
	})
	if err != nil {
		return nil, g.fail(ctx, req, err)
	}

	classroomListPages.WithLabelValues(req.Resource).Observe(float64(pages))
	logger.Info().
		Int("pages", pages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("List complete")

	return items, nil
}

// getObject performs a single get call.
func getObject[T any](ctx context.Context, g *Gateway, req Request, get func(ctx context.Context) (T, error)) (T, error) {
	var obj T
	err := g.execute(ctx, req, func() error {
		var err error
		obj, err = get(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, g.fail(ctx, req, err)
	}

	g.logger.Debug().
		Str("resource", req.Resource).
		Interface("params", req.Params).
		Msg("Fetched object")
	return obj, nil
}

// execute sends one request through the retry loop and records request metrics.
func (g *Gateway) execute(ctx context.Context, req Request, fn func() error) error {
	return retryWithBackoff(ctx, g.config.Retry, req.Resource, g.logger, func() error {
		start := time.Now()
		err := fn()
		classroomRequestDuration.WithLabelValues(req.Resource).Observe(time.Since(start).Seconds())
		classroomRequestsTotal.WithLabelValues(req.Resource, requestStatus(err)).Inc()
		return err
	})
}

// fail classifies a failed call. Unrecognised errors are returned unchanged.
func (g *Gateway) fail(ctx context.Context, req Request, err error) error {
	if errors.Is(err, pagination.ErrTooManyPages) {
		err = &ClassroomError{
			Kind:    KindResultSetTooLarge,
			Message: fmt.Sprintf("Result set is over %d pages.", g.config.MaxPages),
			Err:     err,
		}
	}

	err = Classify(err)
	kind := KindOf(err)
	if kind == "" {
		classroomErrorsTotal.WithLabelValues("unclassified").Inc()
		g.logger.Error().
			Err(err).
			Str("resource", req.Resource).
			Interface("params", req.Params).
			Msg("Classroom request failed")
		return err
	}

	classroomErrorsTotal.WithLabelValues(string(kind)).Inc()
	g.logger.Warn().
		Err(err).
		Str("resource", req.Resource).
		Interface("params", req.Params).
		Str("error_kind", string(kind)).
		Msg("Classroom request failed")

	if kind == KindResourceExhausted && g.config.Throttle != nil {
		if rerr := g.config.Throttle.RecordExhausted(ctx, req.Resource); rerr != nil {
			g.logger.Warn().Err(rerr).Msg("Failed to record throttled request")
		}
	}

	return err
}

// requestStatus renders an attempt outcome as a metrics label.
func requestStatus(err error) string {
	if err == nil {
		return "200"
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.Code)
	}
	return "network_error"
}
