package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

// DefaultMaxPages bounds how many pages a single list call may consume.
// Hitting it points at a runaway continuation token upstream.
const DefaultMaxPages = 100

// ErrTooManyPages is returned when an endpoint keeps paginating past MaxPages.
var ErrTooManyPages = errors.New("result set is over the page limit")

// Config holds pager configuration
type Config struct {
	// MaxPages is the maximum number of pages fetched before giving up
	MaxPages int
}

// DefaultConfig returns the default pager configuration
func DefaultConfig() Config {
	return Config{
		MaxPages: DefaultMaxPages,
	}
}

// Page is one response unit of a paginated list endpoint.
type Page[T any] struct {
	// Number is the 1-based position of the page in the sequence
	Number int
	// Items holds the records found under the response's collection field.
	// Nil when the field was absent.
	Items []T
	// NextPageToken continues the listing; empty on the last page
	NextPageToken string
}

// PageFetcher fetches the page identified by pageToken.
// An empty token requests the first page.
type PageFetcher[T any] func(ctx context.Context, pageToken string) (Page[T], error)

// Pages returns a lazy sequence over all pages of an endpoint.
// The sequence ends after the first error it yields. Fetch errors are
// yielded as returned by fetch so callers can inspect them.
func Pages[T any](ctx context.Context, fetch PageFetcher[T], cfg Config) iter.Seq2[Page[T], error] {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}

	return func(yield func(Page[T], error) bool) {
		token := ""
		for number := 1; ; number++ {
			if err := ctx.Err(); err != nil {
				yield(Page[T]{}, err)
				return
			}

			page, err := fetch(ctx, token)
			if err != nil {
				yield(Page[T]{Number: number}, err)
				return
			}
			page.Number = number

			if !yield(page, nil) {
				return
			}

			if page.NextPageToken == "" {
				return
			}
			if number >= cfg.MaxPages {
				yield(Page[T]{}, fmt.Errorf("%w (%d pages)", ErrTooManyPages, cfg.MaxPages))
				return
			}
			token = page.NextPageToken
		}
	}
}

// Collect drains every page and concatenates the items in page order.
// On error no items are returned.
func Collect[T any](ctx context.Context, fetch PageFetcher[T], cfg Config) ([]T, error) {
	return CollectFunc(ctx, fetch, cfg, nil)
}

// CollectFunc is Collect with a hook called after every fetched page.
// onPage may be nil.
func CollectFunc[T any](ctx context.Context, fetch PageFetcher[T], cfg Config, onPage func(Page[T])) ([]T, error) {
	var items []T
	for page, err := range Pages(ctx, fetch, cfg) {
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if onPage != nil {
			onPage(page)
		}
	}
	return items, nil
}
