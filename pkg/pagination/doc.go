// Package pagination drains token-paginated list endpoints sequentially.
//
// Google APIs return an opaque nextPageToken with every list response; an
// empty token marks the last page. This package turns a single-page fetch
// function into a lazy sequence of pages and can flatten that sequence into
// one ordered slice.
//
// Example usage:
//
//	fetch := func(ctx context.Context, token string) (pagination.Page[*classroom.Course], error) {
//		resp, err := svc.Courses.List().PageToken(token).Context(ctx).Do()
//		if err != nil {
//			return pagination.Page[*classroom.Course]{}, err
//		}
//		return pagination.Page[*classroom.Course]{Items: resp.Courses, NextPageToken: resp.NextPageToken}, nil
//	}
//	courses, err := pagination.Collect(ctx, fetch, pagination.DefaultConfig())
//
// The pager:
//   - Fetches pages strictly one after another, in token order
//   - Preserves page order and within-page order when collecting
//   - Stops with ErrTooManyPages once MaxPages pages were fetched and the
//     endpoint still reports another page
//   - Never returns partial results from Collect
package pagination
