// Package retry re-runs operations that failed for transient reasons.
//
// Media downloads go through the backend's media proxy and occasionally hit
// a dropped connection or a 5xx from the upstream CDN. Those are retried
// with exponential backoff; backend-reported failures (auth, not found,
// envelope errors) are returned at once.
//
//	body, err := retry.DoWithResult(ctx, retry.Policy{
//		MaxAttempts: 3,
//		Backoff:     retry.DefaultExponentialBackoff(),
//	}, func(ctx context.Context) (io.ReadCloser, error) {
//		return open(ctx, url)
//	})
//
// The API client and the edge proxy never retry; only the downloader uses
// this package.
package retry
