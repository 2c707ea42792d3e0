package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const maxResponseBytes = 1 << 20

// requestTries bounds retries of a single solver API call.
const requestTries = 3

// doJSON sends the request built by build and decodes a JSON body into out.
// Transport failures and 5xx responses are retried with exponential
// backoff; other statuses fail immediately.
func doJSON(ctx context.Context, client *http.Client, provider string, build func(context.Context) (*http.Request, error), out any) error {
	operation := func() (struct{}, error) {
		req, err := build(ctx)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return struct{}{}, err
		}
		if resp.StatusCode >= 500 {
			return struct{}{}, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return struct{}{}, backoff.Permanent(fmt.Errorf("HTTP %d", resp.StatusCode))
		}
		if err := json.Unmarshal(body, out); err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return struct{}{}, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(requestTries),
	)
	if err != nil {
		return &SolverError{Provider: provider, Message: "request failed", Cause: err}
	}
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
