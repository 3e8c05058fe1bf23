package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/monkedh/sentinel/internal/version"
)

// maxErrorBodyBytes bounds how much of a non-2xx body we read into a
// ClientError, so a misbehaving collaborator can't balloon memory.
const maxErrorBodyBytes = 4096

// base is embedded by every remote client: a configured *http.Client, a
// base URL, and an outbound rate limiter.
type base struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

func newBase(baseURL string, timeout time.Duration, limiter *rate.Limiter) base {
	return base{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		limiter:    limiter,
	}
}

// postJSON POSTs body as JSON to b.baseURL+path and decodes a JSON response
// into out. Non-2xx responses become BadStatus; transport failures are
// classified into Timeout/Unreachable.
func (b base) postJSON(ctx context.Context, path string, body, out any) *ClientError {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return classify(ctx, err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return decodeErr(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return decodeErr(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.Full())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return badStatus(resp, string(errBody))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return decodeErr(err)
	}
	return nil
}

// getJSON GETs b.baseURL+path and decodes a JSON response into out.
func (b base) getJSON(ctx context.Context, path string, out any) *ClientError {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return classify(ctx, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return decodeErr(err)
	}
	req.Header.Set("User-Agent", version.Full())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return badStatus(resp, string(errBody))
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return decodeErr(err)
	}
	return nil
}
