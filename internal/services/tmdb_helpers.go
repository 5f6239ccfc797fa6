package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/amaumene/movieshelf/internal/errors"
	"github.com/amaumene/movieshelf/internal/models"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// get performs an authenticated GET against endpoint and decodes the JSON
// body into dest.
func (t *TMDB) get(ctx context.Context, endpoint string, params url.Values, dest any) error {
	if t.apiKey == "" {
		return apperrors.NewConfigurationError("TMDB API key not configured", nil)
	}

	if err := t.rateLimiter.Wait(ctx); err != nil {
		return apperrors.NewTransportError(endpoint, err)
	}

	if params == nil {
		params = url.Values{}
	}
	// TMDB v3 only accepts the key as a query parameter
	params.Set("api_key", t.apiKey)
	apiURL := t.baseURL + endpoint + "?" + params.Encode()

	t.logger.Debugf("[TMDB] GET %s", t.redact(apiURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return apperrors.NewTransportError(endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return t.classifyTransportError(endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := t.parseAPIError(resp, endpoint)
		t.logger.Warnf("[TMDB] %v", apiErr)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return apperrors.NewDecodeError(endpoint+" response", err)
	}
	return nil
}

// classifyTransportError maps a failed round trip to a timeout or transport
// error, removing the API key from the wrapped URL error.
func (t *TMDB) classifyTransportError(endpoint string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = t.redact(urlErr.URL)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.NewTimeoutError(endpoint, err)
	}
	return apperrors.NewTransportError(endpoint, err)
}

// parseAPIError builds an APIError, using TMDB's status_message when the
// body has the TMDB error shape.
func (t *TMDB) parseAPIError(resp *http.Response, endpoint string) *apperrors.APIError {
	apiErr := &apperrors.APIError{
		StatusCode:    resp.StatusCode,
		StatusMessage: http.StatusText(resp.StatusCode),
		Endpoint:      endpoint,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var tmdbErr models.APIErrorBody
	if err := json.Unmarshal(body, &tmdbErr); err == nil && tmdbErr.StatusMessage != "" {
		apiErr.StatusMessage = tmdbErr.StatusMessage
	}
	return apiErr
}

func (t *TMDB) redact(s string) string {
	if t.apiKey == "" {
		return s
	}
	return strings.ReplaceAll(s, t.apiKey, t.validator.MaskAPIKey(t.apiKey))
}

// ImageURL joins base, size and path as {base}/{size}{path}. A nil or empty
// path yields "".
func ImageURL(base string, path *string, size string) string {
	if path == nil || *path == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + size + *path
}
