package inline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Form field names of the save contract.
const (
	FormEntityID  = "entity_id"
	FormField     = "field"
	FormValue     = "value"
	FormRequestID = "request_id"
)

// Request headers of the save contract.
const (
	HeaderCSRFToken = "X-CSRF-Token"
	HeaderRequestID = "X-Request-ID"
)

// maxEnvelopeBytes bounds the response body read for one save.
const maxEnvelopeBytes = 64 << 10

// HTTPTransport posts form-encoded saves and decodes the JSON envelope.
type HTTPTransport struct {
	Client   *http.Client
	Endpoint string

	// Bearer sends the token as "Authorization: Bearer <token>" instead of
	// the CSRF header.
	Bearer bool
}

// NewHTTPTransport builds a transport posting to endpoint with client
// (http.DefaultClient when nil).
func NewHTTPTransport(client *http.Client, endpoint string, bearer bool) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{Client: client, Endpoint: endpoint, Bearer: bearer}
}

// Post performs the round trip.
// PRE: t.Endpoint is an absolute URL
// POST: Returns an error only when no decodable envelope was received
func (t *HTTPTransport) Post(ctx context.Context, req SaveRequest) (Envelope, error) {
	form := url.Values{}
	form.Set(FormEntityID, strconv.FormatInt(req.Cell.EntityID, 10))
	form.Set(FormField, req.Cell.Field)
	form.Set(FormValue, req.Value)
	if req.RequestID != "" {
		form.Set(FormRequestID, req.RequestID)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Envelope{}, fmt.Errorf("build save request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	if req.RequestID != "" {
		httpReq.Header.Set(HeaderRequestID, req.RequestID)
	}
	if req.Token != "" {
		if t.Bearer {
			httpReq.Header.Set("Authorization", "Bearer "+req.Token)
		} else {
			httpReq.Header.Set(HeaderCSRFToken, req.Token)
		}
	}

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return Envelope{}, fmt.Errorf("send save request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeBytes))
	if err != nil {
		return Envelope{}, fmt.Errorf("read save response: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode save response (status %d): %w", resp.StatusCode, err)
	}
	return env, nil
}
