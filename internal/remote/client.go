// Package remote drives the inline editing engine against a running server
// over its JSON API, authenticated with the admin key.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"clubadmin/internal/application/tables"
	"clubadmin/internal/domain/audit"
	"clubadmin/internal/inline"
)

// DefaultTimeout bounds one HTTP round trip of the client.
const DefaultTimeout = 15 * time.Second

// maxBodyBytes bounds a response body.
const maxBodyBytes = 256 << 10

// Client errors
var (
	ErrNotFound     = errors.New("row not found")
	ErrUnauthorized = errors.New("admin key rejected by the server")
)

// Client talks to one clubadmin server.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	registry *tables.Registry
}

// New builds a client for the server at baseURL. httpClient may be nil.
// PRE: baseURL is an absolute http(s) URL
func New(baseURL, apiKey string, registry *tables.Registry, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		http:     httpClient,
		registry: registry,
	}, nil
}

type rowResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Row     map[string]string `json:"row"`
		Message string            `json:"message"`
	} `json:"data"`
}

// get issues an authenticated GET and returns the body of a 200 answer.
func (c *Client) get(ctx context.Context, endpoint, what string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", what, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", what, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", what, err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, ErrNotFound
	}
	return nil, fmt.Errorf("fetch %s: server answered %d", what, resp.StatusCode)
}

func (c *Client) endpoint(table, path string, id int64) string {
	return c.baseURL + "/api/" + url.PathEscape(table) + "/" + path + "?id=" + strconv.FormatInt(id, 10)
}

// Row fetches the raw values of one row.
func (c *Client) Row(ctx context.Context, table string, id int64) (inline.Row, error) {
	body, err := c.get(ctx, c.endpoint(table, "row", id), "row")
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var rr rowResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return nil, fmt.Errorf("decode row response: %w", err)
	}
	if !rr.Success {
		return nil, fmt.Errorf("fetch row: %s", rr.Data.Message)
	}
	return inline.Row(rr.Data.Row), nil
}

type historyResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Changes []audit.Change `json:"changes"`
		Message string         `json:"message"`
	} `json:"data"`
}

// History returns the recorded changes of one row, newest first. A zero
// limit uses the server default.
// PRE: table is registered
func (c *Client) History(ctx context.Context, table string, id int64, limit int) ([]audit.Change, error) {
	if _, err := c.registry.Formatter(table); err != nil {
		return nil, err
	}
	endpoint := c.endpoint(table, "history", id)
	if limit > 0 {
		endpoint += "&limit=" + strconv.Itoa(limit)
	}
	body, err := c.get(ctx, endpoint, "history")
	if err != nil {
		return nil, err
	}

	var hr historyResponse
	if err := json.Unmarshal(body, &hr); err != nil {
		return nil, fmt.Errorf("decode history response: %w", err)
	}
	if !hr.Success {
		return nil, fmt.Errorf("fetch history: %s", hr.Data.Message)
	}
	return hr.Data.Changes, nil
}

// Line is one field of a row as printed by the CLI.
type Line struct {
	Field      string
	Label      string
	Value      string
	Text       string
	Applicable bool
}

// Show returns the row's fields in catalogue order with terminal-friendly
// display text: badge labels for enumerated values, the not-applicable
// marker for gated-off fields.
func (c *Client) Show(ctx context.Context, table string, id int64) ([]Line, error) {
	f, err := c.registry.Formatter(table)
	if err != nil {
		return nil, err
	}
	row, err := c.Row(ctx, table, id)
	if err != nil {
		return nil, err
	}
	msgs := f.Labels().Messages()

	var lines []Line
	for _, def := range f.Catalogue().Fields() {
		l := Line{Field: def.Name, Label: def.Label, Value: row[def.Name], Applicable: def.Applicable(row)}
		switch {
		case !l.Applicable:
			l.Text = msgs.NotApplicable
		case l.Value == "":
			l.Text = msgs.Empty
		default:
			l.Text = l.Value
			if b, ok := f.Labels().Badge(def.Name, l.Value); ok {
				l.Text = b.Label
			}
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// Session is one opened cell with its controller and feedback.
type Session struct {
	Controller *inline.Controller
	Feedback   *inline.Channel
	Definition inline.FieldDefinition
}

// Message returns the live notice of the cell, if any.
func (s *Session) Message() (string, inline.Kind, bool) {
	n, ok := s.Feedback.Notice(s.Controller.Cell().ID)
	if !ok {
		return "", "", false
	}
	return n.Message, n.Kind, true
}

// Grid returns the choice grid of an open choice cell.
func (s *Session) Grid() (*inline.ChoiceGrid, bool) {
	ed, ok := s.Controller.Editor()
	if !ok {
		return nil, false
	}
	g, ok := ed.(*inline.ChoiceGrid)
	return g, ok
}

// Open loads the row and opens the cell (id, field) for editing. Saves go
// to the server's save endpoint with the admin key as Bearer token.
// PRE: table is registered
// POST: On success the controller is Editing
func (c *Client) Open(ctx context.Context, table string, id int64, field string) (*Session, error) {
	f, err := c.registry.Formatter(table)
	if err != nil {
		return nil, err
	}
	def, err := f.Catalogue().Lookup(field)
	if err != nil {
		return nil, err
	}
	row, err := c.Row(ctx, table, id)
	if err != nil {
		return nil, err
	}

	transport := inline.NewHTTPTransport(c.http, c.baseURL+"/api/"+url.PathEscape(table)+"/field", true)
	msgs := f.Labels().Messages()
	// Notices stay until the command prints them.
	feedback := inline.NewChannel(inline.PlacementSibling, func(time.Duration, func()) func() bool {
		return func() bool { return false }
	})
	ctrl, err := inline.NewController(inline.NewCell(f, id, def, row), inline.Deps{
		Formatter: f,
		Saver:     inline.NewCoordinator(table, transport, inline.StaticToken(c.apiKey), msgs.SaveFailed),
		Feedback:  feedback,
	})
	if err != nil {
		return nil, err
	}
	if _, err := ctrl.Open(); err != nil {
		return nil, err
	}
	return &Session{Controller: ctrl, Feedback: feedback, Definition: def}, nil
}
