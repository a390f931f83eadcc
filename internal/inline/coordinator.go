package inline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrSaveInFlight is reported when a save for the same cell is already running.
var ErrSaveInFlight = errors.New("a save for this cell is already in flight")

// SaveRequest is the payload of one save round trip.
type SaveRequest struct {
	RequestID string
	Table     string
	Cell      CellID
	Value     string
	Token     string
}

// Envelope is the tagged success/failure response of the save endpoint.
type Envelope struct {
	Success bool         `json:"success"`
	Data    EnvelopeData `json:"data"`
}

// EnvelopeData carries the normalised value on success and an optional
// human-readable message on failure.
type EnvelopeData struct {
	Value   *string `json:"value,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Succeed builds a success envelope echoing value.
func Succeed(value string) Envelope {
	return Envelope{Success: true, Data: EnvelopeData{Value: &value}}
}

// Fail builds a failure envelope carrying message.
func Fail(message string) Envelope {
	return Envelope{Success: false, Data: EnvelopeData{Message: message}}
}

// Transport performs one save round trip. A returned error means no usable
// response was received.
type Transport interface {
	Post(ctx context.Context, req SaveRequest) (Envelope, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req SaveRequest) (Envelope, error)

// Post calls f.
func (f TransportFunc) Post(ctx context.Context, req SaveRequest) (Envelope, error) {
	return f(ctx, req)
}

// TokenSource supplies the authentication token for a request.
type TokenSource func(ctx context.Context) string

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) TokenSource {
	return func(context.Context) string { return token }
}

// Outcome is the settled result of a save.
type Outcome struct {
	OK      bool
	Value   string
	Message string
	Dropped bool
}

// Saver is what a cell controller needs from the coordinator.
type Saver interface {
	Save(ctx context.Context, id CellID, value string) Outcome
}

// Coordinator serialises the round trip of each cell: at most one request is
// in flight per CellID, further attempts are dropped rather than queued.
type Coordinator struct {
	table     string
	transport Transport
	token     TokenSource
	fallback  string

	mu       sync.Mutex
	inflight map[CellID]struct{}
}

// NewCoordinator builds a coordinator for table. fallback is the message used
// when a failure carries none.
func NewCoordinator(table string, transport Transport, token TokenSource, fallback string) *Coordinator {
	if token == nil {
		token = StaticToken("")
	}
	if fallback == "" {
		fallback = DefaultMessages().SaveFailed
	}
	return &Coordinator{
		table:     table,
		transport: transport,
		token:     token,
		fallback:  fallback,
		inflight:  make(map[CellID]struct{}),
	}
}

// Save sends value for id and settles the outcome.
// PRE: id is valid
// POST: Exactly one transport call unless a save for id is already running,
// in which case Outcome.Dropped is set and no call is made.
// On success Outcome.Value is the server-echoed value (the sent value when
// the server echoes none).
func (c *Coordinator) Save(ctx context.Context, id CellID, value string) Outcome {
	if !c.acquire(id) {
		slog.Debug("inline_save_dropped", "table", c.table, "cell", id.String())
		return Outcome{Dropped: true, Message: ErrSaveInFlight.Error()}
	}
	defer c.release(id)

	req := SaveRequest{
		RequestID: uuid.NewString(),
		Table:     c.table,
		Cell:      id,
		Value:     value,
		Token:     c.token(ctx),
	}
	env, err := c.transport.Post(ctx, req)
	if err != nil {
		slog.Warn("inline_save_transport_error", "table", c.table, "cell", id.String(), "request_id", req.RequestID, "error", err.Error())
		return Outcome{Message: c.fallback}
	}
	if !env.Success {
		msg := strings.TrimSpace(env.Data.Message)
		if msg == "" {
			msg = c.fallback
		}
		slog.Info("inline_save_rejected", "table", c.table, "cell", id.String(), "request_id", req.RequestID, "message", msg)
		return Outcome{Message: msg}
	}
	confirmed := value
	if env.Data.Value != nil {
		confirmed = *env.Data.Value
	}
	return Outcome{OK: true, Value: confirmed}
}

// InFlight reports whether a save for id is currently running.
func (c *Coordinator) InFlight(id CellID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[id]
	return ok
}

func (c *Coordinator) acquire(id CellID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[id]; busy {
		return false
	}
	c.inflight[id] = struct{}{}
	return true
}

func (c *Coordinator) release(id CellID) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}
