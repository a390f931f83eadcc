package inline

import (
	"context"
	"sync"
	"time"
)

var fixedNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func testCatalogue() *Catalogue {
	return MustCatalogue("members",
		FieldDefinition{Name: "name", Type: FieldText},
		FieldDefinition{Name: "email", Type: FieldEmail},
		FieldDefinition{Name: "birth_date", Type: FieldDate, Display: DisplayAge},
		FieldDefinition{Name: "status", Type: FieldChoice, Options: []Option{
			{Value: "active", Label: "Active"},
			{Value: "inactive", Label: "Inactive"},
		}},
		FieldDefinition{Name: "role", Type: FieldChoice},
		FieldDefinition{Name: "payment_required", Type: FieldChoice, Options: []Option{
			{Value: "1", Label: "Yes"},
			{Value: "0", Label: "No"},
		}},
		FieldDefinition{Name: "payment_date", Type: FieldDate, Gate: "payment_required"},
		FieldDefinition{Name: "required", Type: FieldText, Enumerated: true, Options: []Option{
			{Value: "1", Label: "Yes"},
			{Value: "0", Label: "No"},
		}, HiddenWhen: Condition{Field: "row_type", Values: []string{"title"}}},
	)
}

func testLabels() Labels {
	return NewLabels(map[string]map[string]Badge{
		"status": {
			"active":   {Label: "Active", Color: "#28a745"},
			"inactive": {Label: "Inactive", Color: "#dc3545"},
		},
		"payment_required": {
			"1": {Label: "Yes", Color: "#28a745"},
			"0": {Label: "No", Color: "#6c757d"},
		},
	}, Messages{})
}

func testFormatter() *Formatter {
	return NewFormatter(testCatalogue(), testLabels(), WithClock(func() time.Time { return fixedNow }))
}

// fakeTimers records scheduled callbacks so tests can fire them.
type fakeTimers struct {
	mu    sync.Mutex
	calls []fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (ft *fakeTimers) AfterFunc(d time.Duration, f func()) func() bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	idx := len(ft.calls)
	ft.calls = append(ft.calls, fakeTimer{d: d, f: f})
	return func() bool {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		was := !ft.calls[idx].stopped
		ft.calls[idx].stopped = true
		return was
	}
}

// fire runs every timer that was not stopped.
func (ft *fakeTimers) fire() {
	ft.mu.Lock()
	var due []func()
	for i := range ft.calls {
		if !ft.calls[i].stopped {
			ft.calls[i].stopped = true
			due = append(due, ft.calls[i].f)
		}
	}
	ft.mu.Unlock()
	for _, f := range due {
		f()
	}
}

func (ft *fakeTimers) durations() []time.Duration {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	out := make([]time.Duration, 0, len(ft.calls))
	for _, c := range ft.calls {
		out = append(out, c.d)
	}
	return out
}

// scriptedTransport answers with a fixed envelope or error and counts calls.
type scriptedTransport struct {
	mu       sync.Mutex
	env      Envelope
	err      error
	requests []SaveRequest
	gate     chan struct{}
	entered  chan struct{}
}

func (s *scriptedTransport) Post(ctx context.Context, req SaveRequest) (Envelope, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	gate, entered := s.gate, s.entered
	s.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return s.env, s.err
}

func (s *scriptedTransport) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
