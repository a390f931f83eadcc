package inline

import (
	"fmt"
	"html/template"
	"sync"
	"time"
)

// SuccessTTL is how long a success notice stays next to its cell.
const SuccessTTL = 3 * time.Second

// Kind distinguishes success from error notices.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Placement is where a table layout inserts the notice relative to the cell.
type Placement string

const (
	PlacementSibling Placement = "sibling" // next to the cell content
	PlacementParent  Placement = "parent"  // child of the cell's parent
	PlacementRow     Placement = "row"     // child of the enclosing row
)

// Notice is one live feedback node.
type Notice struct {
	Cell      CellID
	Message   string
	Kind      Kind
	Placement Placement
	seq       uint64
}

// AfterFunc schedules f after d and returns a function stopping it.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Channel holds at most one notice per cell across all placements.
type Channel struct {
	placement Placement
	after     AfterFunc

	mu     sync.Mutex
	seq    uint64
	nodes  map[Placement]map[CellID]Notice
	timers map[CellID]func() bool
}

// NewChannel builds a channel inserting new notices at placement.
// after may be nil to use real timers.
func NewChannel(placement Placement, after AfterFunc) *Channel {
	if after == nil {
		after = realAfterFunc
	}
	if placement == "" {
		placement = PlacementSibling
	}
	return &Channel{
		placement: placement,
		after:     after,
		nodes: map[Placement]map[CellID]Notice{
			PlacementSibling: {},
			PlacementParent:  {},
			PlacementRow:     {},
		},
		timers: make(map[CellID]func() bool),
	}
}

// Show replaces any notice for id with a new one. Success notices clear
// themselves after SuccessTTL; error notices persist until cleared.
// POST: Exactly one notice exists for id
func (c *Channel) Show(id CellID, message string, kind Kind) Notice {
	return c.ShowAt(id, c.placement, message, kind)
}

// ShowAt is Show with an explicit placement.
func (c *Channel) ShowAt(id CellID, placement Placement, message string, kind Kind) Notice {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLocked(id)
	c.seq++
	n := Notice{Cell: id, Message: message, Kind: kind, Placement: placement, seq: c.seq}
	if _, ok := c.nodes[placement]; !ok {
		c.nodes[placement] = map[CellID]Notice{}
	}
	c.nodes[placement][id] = n

	if kind == KindSuccess {
		seq := n.seq
		c.timers[id] = c.after(SuccessTTL, func() { c.expire(id, seq) })
	}
	return n
}

// Clear removes the notice for id wherever it was inserted.
func (c *Channel) Clear(id CellID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked(id)
}

// Notice returns the live notice for id.
func (c *Channel) Notice(id CellID) (Notice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, nodes := range c.nodes {
		if n, ok := nodes[id]; ok {
			return n, true
		}
	}
	return Notice{}, false
}

// Count returns how many notices exist for id across placements.
func (c *Channel) Count(id CellID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, nodes := range c.nodes {
		if _, ok := nodes[id]; ok {
			count++
		}
	}
	return count
}

// Render returns the markup of the live notice for id, or nothing.
func (c *Channel) Render(id CellID) template.HTML {
	n, ok := c.Notice(id)
	if !ok {
		return ""
	}
	dismiss := ""
	if n.Kind == KindSuccess {
		dismiss = fmt.Sprintf(` data-dismiss-after="%d"`, SuccessTTL.Milliseconds())
	}
	return template.HTML(fmt.Sprintf(
		`<span class="inline-feedback inline-feedback-%s" role="status" data-cell="%s" data-placement="%s"%s>%s</span>`,
		n.Kind, template.HTMLEscapeString(id.String()), n.Placement, dismiss, template.HTMLEscapeString(n.Message),
	))
}

func (c *Channel) clearLocked(id CellID) {
	for _, nodes := range c.nodes {
		delete(nodes, id)
	}
	if stop, ok := c.timers[id]; ok {
		stop()
		delete(c.timers, id)
	}
}

// expire clears the notice only if it is still the one the timer was set for.
func (c *Channel) expire(id CellID, seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, nodes := range c.nodes {
		if n, ok := nodes[id]; ok && n.seq == seq {
			delete(nodes, id)
			delete(c.timers, id)
		}
	}
}
