package inline

// Badge is the label and color shown for one enumerated value.
type Badge struct {
	Label string
	Color string
}

// NeutralColor is used for values missing from a badge table.
const NeutralColor = "#6c757d"

// Messages are the user-facing strings of the engine.
type Messages struct {
	NotApplicable string
	Empty         string
	Saved         string
	SaveFailed    string
	Saving        string
	Cancel        string
	AgeUnit       string
}

// DefaultMessages returns the built-in English strings.
func DefaultMessages() Messages {
	return Messages{
		NotApplicable: "N/A",
		Empty:         "—",
		Saved:         "Saved",
		SaveFailed:    "Could not save the change",
		Saving:        "Saving…",
		Cancel:        "Cancel",
		AgeUnit:       "years",
	}
}

// Labels is the immutable display configuration shared by all formatters.
// It is built once at startup; accessors hand out copies.
type Labels struct {
	badges   map[string]map[string]Badge
	messages Messages
}

// NewLabels builds a Labels value. badges is keyed by field name, then raw value.
// Empty message strings fall back to DefaultMessages.
// POST: The returned value shares no maps with the arguments
func NewLabels(badges map[string]map[string]Badge, msgs Messages) Labels {
	copied := make(map[string]map[string]Badge, len(badges))
	for field, table := range badges {
		t := make(map[string]Badge, len(table))
		for value, b := range table {
			t[value] = b
		}
		copied[field] = t
	}
	return Labels{badges: copied, messages: mergeMessages(msgs, DefaultMessages())}
}

func mergeMessages(m, def Messages) Messages {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return Messages{
		NotApplicable: pick(m.NotApplicable, def.NotApplicable),
		Empty:         pick(m.Empty, def.Empty),
		Saved:         pick(m.Saved, def.Saved),
		SaveFailed:    pick(m.SaveFailed, def.SaveFailed),
		Saving:        pick(m.Saving, def.Saving),
		Cancel:        pick(m.Cancel, def.Cancel),
		AgeUnit:       pick(m.AgeUnit, def.AgeUnit),
	}
}

// Badge returns the badge for field/value. Unknown values yield the raw value
// with NeutralColor and ok=false.
func (l Labels) Badge(field, value string) (Badge, bool) {
	if b, ok := l.badges[field][value]; ok {
		if b.Color == "" {
			b.Color = NeutralColor
		}
		if b.Label == "" {
			b.Label = value
		}
		return b, true
	}
	return Badge{Label: value, Color: NeutralColor}, false
}

// Messages returns the configured strings.
func (l Labels) Messages() Messages {
	if l.messages == (Messages{}) {
		return DefaultMessages()
	}
	return l.messages
}

// OptionsFor derives grid options for field from its badge table, ordered
// like values.
func (l Labels) OptionsFor(field string, values ...string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		b, _ := l.Badge(field, v)
		out = append(out, Option{Value: v, Label: b.Label})
	}
	return out
}
