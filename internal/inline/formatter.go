package inline

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"
)

// Formatter maps raw field values to display markup. It has no mutable state;
// all interpolated text is escaped and only the wrappers below are raw markup.
type Formatter struct {
	catalogue *Catalogue
	labels    Labels
	now       func() time.Time
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithClock sets the clock used for age computation.
func WithClock(now func() time.Time) FormatterOption {
	return func(f *Formatter) { f.now = now }
}

// NewFormatter builds a formatter for the fields of cat.
func NewFormatter(cat *Catalogue, labels Labels, opts ...FormatterOption) *Formatter {
	f := &Formatter{catalogue: cat, labels: labels, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Labels returns the label configuration the formatter renders with.
func (f *Formatter) Labels() Labels { return f.labels }

// Catalogue returns the field catalogue.
func (f *Formatter) Catalogue() *Catalogue { return f.catalogue }

const (
	badgeMarkup       = `<span class="badge" style="background-color:%s">%s</span>`
	mailtoMarkup      = `<a href="mailto:%s">%s</a>`
	mutedMarkup       = `<span class="text-muted">%s</span>`
	notApplicableHTML = `<span class="text-muted na">%s</span>`
	ageMarkup         = `%s <small class="age">(%d %s)</small>`
)

// Format renders rawValue of fieldName without looking at the rest of the row.
// Unknown fields render as escaped text.
// PRE: none
// POST: Output is deterministic for a given clock reading
func (f *Formatter) Format(fieldName, rawValue string) template.HTML {
	def, ok := f.catalogue.Field(fieldName)
	if !ok {
		return f.text(rawValue)
	}
	switch def.DisplayKind() {
	case DisplayBadge:
		return f.badge(fieldName, rawValue)
	case DisplayEmail:
		return f.email(rawValue)
	case DisplayAge:
		return f.birthDate(rawValue, true)
	case DisplayDate:
		return f.birthDate(rawValue, false)
	}
	return f.text(rawValue)
}

// FormatRow renders fieldName from row, applying the field's gate and
// applicability rules before formatting the value.
func (f *Formatter) FormatRow(fieldName string, row Row) template.HTML {
	if def, ok := f.catalogue.Field(fieldName); ok && !def.Applicable(row) {
		return f.notApplicable()
	}
	return f.Format(fieldName, row[fieldName])
}

func (f *Formatter) escape(s string) string {
	return template.HTMLEscapeString(s)
}

func (f *Formatter) text(raw string) template.HTML {
	if strings.TrimSpace(raw) == "" {
		return template.HTML(fmt.Sprintf(mutedMarkup, f.escape(f.labels.Messages().Empty)))
	}
	return template.HTML(f.escape(raw))
}

func (f *Formatter) notApplicable() template.HTML {
	return template.HTML(fmt.Sprintf(notApplicableHTML, f.escape(f.labels.Messages().NotApplicable)))
}

func (f *Formatter) badge(field, raw string) template.HTML {
	b, _ := f.labels.Badge(field, raw)
	return template.HTML(fmt.Sprintf(badgeMarkup, f.escape(b.Color), f.escape(b.Label)))
}

func (f *Formatter) email(raw string) template.HTML {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return f.notApplicable()
	}
	e := f.escape(raw)
	return template.HTML(fmt.Sprintf(mailtoMarkup, e, e))
}

func (f *Formatter) birthDate(raw string, withAge bool) template.HTML {
	y, m, d, ok := parseISODate(raw)
	if !ok {
		return f.text(raw)
	}
	local := fmt.Sprintf("%02d/%02d/%04d", d, m, y)
	if !withAge {
		return template.HTML(f.escape(local))
	}
	age := ageAt(y, m, d, f.now())
	return template.HTML(fmt.Sprintf(ageMarkup, f.escape(local), age, f.escape(f.labels.Messages().AgeUnit)))
}

// parseISODate accepts "YYYY-MM-DD" optionally followed by a time part.
func parseISODate(raw string) (year, month, day int, ok bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) > 10 && (raw[10] == ' ' || raw[10] == 'T') {
		raw = raw[:10]
	}
	parts := strings.Split(raw, "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return 0, 0, 0, false
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, 0, 0, false
		}
		nums[i] = n
	}
	year, month, day = nums[0], nums[1], nums[2]
	if year == 0 || month < 1 || month > 12 || day < 1 {
		return 0, 0, 0, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

// ageAt returns completed years between the birth date and now.
func ageAt(year, month, day int, now time.Time) int {
	age := now.Year() - year
	if int(now.Month()) < month || (int(now.Month()) == month && now.Day() < day) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
