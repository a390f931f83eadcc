// Package tables declares the editable tables of the admin screens: their
// field catalogues, default badge labels and formatters.
package tables

import (
	"errors"
	"fmt"
	"sort"

	"clubadmin/internal/application/listutil"
	"clubadmin/internal/domain/calendar"
	"clubadmin/internal/domain/member"
	"clubadmin/internal/inline"
)

// Table names, as they appear in URLs.
const (
	Members = "members"
	Events  = "events"
)

// ErrUnknownTable is returned for a table name no catalogue is registered for.
var ErrUnknownTable = errors.New("unknown table")

var yesNo = []string{"1", "0"}

// MemberSortColumns are the sort keys the member list accepts.
var MemberSortColumns = []string{"name", "email", "status", "role", "birth_date"}

// MemberList is what the paged member list accepts in its query string.
var MemberList = listutil.Spec{
	SortKeys: MemberSortColumns,
	Filters:  map[string][]string{member.FieldStatus: member.Statuses},
}

// MemberSortKey maps a member column to its sort key. Both name columns
// sort by last name then first name.
func MemberSortKey(field string) (string, bool) {
	switch field {
	case member.FieldFirstName, member.FieldLastName:
		return "name", true
	case member.FieldEmail, member.FieldStatus, member.FieldRole, member.FieldBirthDate:
		return field, true
	}
	return "", false
}

// DefaultBadges returns the built-in badge tables, keyed by field then value.
// Both tables share field names such as "status"; their value sets are disjoint.
func DefaultBadges() map[string]map[string]inline.Badge {
	return map[string]map[string]inline.Badge{
		member.FieldStatus: {
			member.StatusActive:   {Label: "Active", Color: "#198754"},
			member.StatusInactive: {Label: "Inactive", Color: "#6c757d"},
			member.StatusPending:  {Label: "Pending", Color: "#fd7e14"},
			member.StatusArchived: {Label: "Archived", Color: "#343a40"},

			calendar.StatusDraft:     {Label: "Draft", Color: "#adb5bd"},
			calendar.StatusOpen:      {Label: "Open", Color: "#0d6efd"},
			calendar.StatusClosed:    {Label: "Closed", Color: "#6c757d"},
			calendar.StatusCancelled: {Label: "Cancelled", Color: "#dc3545"},
		},
		member.FieldRole: {
			member.RoleMember:    {Label: "Member", Color: "#0dcaf0"},
			member.RoleVolunteer: {Label: "Volunteer", Color: "#20c997"},
			member.RoleCoach:     {Label: "Coach", Color: "#6610f2"},
			member.RoleBoard:     {Label: "Board", Color: "#d63384"},
		},
		member.FieldPaymentRequired: {
			"1": {Label: "Yes", Color: "#dc3545"},
			"0": {Label: "No", Color: "#198754"},
		},
		calendar.FieldRowType: {
			calendar.RowEvent: {Label: "Event", Color: "#0d6efd"},
			calendar.RowTitle: {Label: "Heading", Color: "#212529"},
		},
		calendar.FieldRegistrationRequired: {
			"1": {Label: "Yes", Color: "#0d6efd"},
			"0": {Label: "No", Color: "#6c757d"},
		},
		calendar.FieldRequiresPayment: {
			"1": {Label: "Yes", Color: "#dc3545"},
			"0": {Label: "No", Color: "#6c757d"},
		},
	}
}

// MemberCatalogue declares the editable columns of the member list.
func MemberCatalogue(l inline.Labels) *inline.Catalogue {
	return inline.MustCatalogue(Members,
		inline.FieldDefinition{Name: member.FieldFirstName, Label: "First name", Type: inline.FieldText},
		inline.FieldDefinition{Name: member.FieldLastName, Label: "Last name", Type: inline.FieldText},
		inline.FieldDefinition{Name: member.FieldEmail, Label: "Email", Type: inline.FieldEmail},
		inline.FieldDefinition{Name: member.FieldPhone, Label: "Phone", Type: inline.FieldText},
		inline.FieldDefinition{Name: member.FieldBirthDate, Label: "Birth date", Type: inline.FieldDate, Display: inline.DisplayAge},
		inline.FieldDefinition{
			Name: member.FieldStatus, Label: "Status", Type: inline.FieldChoice,
			Options: l.OptionsFor(member.FieldStatus, member.Statuses...),
		},
		inline.FieldDefinition{
			Name: member.FieldRole, Label: "Role", Type: inline.FieldChoice,
			Options: l.OptionsFor(member.FieldRole, member.Roles...),
		},
		inline.FieldDefinition{
			Name: member.FieldPaymentRequired, Label: "Payment due", Type: inline.FieldChoice,
			Options: l.OptionsFor(member.FieldPaymentRequired, yesNo...),
		},
		inline.FieldDefinition{
			Name: member.FieldPaymentDate, Label: "Paid on", Type: inline.FieldDate,
			Gate: member.FieldPaymentRequired,
		},
	)
}

// EventCatalogue declares the editable columns of the event list.
// Registration and payment columns do not apply to heading rows.
func EventCatalogue(l inline.Labels) *inline.Catalogue {
	titleRows := inline.Condition{Field: calendar.FieldRowType, Values: []string{calendar.RowTitle}}
	return inline.MustCatalogue(Events,
		inline.FieldDefinition{Name: calendar.FieldTitle, Label: "Title", Type: inline.FieldText},
		inline.FieldDefinition{
			Name: calendar.FieldRowType, Label: "Row", Type: inline.FieldChoice,
			Options: l.OptionsFor(calendar.FieldRowType, calendar.RowEvent, calendar.RowTitle),
		},
		inline.FieldDefinition{Name: calendar.FieldEventDate, Label: "Date", Type: inline.FieldDate, HiddenWhen: titleRows},
		inline.FieldDefinition{Name: calendar.FieldLocation, Label: "Location", Type: inline.FieldText, HiddenWhen: titleRows},
		inline.FieldDefinition{Name: calendar.FieldContactEmail, Label: "Contact", Type: inline.FieldEmail},
		inline.FieldDefinition{
			Name: calendar.FieldStatus, Label: "Status", Type: inline.FieldChoice,
			Options: l.OptionsFor(calendar.FieldStatus, calendar.Statuses...),
		},
		inline.FieldDefinition{
			Name: calendar.FieldRegistrationRequired, Label: "Registration", Type: inline.FieldText,
			Enumerated: true, HiddenWhen: titleRows,
			Options: l.OptionsFor(calendar.FieldRegistrationRequired, yesNo...),
		},
		inline.FieldDefinition{
			Name: calendar.FieldRequiresPayment, Label: "Payment", Type: inline.FieldChoice,
			HiddenWhen: titleRows,
			Options: l.OptionsFor(calendar.FieldRequiresPayment, yesNo...),
		},
		inline.FieldDefinition{
			Name: calendar.FieldPaymentDeadline, Label: "Pay by", Type: inline.FieldDate,
			Gate: calendar.FieldRequiresPayment, HiddenWhen: titleRows,
		},
	)
}

// Registry holds one formatter per table, built once at startup.
type Registry struct {
	formatters map[string]*inline.Formatter
}

// NewRegistry builds the catalogues and formatters of every table from labels.
// POST: Formatter succeeds for Members and Events
func NewRegistry(labels inline.Labels, opts ...inline.FormatterOption) *Registry {
	return &Registry{formatters: map[string]*inline.Formatter{
		Members: inline.NewFormatter(MemberCatalogue(labels), labels, opts...),
		Events:  inline.NewFormatter(EventCatalogue(labels), labels, opts...),
	}}
}

// Formatter returns the formatter of table.
func (r *Registry) Formatter(table string) (*inline.Formatter, error) {
	f, ok := r.formatters[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return f, nil
}

// Catalogue returns the field catalogue of table.
func (r *Registry) Catalogue(table string) (*inline.Catalogue, error) {
	f, err := r.Formatter(table)
	if err != nil {
		return nil, err
	}
	return f.Catalogue(), nil
}

// Names returns the registered table names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.formatters))
	for n := range r.formatters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
