// Package core provides ordering, filtering and duplicate stacking for notification stacks.
package core

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/jmylchreest/stackdraw/internal/model"
)

// SortField is the notification field an explicit ordering compares.
type SortField string

const (
	SortByTimestamp SortField = "timestamp"
	SortByApp       SortField = "app"
	SortByUrgency   SortField = "urgency"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions is an explicit ordering that overrides the stack order.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions orders oldest first, as items are stacked.
func DefaultSortOptions() SortOptions {
	return SortOptions{Field: SortByTimestamp, Order: SortAsc}
}

func (o SortOptions) compare(a, b *model.Notification) int {
	var c int
	switch o.Field {
	case SortByApp:
		c = cmp.Compare(strings.ToLower(a.AppName), strings.ToLower(b.AppName))
	case SortByUrgency:
		c = cmp.Compare(a.Urgency, b.Urgency)
	default:
		c = cmp.Compare(a.Timestamp, b.Timestamp)
	}
	if o.Order == SortDesc {
		return -c
	}
	return c
}

// Sort orders notifications in place. Equal items keep their input order.
func Sort(notifications []*model.Notification, opts SortOptions) {
	slices.SortStableFunc(notifications, opts.compare)
}

// SortForStack orders notifications for display: critical first, then by
// timestamp, then by ID.
func SortForStack(notifications []*model.Notification) {
	slices.SortStableFunc(notifications, func(a, b *model.Notification) int {
		aCrit := a.Urgency == model.UrgencyCritical
		bCrit := b.Urgency == model.UrgencyCritical
		switch {
		case aCrit && !bCrit:
			return -1
		case bCrit && !aCrit:
			return 1
		}
		return cmp.Or(cmp.Compare(a.Timestamp, b.Timestamp), strings.Compare(a.ID, b.ID))
	})
}

// ParseSortField accepts timestamp (time, t), app (appname, a) and urgency (u).
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "timestamp", "time", "t", "":
		return SortByTimestamp, nil
	case "app", "appname", "a":
		return SortByApp, nil
	case "urgency", "u":
		return SortByUrgency, nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// ParseSortOrder accepts asc (ascending, a) and desc (descending, d).
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "a", "":
		return SortAsc, nil
	case "desc", "descending", "d":
		return SortDesc, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// ParseSortOptions parses "field[:order]", e.g. "urgency:desc".
func ParseSortOptions(s string) (SortOptions, error) {
	field, order, _ := strings.Cut(s, ":")
	f, err := ParseSortField(field)
	if err != nil {
		return SortOptions{}, err
	}
	o, err := ParseSortOrder(order)
	if err != nil {
		return SortOptions{}, err
	}
	return SortOptions{Field: f, Order: o}, nil
}
