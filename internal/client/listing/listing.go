// Package listing filters and sorts fetched records for display. Everything
// here is pure: inputs are never modified and equal keys keep their order.
package listing

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"staffdesk/internal/models"
)

type Order int

const (
	Asc Order = iota
	Desc
)

// Apply keeps the records accepted by keep (all when nil) and stably sorts
// them by compare (no sorting when nil).
func Apply[T any](records []T, keep func(T) bool, compare func(a, b T) int, order Order) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if keep == nil || keep(r) {
			out = append(out, r)
		}
	}
	if compare != nil {
		cmpFn := compare
		if order == Desc {
			cmpFn = func(a, b T) int { return compare(b, a) }
		}
		slices.SortStableFunc(out, cmpFn)
	}
	return out
}

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func compareFold(a, b string) int { return cmp.Compare(fold(a), fold(b)) }

func compareTime(a, b time.Time) int { return a.Compare(b) }

// compareOptTime orders missing times first.
func compareOptTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func contains(haystack, needle string) bool {
	return needle == "" || strings.Contains(fold(haystack), fold(needle))
}

func employeeName(e *models.Employee) string {
	if e == nil {
		return ""
	}
	return e.User.Name
}

// All matches any status.
const All = "all"

func statusMatches(want, got string) bool { return want == "" || want == All || want == got }

type DocumentQuery struct {
	Status       string
	Type         string
	EmployeeName string
	// SortBy is one of uploadDate, name, type, verificationStatus, employeeName.
	// Empty means newest upload first.
	SortBy string
	Order  Order
}

var documentSorts = map[string]func(a, b models.Document) int{
	"uploadDate":         func(a, b models.Document) int { return compareTime(a.CreatedAt, b.CreatedAt) },
	"name":               func(a, b models.Document) int { return compareFold(a.Name, b.Name) },
	"type":               func(a, b models.Document) int { return compareFold(a.Type, b.Type) },
	"verificationStatus": func(a, b models.Document) int { return compareFold(a.VerificationStatus, b.VerificationStatus) },
	"employeeName": func(a, b models.Document) int {
		return compareFold(employeeName(a.Employee), employeeName(b.Employee))
	},
}

func DocumentSortKeys() []string { return sortedKeys(documentSorts) }

func Documents(docs []models.Document, q DocumentQuery) []models.Document {
	keep := func(d models.Document) bool {
		return statusMatches(q.Status, d.VerificationStatus) &&
			(q.Type == "" || q.Type == All || strings.EqualFold(q.Type, d.Type)) &&
			contains(employeeName(d.Employee), q.EmployeeName)
	}
	sortBy, order := q.SortBy, q.Order
	if sortBy == "" {
		sortBy, order = "uploadDate", Desc
	}
	return Apply(docs, keep, documentSorts[sortBy], order)
}

type LocationQuery struct {
	Status       string
	EmployeeName string
	// SortBy is one of checkInTime, checkOutTime, employeeName, status, address.
	// Empty means latest check-in first.
	SortBy string
	Order  Order
}

var locationSorts = map[string]func(a, b models.LocationCheckIn) int{
	"checkInTime":  func(a, b models.LocationCheckIn) int { return compareTime(a.CheckInTime, b.CheckInTime) },
	"checkOutTime": func(a, b models.LocationCheckIn) int { return compareOptTime(a.CheckOutTime, b.CheckOutTime) },
	"status":       func(a, b models.LocationCheckIn) int { return compareFold(a.Status, b.Status) },
	"address":      func(a, b models.LocationCheckIn) int { return compareFold(a.Address, b.Address) },
	"employeeName": func(a, b models.LocationCheckIn) int {
		return compareFold(employeeName(a.Employee), employeeName(b.Employee))
	},
}

func LocationSortKeys() []string { return sortedKeys(locationSorts) }

func Locations(locs []models.LocationCheckIn, q LocationQuery) []models.LocationCheckIn {
	keep := func(l models.LocationCheckIn) bool {
		return statusMatches(q.Status, l.Status) && contains(employeeName(l.Employee), q.EmployeeName)
	}
	sortBy, order := q.SortBy, q.Order
	if sortBy == "" {
		sortBy, order = "checkInTime", Desc
	}
	return Apply(locs, keep, locationSorts[sortBy], order)
}

// OpenCheckIn returns the most recent check-in still open, if any.
func OpenCheckIn(locs []models.LocationCheckIn) (models.LocationCheckIn, bool) {
	open := Locations(locs, LocationQuery{Status: models.CheckedIn})
	if len(open) == 0 {
		return models.LocationCheckIn{}, false
	}
	return open[0], true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
