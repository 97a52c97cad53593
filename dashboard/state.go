package dashboard

import (
	"time"

	"github.com/seo-optimizer/dashboard/store"
)

// State is an immutable snapshot of the records a client has loaded. Every
// operation returns a new State and leaves its input untouched.
type State struct {
	records  []store.Record
	filter   store.Filter
	loadedAt time.Time
}

// NewState returns an empty state showing active (non-archived) records
func NewState() State {
	return State{filter: store.Filter{Archived: store.Bool(false)}}
}

// Records returns a copy of the loaded records, newest first
func (s State) Records() []store.Record {
	out := make([]store.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Filter returns the filter the records were loaded with
func (s State) Filter() store.Filter {
	return s.filter
}

// LoadedAt returns when the records were last loaded from the store
func (s State) LoadedAt() time.Time {
	return s.loadedAt
}

// Len returns the number of loaded records
func (s State) Len() int {
	return len(s.records)
}

func (s State) withRecords(records []store.Record, filter store.Filter) State {
	return State{records: records, filter: filter, loadedAt: time.Now()}
}

// prepend adds r in front when it belongs to the current view
func (s State) prepend(r store.Record) State {
	if !matches(s.filter, r) {
		return s
	}
	records := make([]store.Record, 0, len(s.records)+1)
	records = append(records, r)
	records = append(records, s.records...)
	return State{records: records, filter: s.filter, loadedAt: s.loadedAt}
}

// without drops every record for which drop returns true
func (s State) without(drop func(store.Record) bool) State {
	records := make([]store.Record, 0, len(s.records))
	for _, r := range s.records {
		if !drop(r) {
			records = append(records, r)
		}
	}
	return State{records: records, filter: s.filter, loadedAt: s.loadedAt}
}

// mapRecords applies fn to copies of every record, then drops the ones that
// left the view
func (s State) mapRecords(fn func(store.Record) store.Record) State {
	records := make([]store.Record, 0, len(s.records))
	for _, r := range s.records {
		if updated := fn(r); matches(s.filter, updated) {
			records = append(records, updated)
		}
	}
	return State{records: records, filter: s.filter, loadedAt: s.loadedAt}
}

// matches mirrors the store's filter semantics for a single record
func matches(f store.Filter, r store.Record) bool {
	if f.ID != "" && f.ID != r.ID {
		return false
	}
	if f.URL != "" && f.URL != r.URL {
		return false
	}
	if f.Company != nil && *f.Company != r.Company {
		return false
	}
	if f.Archived != nil && *f.Archived != r.Archived {
		return false
	}
	return true
}
