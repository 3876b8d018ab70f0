package service

import (
	"errors"
	"slices"
	"strings"

	"github.com/tree-sitter-grammars/tree-sitter-grammars/internal/gitsync"
)

type State string

const (
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Outcome is the result of synchronizing one entry.
type Outcome struct {
	Name            string  `json:"name"`
	Source          string  `json:"source"`
	Pinned          string  `json:"pinned,omitempty"`
	State           State   `json:"state"`
	Reason          string  `json:"reason,omitempty"` // clone_failed or checkout_failed
	Head            string  `json:"head,omitempty"`
	Removal         string  `json:"removal"`
	Error           string  `json:"error,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`

	Err error `json:"-"`
}

func (o *Outcome) Failed() bool {
	return o.State == StateFailed
}

func reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, gitsync.ErrCheckoutFailed):
		return "checkout_failed"
	default:
		return "clone_failed"
	}
}

// Report holds the outcomes of a run, sorted by entry name.
type Report struct {
	Selector string    `json:"selector"`
	Outcomes []Outcome `json:"outcomes"`
}

func newReport(selector string, outcomes map[string]Outcome) *Report {
	r := &Report{Selector: selector, Outcomes: make([]Outcome, 0, len(outcomes))}
	for _, o := range outcomes {
		r.Outcomes = append(r.Outcomes, o)
	}
	slices.SortFunc(r.Outcomes, func(a, b Outcome) int {
		return strings.Compare(a.Name, b.Name)
	})
	return r
}

// Failed returns the names of the entries that did not synchronize, in order.
func (r *Report) Failed() []string {
	var names []string
	for _, o := range r.Outcomes {
		if o.Failed() {
			names = append(names, o.Name)
		}
	}
	return names
}

func (r *Report) counts() (succeeded, failed int) {
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed++
		} else {
			succeeded++
		}
	}
	return succeeded, failed
}
