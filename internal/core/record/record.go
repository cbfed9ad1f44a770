// Package record defines the read-only unit of work the pipeline
// classifies. Records are fetched by an external collaborator and never
// mutated here
package record

import "time"

// Event kinds
const (
	KindCommit  = "commit"
	KindReview  = "review"
	KindComment = "comment"
)

// Event is one timestamped sub-event of a record
type Event struct {
	Kind        string
	AuthorLogin string
	Body        string
	OccurredAt  *time.Time // nil when the collaborator had no timestamp
}

// Record is one source-change record: title, body, and its ordered
// sub-events. CreatedAt is the baseline for relative-time annotation
type Record struct {
	ID        string
	Title     string
	Body      string
	CreatedAt time.Time
	Events    []Event
}

// CommitMessages returns the bodies of commit events in order
func (r Record) CommitMessages() []string {
	var out []string
	for _, e := range r.Events {
		if e.Kind == KindCommit && e.Body != "" {
			out = append(out, e.Body)
		}
	}
	return out
}

// AuthorLogins returns every sub-event author identity in order, with
// duplicates kept (callers dedupe if they care)
func (r Record) AuthorLogins() []string {
	var out []string
	for _, e := range r.Events {
		if e.AuthorLogin != "" {
			out = append(out, e.AuthorLogin)
		}
	}
	return out
}

// HoursOffset converts an event timestamp to a signed hours offset from
// the record creation time, rounded to one decimal. Missing timestamps
// return ok=false and must render as an explicit null, never zero
func (r Record) HoursOffset(e Event) (float64, bool) {
	if e.OccurredAt == nil || r.CreatedAt.IsZero() {
		return 0, false
	}
	h := e.OccurredAt.Sub(r.CreatedAt).Hours()
	// round half away from zero to one decimal
	if h >= 0 {
		return float64(int64(h*10+0.5)) / 10, true
	}
	return -float64(int64(-h*10+0.5)) / 10, true
}
