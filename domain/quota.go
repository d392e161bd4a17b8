package domain

import (
	"fmt"
	"time"
)

type LimitClass string

const (
	LimitChat     LimitClass = "chat"
	LimitReaction LimitClass = "reaction"
	LimitCursor   LimitClass = "cursor"
	LimitHTTP     LimitClass = "http"
)

// Limit is the configured budget of a limit class.
type Limit struct {
	Class  LimitClass
	Max    int
	Window time.Duration
}

// QuotaKey is the coordination store key of a subject in a limit class.
func QuotaKey(class LimitClass, subjectKey string) string {
	return fmt.Sprintf("ratelimit:%s:%s", class, subjectKey)
}

// QuotaWindow is the fixed-window record of a subject.
type QuotaWindow struct {
	SubjectKey         string
	WindowStartEpochMs int64
	WindowMs           int64
	Count              int
}

// Expired reports whether the window closed before now.
func (w QuotaWindow) Expired(now time.Time) bool {
	return now.UnixMilli() >= w.WindowStartEpochMs+w.WindowMs
}

// QuotaDecision is the answer of the ledger for one action.
// ResetAt is a conservative estimate: now + window, whatever the age of the
// oldest entry still counted.
// Degraded is set when the decision was made without the store (fail open).
type QuotaDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	Degraded  bool
}

// RetryAfter is the delay a rejected caller should wait, rounded up to the second.
func (d QuotaDecision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || !d.ResetAt.After(now) {
		return 0
	}
	wait := d.ResetAt.Sub(now)
	return (wait + time.Second - 1) / time.Second * time.Second
}
