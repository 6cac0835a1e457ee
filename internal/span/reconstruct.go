package span

import "timetrack/internal/rawlog"

// DefaultMaxGap is the largest gap, in seconds, that still joins two records.
const DefaultMaxGap uint64 = 5 * 60

// Reconstructor folds raw log records into spans one record at a time.
//
// Records closer than MaxGap to the end of the current span extend it when
// they belong to the same project. When they belong to another project the
// ambiguous interval between the two is split at its midpoint. A gap of
// MaxGap or more closes the current span untouched and the next span starts
// exactly at the new record.
//
// The zero value is not usable; use NewReconstructor.
type Reconstructor struct {
	maxGap uint64
	cur    Span
	open   bool
	spans  []Span
}

// NewReconstructor returns a reconstructor using maxGap seconds.
// A maxGap of zero selects DefaultMaxGap.
func NewReconstructor(maxGap uint64) *Reconstructor {
	if maxGap == 0 {
		maxGap = DefaultMaxGap
	}
	return &Reconstructor{maxGap: maxGap, spans: []Span{}}
}

// Push folds one record into the current span.
func (r *Reconstructor) Push(log rawlog.RawLog) {
	t := log.Timestamp

	if !r.open {
		r.cur = Span{Project: log.Project, Start: t, End: t}
		r.open = true
		return
	}

	gap := saturatingSub(t, r.cur.End)

	switch {
	case gap >= r.maxGap:
		r.spans = append(r.spans, r.cur)
		r.cur = Span{Project: log.Project, Start: t, End: t}

	case log.Project == r.cur.Project:
		if t > r.cur.End {
			r.cur.End = t
		}

	default:
		mid := r.cur.End + gap/2
		r.cur.End = mid
		r.spans = append(r.spans, r.cur)
		end := t
		if end < mid {
			end = mid
		}
		r.cur = Span{Project: log.Project, Start: mid, End: end}
	}
}

// Finish emits the open span, if any, and returns every span produced.
// The reconstructor must not be used afterwards.
func (r *Reconstructor) Finish() []Span {
	if r.open {
		r.spans = append(r.spans, r.cur)
		r.open = false
	}
	return r.spans
}

// Reconstruct turns records, in arrival order, into spans.
// Empty input yields an empty, non-nil slice.
func Reconstruct(logs []rawlog.RawLog, maxGap uint64) []Span {
	r := NewReconstructor(maxGap)
	for _, log := range logs {
		r.Push(log)
	}
	return r.Finish()
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
