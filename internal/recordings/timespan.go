package recordings

import (
	"context"
	"fmt"
	"time"
)

// TimespanMerger folds a camera's recorder segments into intervals of
// continuous coverage.
type TimespanMerger struct {
	store SegmentStore
}

// NewTimespanMerger returns a merger reading from store.
func NewTimespanMerger(store SegmentStore) *TimespanMerger {
	return &TimespanMerger{store: store}
}

// Merge returns the ascending, non-overlapping timespans of recorder coverage
// for camera within [from, to]. A to earlier than from fails with
// ErrInvalidRange before the store is queried.
func (m *TimespanMerger) Merge(ctx context.Context, camera string, from, to time.Time, tolerance time.Duration) ([]Timespan, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("time_to %d before time_from %d: %w", to.Unix(), from.Unix(), ErrInvalidRange)
	}

	all, err := m.store.ListSegments(ctx, camera, CategoryRecorder, TimeRange{Start: from, End: to})
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(all))
	for _, e := range all {
		if !e.Pending() {
			entries = append(entries, e)
		}
	}

	return clip(MergeEntries(entries, GapAnalyzer{Tolerance: tolerance}), from, to), nil
}

// MergeEntries folds ordered, non-pending entries into timespans. An entry
// extends the open timespan when it follows the open timespan's end within
// the analyzer's tolerance, so a segment nested in a longer one never splits
// it.
func MergeEntries(entries []Entry, gaps GapAnalyzer) []Timespan {
	var (
		spans []Timespan
		open  Timespan
	)
	for i, e := range entries {
		if i > 0 && gaps.Follows(open.End, e) {
			if end := e.End(); end.After(open.End) {
				open.End = end
			}
			continue
		}
		if i > 0 {
			spans = append(spans, open)
		}
		open = Timespan{Start: e.Start(), End: e.End()}
	}
	if len(entries) > 0 {
		spans = append(spans, open)
	}
	return spans
}

// clip bounds every span to [from, to] and drops the ones left empty.
func clip(spans []Timespan, from, to time.Time) []Timespan {
	out := make([]Timespan, 0, len(spans))
	for _, s := range spans {
		if s.Start.Before(from) {
			s.Start = from
		}
		if s.End.After(to) {
			s.End = to
		}
		if !s.End.After(s.Start) {
			continue
		}
		out = append(out, s)
	}
	return out
}
