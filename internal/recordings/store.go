package recordings

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// SegmentStore is the read-only view over persisted recording, file and file
// metadata rows. Every call must observe a single consistent snapshot.
type SegmentStore interface {
	// ListSegments returns the segments of camera/category that overlap r,
	// ascending by created_at. Segments without metadata are included and
	// report Pending.
	ListSegments(ctx context.Context, camera, category string, r TimeRange) ([]Entry, error)

	// GetRecording returns the recording or an error matching ErrNotFound.
	GetRecording(ctx context.Context, camera string, id int64) (Recording, error)
}

// InMemoryStore is a concurrency-safe in-memory SegmentStore. Writers and
// readers share an RWMutex, so a ListSegments call never sees a half-applied
// insert.
type InMemoryStore struct {
	mu         sync.RWMutex
	recordings map[int64]Recording
	segments   map[string]Segment
	metas      map[string]SegmentMeta
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		recordings: make(map[int64]Recording),
		segments:   make(map[string]Segment),
		metas:      make(map[string]SegmentMeta),
	}
}

// PutRecording inserts or replaces a recording.
func (s *InMemoryStore) PutRecording(rec Recording) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordings[rec.ID] = rec
}

// PutSegment inserts or replaces a file row, keyed by path.
func (s *InMemoryStore) PutSegment(seg Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[seg.Path] = seg
}

// PutMeta inserts or replaces a file metadata row, keyed by path.
func (s *InMemoryStore) PutMeta(meta SegmentMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metas[meta.Path] = meta
}

// GetRecording implements SegmentStore.GetRecording.
func (s *InMemoryStore) GetRecording(ctx context.Context, camera string, id int64) (Recording, error) {
	if err := ctx.Err(); err != nil {
		return Recording{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.recordings[id]
	if !ok || rec.CameraIdentifier != camera {
		return Recording{}, fmt.Errorf("recording %d for camera %q: %w", id, camera, ErrNotFound)
	}
	return rec, nil
}

// ListSegments implements SegmentStore.ListSegments.
func (s *InMemoryStore) ListSegments(ctx context.Context, camera, category string, r TimeRange) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	segs := make([]Segment, 0, len(s.segments))
	for _, seg := range s.segments {
		if seg.CameraIdentifier != camera || seg.Category != category {
			continue
		}
		if seg.CreatedAt.After(r.End) {
			continue
		}
		segs = append(segs, seg)
	}

	entries := make([]Entry, 0, len(segs))
	for _, seg := range preferHottestTier(segs) {
		e := Entry{Segment: seg}
		if meta, ok := s.metas[seg.Path]; ok {
			e.Meta = &meta
		}
		entries = append(entries, e)
	}
	return overlapping(entries, r), nil
}

type tierKey struct {
	directory string
	filename  string
}

// preferHottestTier keeps one row per (directory, filename), the one with the
// lowest tier id, and returns the result ordered by created_at then path.
// Directory is relative to the tier root, so copies of a segment in different
// tiers share a key while same-named files in different directories do not.
func preferHottestTier(segs []Segment) []Segment {
	best := make(map[tierKey]Segment, len(segs))
	for _, seg := range segs {
		k := tierKey{directory: seg.Directory, filename: seg.Filename}
		cur, ok := best[k]
		if !ok || seg.TierID < cur.TierID || (seg.TierID == cur.TierID && seg.Path < cur.Path) {
			best[k] = seg
		}
	}

	out := make([]Segment, 0, len(best))
	for _, seg := range best {
		out = append(out, seg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Path < out[j].Path
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// overlapping restricts ordered entries to those overlapping r. A pending
// entry has no known end, so it must start inside r.
func overlapping(entries []Entry, r TimeRange) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if e.Start().After(r.End) {
			continue
		}
		if e.Pending() {
			if e.Start().Before(r.Start) {
				continue
			}
		} else if e.End().Before(r.Start) {
			continue
		}
		out = append(out, e)
	}
	return out
}
