package recordings

import (
	"context"
	"math"
	"path"
	"strings"
	"time"

	"github.com/grafov/m3u8"
)

const (
	// DefaultTargetDuration is the #EXT-X-TARGETDURATION of a playlist with
	// no eligible segments.
	DefaultTargetDuration = 5

	// DefaultSegmentURLPrefix is prepended to a segment path to form its URI.
	DefaultSegmentURLPrefix = "/files"
)

// PlaylistRequest identifies the recording to build a playlist for.
type PlaylistRequest struct {
	Camera      string
	RecordingID int64
	Lookback    time.Duration
	Tolerance   time.Duration
	Now         time.Time
}

// Playlist is a rendered manifest plus what went into it.
type Playlist struct {
	Body            string
	Segments        int
	Discontinuities int
	Pending         int
	Ended           bool
}

// PlaylistBuilder renders the HLS playlist of one recording from the segments
// stored around it.
type PlaylistBuilder struct {
	store          SegmentStore
	targetDuration int
	urlPrefix      string
	initSegment    string
}

// PlaylistOption configures a PlaylistBuilder.
type PlaylistOption func(*PlaylistBuilder)

// WithDefaultTargetDuration sets the target duration used when no segment is
// eligible. Values <= 0 are ignored.
func WithDefaultTargetDuration(seconds int) PlaylistOption {
	return func(b *PlaylistBuilder) {
		if seconds > 0 {
			b.targetDuration = seconds
		}
	}
}

// WithSegmentURLPrefix sets the prefix joined to segment paths.
func WithSegmentURLPrefix(prefix string) PlaylistOption {
	return func(b *PlaylistBuilder) {
		b.urlPrefix = prefix
	}
}

// WithInitSegment adds an #EXT-X-MAP pointing at the named fMP4 init segment
// in the directory of the first emitted segment. Empty disables it.
func WithInitSegment(name string) PlaylistOption {
	return func(b *PlaylistBuilder) {
		b.initSegment = name
	}
}

// NewPlaylistBuilder returns a builder reading from store.
func NewPlaylistBuilder(store SegmentStore, opts ...PlaylistOption) *PlaylistBuilder {
	b := &PlaylistBuilder{
		store:          store,
		targetDuration: DefaultTargetDuration,
		urlPrefix:      DefaultSegmentURLPrefix,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Window returns the time range a recording's playlist covers: from the
// recording start minus the lookback to its end, or to now while ongoing.
func Window(rec Recording, lookback time.Duration, now time.Time) TimeRange {
	end := now
	if rec.EndTime != nil {
		end = *rec.EndTime
	}
	return TimeRange{Start: rec.StartTime.Add(-lookback), End: end}
}

// Build renders the playlist for req. It returns an error matching
// ErrNotFound for an unknown recording and ErrStorageUnavailable when the
// store fails.
func (b *PlaylistBuilder) Build(ctx context.Context, req PlaylistRequest) (Playlist, error) {
	rec, err := b.store.GetRecording(ctx, req.Camera, req.RecordingID)
	if err != nil {
		return Playlist{}, err
	}

	window := Window(rec, req.Lookback, req.Now)
	all, err := b.store.ListSegments(ctx, req.Camera, CategoryRecorder, window)
	if err != nil {
		return Playlist{}, err
	}

	entries := make([]Entry, 0, len(all))
	for _, e := range all {
		if !e.Pending() {
			entries = append(entries, e)
		}
	}

	pl, err := m3u8.NewMediaPlaylist(0, uint(max(len(entries), 1)))
	if err != nil {
		return Playlist{}, err
	}
	out := Playlist{Segments: len(entries), Pending: len(all) - len(entries)}

	if rec.Ended() {
		pl.MediaType = m3u8.VOD
	} else {
		pl.MediaType = m3u8.EVENT
	}
	if b.initSegment != "" && len(entries) > 0 {
		pl.SetDefaultMap(b.segmentURI(path.Join("/", entries[0].Segment.TierPath, entries[0].Segment.Directory, b.initSegment)), 0, 0)
	}

	gaps := GapAnalyzer{Tolerance: req.Tolerance}
	for i, boundary := range gaps.Boundaries(entries) {
		e := entries[i]
		if err := pl.Append(b.segmentURI(e.Segment.Path), e.Seconds(), ""); err != nil {
			return Playlist{}, err
		}
		if boundary == Discontinuous {
			if err := pl.SetDiscontinuity(); err != nil {
				return Playlist{}, err
			}
			out.Discontinuities++
		}
		if err := pl.SetProgramDateTime(e.Start()); err != nil {
			return Playlist{}, err
		}
	}
	pl.TargetDuration = float64(targetDuration(entries, b.targetDuration))

	if rec.Ended() && len(entries) > 0 && !entries[len(entries)-1].End().Before(window.End) {
		pl.Close()
		out.Ended = true
	}

	out.Body = pl.String()
	return out, nil
}

func (b *PlaylistBuilder) segmentURI(p string) string {
	if b.urlPrefix == "" {
		return p
	}
	return strings.TrimSuffix(b.urlPrefix, "/") + path.Join("/", p)
}

// targetDuration returns the ceiling of the longest segment duration, or
// fallback when there are no segments.
func targetDuration(entries []Entry, fallback int) int {
	longest := 0.0
	for _, e := range entries {
		longest = max(longest, e.Seconds())
	}
	if longest <= 0 {
		return fallback
	}
	return int(math.Ceil(longest))
}
