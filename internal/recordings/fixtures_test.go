package recordings

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"nvr-hls/internal/platform/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// base is the fixture "now": every fixture timestamp is an offset from it.
var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

const testCamera = "test"

type fixture struct {
	recordings []Recording
	segments   []Segment
	metas      []SegmentMeta
}

func at(seconds int) time.Time {
	return base.Add(time.Duration(seconds) * time.Second)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// addSegment appends a recorder segment starting at start, stored under the
// root of tier (none for tier 0). A duration <= 0 leaves it without metadata
// (pending).
func (f *fixture) addSegment(camera string, start time.Time, duration float64, tier int) {
	filename := fmt.Sprintf("%d.m4s", start.Unix())
	var root string
	if tier > 0 {
		root = fmt.Sprintf("/tier%d", tier)
	}
	p := root + "/" + camera + "/" + filename
	f.segments = append(f.segments, Segment{
		TierID:           tier,
		TierPath:         root,
		CameraIdentifier: camera,
		Category:         CategoryRecorder,
		Path:             p,
		Directory:        camera,
		Filename:         filename,
		Size:             10,
		CreatedAt:        start,
	})
	if duration > 0 {
		f.metas = append(f.metas, SegmentMeta{
			Path:      p,
			OrigCtime: start,
			Meta:      MetaDocument{M3U8: M3U8Meta{EXTINF: duration}},
			CreatedAt: start,
		})
	}
}

// recorderFixture is the shared camera history:
//
//   - four 5 second segments at base+0, +10, +20 and +30, each separated
//     from the next by a 5 second hole;
//   - recording 1 from base+5 to base+25, whose 5 second lookback window
//     [base, base+25] covers the first three segments;
//   - recording 2 from base+120 to base+130, with no segments around it;
//   - a snapshot file that is not a recorder segment.
func recorderFixture() *fixture {
	f := &fixture{}
	for i := 0; i < 4; i++ {
		f.addSegment(testCamera, at(10*i), 5, 0)
	}
	f.recordings = append(f.recordings,
		Recording{ID: 1, CameraIdentifier: testCamera, StartTime: at(5), EndTime: timePtr(at(25)), TriggerType: "object"},
		Recording{ID: 2, CameraIdentifier: testCamera, StartTime: at(120), EndTime: timePtr(at(130)), TriggerType: "motion"},
	)
	f.segments = append(f.segments, Segment{
		CameraIdentifier: testCamera,
		Category:         "snapshot",
		Path:             "/test/snapshot.jpg",
		Directory:        testCamera,
		Filename:         "snapshot.jpg",
		CreatedAt:        at(12),
	})
	return f
}

// contiguousCluster adds n back-to-back segments of length seconds from start.
func (f *fixture) contiguousCluster(camera string, start time.Time, n int, length float64) {
	step := time.Duration(length * float64(time.Second))
	for i := 0; i < n; i++ {
		f.addSegment(camera, start.Add(time.Duration(i)*step), length, 0)
	}
}

func (f *fixture) memStore() *InMemoryStore {
	s := NewInMemoryStore()
	for _, r := range f.recordings {
		s.PutRecording(r)
	}
	for _, seg := range f.segments {
		s.PutSegment(seg)
	}
	for _, m := range f.metas {
		s.PutMeta(m)
	}
	return s
}

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.Open(filepath.Join(t.TempDir(), "recordings.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, Migrate(db))
	return db
}

func (f *fixture) sqliteStore(t *testing.T) (*GormStore, *gorm.DB) {
	t.Helper()
	db := newSQLiteDB(t)
	if len(f.recordings) > 0 {
		require.NoError(t, db.CreateInBatches(&f.recordings, 500).Error)
	}
	if len(f.segments) > 0 {
		require.NoError(t, db.CreateInBatches(&f.segments, 500).Error)
	}
	if len(f.metas) > 0 {
		require.NoError(t, db.CreateInBatches(&f.metas, 500).Error)
	}
	return NewGormStore(db), db
}

func newTestService(t *testing.T, store SegmentStore, now time.Time, opts ...ServiceOption) *Service {
	t.Helper()
	cameras, err := NewCameraRegistry(Camera{Identifier: testCamera, Lookback: 5})
	require.NoError(t, err)
	opts = append([]ServiceOption{WithClock(FixedClock(now))}, opts...)
	return NewService(cameras, NewPlaylistBuilder(store), NewTimespanMerger(store), opts...)
}

// failingStore fails every call the way an unreachable database does.
type failingStore struct {
	calls int
}

func (s *failingStore) ListSegments(context.Context, string, string, TimeRange) ([]Entry, error) {
	s.calls++
	return nil, fmt.Errorf("%w: dial tcp: connection refused", ErrStorageUnavailable)
}

func (s *failingStore) GetRecording(context.Context, string, int64) (Recording, error) {
	s.calls++
	return Recording{}, fmt.Errorf("%w: dial tcp: connection refused", ErrStorageUnavailable)
}
