package recordings

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startsOf(entries []Entry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Start().Unix()-base.Unix())
	}
	return out
}

func TestInMemoryStore_GetRecording(t *testing.T) {
	s := recorderFixture().memStore()

	rec, err := s.GetRecording(context.Background(), testCamera, 1)
	require.NoError(t, err)
	assert.Equal(t, "object", rec.TriggerType)
	assert.True(t, rec.Ended())

	_, err = s.GetRecording(context.Background(), testCamera, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetRecording(context.Background(), "garage", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_ListSegments_overlap(t *testing.T) {
	s := recorderFixture().memStore()
	ctx := context.Background()

	tests := []struct {
		name string
		r    TimeRange
		want []int64
	}{
		{"whole_history", TimeRange{Start: at(-100), End: at(100)}, []int64{0, 10, 20, 30}},
		{"starts_mid_segment", TimeRange{Start: at(12), End: at(22)}, []int64{10, 20}},
		{"touching_edges", TimeRange{Start: at(5), End: at(10)}, []int64{0, 10}},
		{"inside_hole", TimeRange{Start: at(6), End: at(9)}, []int64{}},
		{"after_everything", TimeRange{Start: at(40), End: at(50)}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := s.ListSegments(ctx, testCamera, CategoryRecorder, tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, startsOf(entries))
		})
	}
}

func TestInMemoryStore_ListSegments_filters_category_and_camera(t *testing.T) {
	f := recorderFixture()
	f.addSegment("garage", at(10), 5, 0)
	s := f.memStore()

	entries, err := s.ListSegments(context.Background(), testCamera, "snapshot", TimeRange{Start: at(0), End: at(60)})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "snapshot.jpg", entries[0].Segment.Filename)

	entries, err = s.ListSegments(context.Background(), "garage", CategoryRecorder, TimeRange{Start: at(0), End: at(60)})
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, startsOf(entries))
}

func TestInMemoryStore_ListSegments_prefers_lowest_tier(t *testing.T) {
	f := &fixture{}
	f.addSegment(testCamera, at(0), 5, 1)
	f.addSegment(testCamera, at(0), 5, 0)
	f.addSegment(testCamera, at(5), 5, 2)
	f.addSegment(testCamera, at(5), 5, 1)
	s := f.memStore()

	entries, err := s.ListSegments(context.Background(), testCamera, CategoryRecorder, TimeRange{Start: at(0), End: at(10)})
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, 0, entries[0].Segment.TierID)
	assert.Equal(t, "/test/"+itoa(at(0).Unix())+".m4s", entries[0].Segment.Path)
	assert.Equal(t, 1, entries[1].Segment.TierID)
	assert.Equal(t, "/tier1/test/"+itoa(at(5).Unix())+".m4s", entries[1].Segment.Path)
}

func TestInMemoryStore_ListSegments_same_filename_other_directory(t *testing.T) {
	f := &fixture{}
	f.addSegment(testCamera, at(0), 5, 0)
	f.addSegment(testCamera, at(0), 5, 1)
	restarted := f.segments[0]
	restarted.Directory = testCamera + "/restart"
	restarted.Path = "/" + restarted.Directory + "/" + restarted.Filename
	f.segments = append(f.segments, restarted)
	s := f.memStore()

	entries, err := s.ListSegments(context.Background(), testCamera, CategoryRecorder, TimeRange{Start: at(0), End: at(10)})
	require.NoError(t, err)

	require.Len(t, entries, 2, "tier copies collapse, other directories do not")
	assert.Equal(t, "/test/"+itoa(at(0).Unix())+".m4s", entries[0].Segment.Path)
	assert.Equal(t, "/test/restart/"+itoa(at(0).Unix())+".m4s", entries[1].Segment.Path)
}

func TestInMemoryStore_ListSegments_pending(t *testing.T) {
	f := recorderFixture()
	f.addSegment(testCamera, at(3), 0, 0)
	f.addSegment(testCamera, at(-2), 0, 0)
	s := f.memStore()

	entries, err := s.ListSegments(context.Background(), testCamera, CategoryRecorder, TimeRange{Start: at(0), End: at(12)})
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 3, 10}, startsOf(entries), "a pending segment needs to start in range")
	assert.True(t, entries[1].Pending())
	assert.Zero(t, entries[1].Duration())
	assert.Equal(t, entries[1].Start(), entries[1].End())
}

func TestInMemoryStore_cancelled_context(t *testing.T) {
	s := recorderFixture().memStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListSegments(ctx, testCamera, CategoryRecorder, TimeRange{Start: at(0), End: at(10)})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.GetRecording(ctx, testCamera, 1)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestInMemoryStore_concurrent_writes_and_reads(t *testing.T) {
	s := NewInMemoryStore()
	s.PutRecording(Recording{ID: 1, CameraIdentifier: testCamera, StartTime: at(0)})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f := &fixture{}
		f.contiguousCluster(testCamera, at(0), 50, 1)
		for i := range f.segments {
			s.PutMeta(f.metas[i])
			s.PutSegment(f.segments[i])
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			entries, err := s.ListSegments(context.Background(), testCamera, CategoryRecorder, TimeRange{Start: at(0), End: at(60)})
			assert.NoError(t, err)
			for _, e := range entries {
				assert.False(t, e.Pending(), "metadata is written before its file")
			}
		}
	}()
	wg.Wait()

	entries, err := s.ListSegments(context.Background(), testCamera, CategoryRecorder, TimeRange{Start: at(0), End: at(60)})
	require.NoError(t, err)
	assert.Len(t, entries, 50)
}
