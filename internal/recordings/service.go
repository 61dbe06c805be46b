package recordings

import (
	"context"
	"time"
)

// Service answers the two read requests of the HLS API: the playlist of one
// recording and the available timespans of a camera. It holds no mutable
// state; every call reads the clock once and the store in its own snapshot.
type Service struct {
	cameras   *CameraRegistry
	builder   *PlaylistBuilder
	merger    *TimespanMerger
	clock     Clock
	tolerance time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) ServiceOption {
	return func(s *Service) {
		s.clock = c
	}
}

// WithGapTolerance sets the default adjacency tolerance for cameras without
// their own. Negative values are ignored.
func WithGapTolerance(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d >= 0 {
			s.tolerance = d
		}
	}
}

// NewService wires the builder and merger for cameras.
func NewService(cameras *CameraRegistry, builder *PlaylistBuilder, merger *TimespanMerger, opts ...ServiceOption) *Service {
	s := &Service{
		cameras: cameras,
		builder: builder,
		merger:  merger,
		clock:   SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Playlist renders the playlist of recording id for camera.
func (s *Service) Playlist(ctx context.Context, camera string, id int64) (Playlist, error) {
	cam, err := s.cameras.Get(camera)
	if err != nil {
		return Playlist{}, err
	}
	return s.builder.Build(ctx, PlaylistRequest{
		Camera:      cam.Identifier,
		RecordingID: id,
		Lookback:    cam.LookbackDuration(),
		Tolerance:   cam.Tolerance(s.tolerance),
		Now:         s.clock.Now(),
	})
}

// AvailableTimespans returns the merged recorder coverage of camera within
// [from, to].
func (s *Service) AvailableTimespans(ctx context.Context, camera string, from, to time.Time) ([]Timespan, error) {
	cam, err := s.cameras.Get(camera)
	if err != nil {
		return nil, err
	}
	return s.merger.Merge(ctx, cam.Identifier, from, to, cam.Tolerance(s.tolerance))
}

// Cameras returns the registry the service resolves identifiers against.
func (s *Service) Cameras() *CameraRegistry {
	return s.cameras
}
