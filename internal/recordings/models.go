package recordings

import "time"

// CategoryRecorder is the File category written by the recorder pipeline for
// HLS media segments. Other categories (snapshots, thumbnails) share the table.
const CategoryRecorder = "recorder"

// Camera is the per-camera configuration the engine needs.
type Camera struct {
	Identifier string `yaml:"identifier"`
	// Lookback is the pre-roll, in seconds, included before a recording start.
	Lookback int `yaml:"lookback"`
	// GapTolerance overrides the global adjacency tolerance when set.
	GapTolerance *float64 `yaml:"gap_tolerance"`
}

// LookbackDuration returns Lookback as a time.Duration.
func (c Camera) LookbackDuration() time.Duration {
	return time.Duration(c.Lookback) * time.Second
}

// Recording is one recording session. EndTime is nil while it is ongoing.
type Recording struct {
	ID               int64     `gorm:"primaryKey"`
	CameraIdentifier string    `gorm:"index;not null"`
	StartTime        time.Time `gorm:"not null"`
	EndTime          *time.Time
	TriggerType      string
	ThumbnailPath    string
	CreatedAt        time.Time
}

// Ended reports whether the recording has an end time.
func (r Recording) Ended() bool {
	return r.EndTime != nil
}

// Segment is a row of the files table: one file written by the recorder.
// Path is TierPath joined with Directory and Filename; Directory is relative
// to the tier root, so copies of one segment in different tiers share
// Directory and Filename.
type Segment struct {
	ID               int64 `gorm:"primaryKey"`
	TierID           int   `gorm:"not null;default:0"`
	TierPath         string
	CameraIdentifier string `gorm:"index:idx_files_camera_category_created,priority:1;not null"`
	Category         string `gorm:"index:idx_files_camera_category_created,priority:2;not null"`
	Path             string `gorm:"uniqueIndex;not null"`
	Directory        string
	Filename         string `gorm:"not null"`
	Size             int64
	CreatedAt        time.Time `gorm:"index:idx_files_camera_category_created,priority:3;not null"`
}

// TableName maps Segment onto the recorder pipeline's files table.
func (Segment) TableName() string { return "files" }

// SegmentMeta is a row of the files_meta table, keyed by segment path.
type SegmentMeta struct {
	ID        int64  `gorm:"primaryKey"`
	Path      string `gorm:"uniqueIndex;not null"`
	OrigCtime time.Time
	Meta      MetaDocument `gorm:"serializer:json"`
	CreatedAt time.Time
}

// TableName maps SegmentMeta onto the files_meta table.
func (SegmentMeta) TableName() string { return "files_meta" }

// MetaDocument is the JSON format metadata the recorder attaches to a file.
type MetaDocument struct {
	M3U8 M3U8Meta `json:"m3u8"`
}

// M3U8Meta carries the values copied into the playlist for a segment.
type M3U8Meta struct {
	EXTINF float64 `json:"EXTINF"`
}

// Entry is a segment paired with its metadata, if the metadata has landed.
type Entry struct {
	Segment Segment
	Meta    *SegmentMeta
}

// Pending reports whether the segment's metadata has not been written yet.
func (e Entry) Pending() bool {
	return e.Meta == nil
}

// Duration returns the segment duration, zero while pending.
func (e Entry) Duration() time.Duration {
	if e.Meta == nil {
		return 0
	}
	return time.Duration(e.Meta.Meta.M3U8.EXTINF * float64(time.Second))
}

// Seconds returns the EXTINF value of the segment.
func (e Entry) Seconds() float64 {
	if e.Meta == nil {
		return 0
	}
	return e.Meta.Meta.M3U8.EXTINF
}

// Start is the segment start timestamp.
func (e Entry) Start() time.Time {
	return e.Segment.CreatedAt
}

// End is the nominal end: start plus duration.
func (e Entry) End() time.Time {
	return e.Segment.CreatedAt.Add(e.Duration())
}

// TimeRange is a closed [Start, End] interval.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Timespan is a merged interval of continuous coverage.
type Timespan struct {
	Start time.Time
	End   time.Time
}
