package recordings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	// DefaultQueryTimeout bounds a single store call when no timeout is set.
	DefaultQueryTimeout = 5 * time.Second

	// DefaultSegmentSlack is how far before a range start the files query
	// reaches so that a segment started earlier but still playing at the
	// range start is found. It must be at least the longest segment duration.
	DefaultSegmentSlack = time.Minute
)

// GormStore is a SegmentStore over the recorder pipeline's SQL tables.
type GormStore struct {
	db      *gorm.DB
	timeout time.Duration
	slack   time.Duration
	txOpts  *sql.TxOptions
}

// GormStoreOption configures a GormStore.
type GormStoreOption func(*GormStore)

// WithQueryTimeout bounds every store call by d on top of the caller's context.
func WithQueryTimeout(d time.Duration) GormStoreOption {
	return func(s *GormStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSegmentSlack sets how far before the range start files are looked up.
func WithSegmentSlack(d time.Duration) GormStoreOption {
	return func(s *GormStore) {
		if d > 0 {
			s.slack = d
		}
	}
}

// NewGormStore returns a store reading through db.
func NewGormStore(db *gorm.DB, opts ...GormStoreOption) *GormStore {
	s := &GormStore{
		db:      db,
		timeout: DefaultQueryTimeout,
		slack:   DefaultSegmentSlack,
	}
	// SQLite transactions are serializable already; only server databases
	// get explicit isolation.
	if db.Dialector.Name() != "sqlite" {
		s.txOpts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the recordings, files and files_meta tables if missing.
// The recorder pipeline owns the schema in production; this is for local
// databases and tests.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Recording{}, &Segment{}, &SegmentMeta{})
}

// GetRecording implements SegmentStore.GetRecording.
func (s *GormStore) GetRecording(ctx context.Context, camera string, id int64) (Recording, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rec Recording
	err := s.db.WithContext(ctx).
		Where("camera_identifier = ? AND id = ?", camera, id).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Recording{}, fmt.Errorf("recording %d for camera %q: %w", id, camera, ErrNotFound)
	}
	if err != nil {
		return Recording{}, fmt.Errorf("%w: get recording %d: %w", ErrStorageUnavailable, id, err)
	}
	return rec, nil
}

// segmentRow is one files row with the files_meta columns of the same path,
// all NULL while the segment is pending.
type segmentRow struct {
	Segment
	MetaID        *int64
	MetaOrigCtime *time.Time
	MetaDocument  MetaDocument `gorm:"serializer:json"`
	MetaCreatedAt *time.Time
}

func (r segmentRow) entry() Entry {
	e := Entry{Segment: r.Segment}
	if r.MetaID != nil {
		e.Meta = &SegmentMeta{ID: *r.MetaID, Path: r.Segment.Path, Meta: r.MetaDocument}
		if r.MetaOrigCtime != nil {
			e.Meta.OrigCtime = *r.MetaOrigCtime
		}
		if r.MetaCreatedAt != nil {
			e.Meta.CreatedAt = *r.MetaCreatedAt
		}
	}
	return e
}

const segmentColumns = "files.*, " +
	"files_meta.id AS meta_id, " +
	"files_meta.orig_ctime AS meta_orig_ctime, " +
	"files_meta.meta AS meta_document, " +
	"files_meta.created_at AS meta_created_at"

// ListSegments implements SegmentStore.ListSegments. Files are joined to
// their metadata in a single statement inside a read-only transaction, so a
// file and its metadata always come from the same snapshot and the query
// binds a fixed number of parameters whatever the range holds.
func (s *GormStore) ListSegments(ctx context.Context, camera, category string, r TimeRange) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []segmentRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table("files").
			Select(segmentColumns).
			Joins("LEFT JOIN files_meta ON files_meta.path = files.path").
			Where("files.camera_identifier = ? AND files.category = ?", camera, category).
			Where("files.created_at >= ? AND files.created_at <= ?", r.Start.Add(-s.slack), r.End).
			Order("files.created_at ASC").Order("files.tier_id ASC").
			Scan(&rows).Error
	}, s.txOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: list segments for camera %q: %w", ErrStorageUnavailable, camera, err)
	}

	byPath := make(map[string]Entry, len(rows))
	segs := make([]Segment, 0, len(rows))
	for _, row := range rows {
		byPath[row.Segment.Path] = row.entry()
		segs = append(segs, row.Segment)
	}

	entries := make([]Entry, 0, len(segs))
	for _, seg := range preferHottestTier(segs) {
		entries = append(entries, byPath[seg.Path])
	}
	return overlapping(entries, r), nil
}

// Ping checks that the database answers.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}
