// Command hlsctl renders recording playlists and available timespans straight
// from the recorder database, without running the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"nvr-hls/internal/platform/config"
	"nvr-hls/internal/platform/database"
	"nvr-hls/internal/platform/logger"
	"nvr-hls/internal/recordings"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	cfg      config.Settings
	camera   string
	lookback int
}

func newRootCmd() *cobra.Command {
	_ = config.Load()
	opts := &options{cfg: config.FromEnv()}

	root := &cobra.Command{
		Use:          "hlsctl",
		Short:        "Inspect recorder segments as HLS playlists and timespans",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.cfg.DatabaseDSN, "dsn", opts.cfg.DatabaseDSN, "database DSN (SQLite path, postgres://, mysql://)")
	root.PersistentFlags().StringVar(&opts.camera, "camera", "", "camera identifier")
	root.PersistentFlags().IntVar(&opts.lookback, "lookback", 5, "lookback seconds before the recording start")
	root.PersistentFlags().DurationVar(&opts.cfg.GapTolerance, "gap-tolerance", opts.cfg.GapTolerance, "adjacency tolerance between segments")
	_ = root.MarkPersistentFlagRequired("camera")

	root.AddCommand(newPlaylistCmd(opts), newTimespansCmd(opts))
	return root
}

func newPlaylistCmd(opts *options) *cobra.Command {
	var recordingID int64
	cmd := &cobra.Command{
		Use:   "playlist",
		Short: "Print the HLS playlist of one recording",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), opts, func(ctx context.Context, svc *recordings.Service) error {
				pl, err := svc.Playlist(ctx, opts.camera, recordingID)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), pl.Body)
				return err
			})
		},
	}
	cmd.Flags().Int64Var(&recordingID, "recording", 0, "recording id")
	_ = cmd.MarkFlagRequired("recording")
	return cmd
}

func newTimespansCmd(opts *options) *cobra.Command {
	var from, to int64
	cmd := &cobra.Command{
		Use:   "timespans",
		Short: "Print available timespans as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), opts, func(ctx context.Context, svc *recordings.Service) error {
				spans, err := svc.AvailableTimespans(ctx, opts.camera, time.Unix(from, 0).UTC(), time.Unix(to, 0).UTC())
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(recordings.NewTimespansResponse(spans))
			})
		},
	}
	cmd.Flags().Int64Var(&from, "from", 0, "range start, unix seconds")
	cmd.Flags().Int64Var(&to, "to", time.Now().Unix(), "range end, unix seconds")
	return cmd
}

// withService opens the database, builds a single-camera Service from the
// flags and runs fn with it.
func withService(ctx context.Context, opts *options, fn func(context.Context, *recordings.Service) error) error {
	log := logger.NewWithWriter(os.Stderr, opts.cfg.LogLevel, "text")

	db, err := database.Open(opts.cfg.DatabaseDSN, log)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	cameras, err := recordings.NewCameraRegistry(recordings.Camera{
		Identifier: opts.camera,
		Lookback:   opts.lookback,
	})
	if err != nil {
		return err
	}

	store := recordings.NewGormStore(db,
		recordings.WithQueryTimeout(opts.cfg.QueryTimeout),
		recordings.WithSegmentSlack(opts.cfg.SegmentSlack),
	)
	builder := recordings.NewPlaylistBuilder(store,
		recordings.WithDefaultTargetDuration(opts.cfg.TargetDuration),
		recordings.WithSegmentURLPrefix(opts.cfg.URLPrefix),
		recordings.WithInitSegment(opts.cfg.InitSegment),
	)
	svc := recordings.NewService(cameras, builder, recordings.NewTimespanMerger(store),
		recordings.WithGapTolerance(opts.cfg.GapTolerance),
	)
	return fn(ctx, svc)
}
