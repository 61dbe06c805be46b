package recordings

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"nvr-hls/internal/platform/logger"
	"nvr-hls/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const playlistContentType = "application/vnd.apple.mpegurl"

// Handler exposes the recording HLS endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Routes mounts the handlers on r:
//
//	GET /{camera}/{recording_id}/index.m3u8
//	GET /{camera}/available_timespans?time_from=&time_to=
func (h *Handler) Routes(r chi.Router) {
	r.Get("/{camera}/available_timespans", h.GetAvailableTimespans)
	r.Get("/{camera}/{recording_id}/index.m3u8", h.GetPlaylist)
}

// TimespanResponse is one timespan in unix seconds.
type TimespanResponse struct {
	Start    int64 `json:"start"`
	End      int64 `json:"end"`
	Duration int64 `json:"duration"`
}

// TimespansResponse is the JSON body of the available timespans endpoint.
type TimespansResponse struct {
	Timespans []TimespanResponse `json:"timespans"`
}

// NewTimespansResponse encodes spans; an empty result is an empty array.
func NewTimespansResponse(spans []Timespan) TimespansResponse {
	resp := TimespansResponse{Timespans: make([]TimespanResponse, 0, len(spans))}
	for _, s := range spans {
		resp.Timespans = append(resp.Timespans, TimespanResponse{
			Start:    s.Start.Unix(),
			End:      s.End.Unix(),
			Duration: s.End.Unix() - s.Start.Unix(),
		})
	}
	return resp
}

// GetPlaylist handles GET /{camera}/{recording_id}/index.m3u8.
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	camera := chi.URLParam(r, "camera")
	id, err := strconv.ParseInt(chi.URLParam(r, "recording_id"), 10, 64)
	if camera == "" || err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	pl, err := h.svc.Playlist(r.Context(), camera, id)
	if err != nil {
		h.writeError(w, r, err, slog.String("camera", camera), slog.Int64("recording_id", id))
		return
	}

	logger.FromContext(r.Context(), h.log).Debug("playlist rendered",
		slog.String("camera", camera),
		slog.Int64("recording_id", id),
		slog.Int("segments", pl.Segments),
		slog.Int("discontinuities", pl.Discontinuities),
		slog.Int("pending", pl.Pending),
		slog.Bool("ended", pl.Ended))
	if h.metrics != nil {
		h.metrics.ObservePlaylist(pl.Segments, pl.Pending)
	}

	w.Header().Set("Content-Type", playlistContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(pl.Body))
}

// GetAvailableTimespans handles GET /{camera}/available_timespans.
// time_from and time_to are unix seconds.
func (h *Handler) GetAvailableTimespans(w http.ResponseWriter, r *http.Request) {
	camera := chi.URLParam(r, "camera")
	from, errFrom := strconv.ParseInt(r.URL.Query().Get("time_from"), 10, 64)
	to, errTo := strconv.ParseInt(r.URL.Query().Get("time_to"), 10, 64)
	if camera == "" || errFrom != nil || errTo != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	spans, err := h.svc.AvailableTimespans(r.Context(), camera, time.Unix(from, 0).UTC(), time.Unix(to, 0).UTC())
	if err != nil {
		h.writeError(w, r, err, slog.String("camera", camera), slog.Int64("time_from", from), slog.Int64("time_to", to))
		return
	}
	if h.metrics != nil {
		h.metrics.IncTimespanQueries()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(NewTimespansResponse(spans)); err != nil {
		h.log.Debug("write timespans", slog.String("error", err.Error()))
	}
}

// writeError maps core errors onto status codes. Storage failures are logged
// at error level; client errors only at debug.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, attrs ...any) {
	log := logger.FromContext(r.Context(), h.log).With(attrs...)
	switch {
	case errors.Is(err, ErrNotFound):
		log.Debug("not found", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, ErrInvalidRange):
		log.Debug("invalid range", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
	default:
		log.Error("segment store query failed", slog.String("error", err.Error()))
		if h.metrics != nil && errors.Is(err, ErrStorageUnavailable) {
			h.metrics.IncStorageErrors()
		}
		w.WriteHeader(http.StatusInternalServerError)
	}
}
