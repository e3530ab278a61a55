package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cogentcore.org/core/math32"

	"forcegraph/internal/codec"
	"forcegraph/internal/domain"
	"forcegraph/internal/engine"
	"forcegraph/internal/repository"
	"forcegraph/internal/service"
)

// MaxPayloadBytes bounds uploaded graph payloads.
const MaxPayloadBytes = 32 << 20

// LayoutHandler handles layout API requests
type LayoutHandler struct {
	svc *service.LayoutService
}

// NewLayoutHandler creates a new layout handler
func NewLayoutHandler(svc *service.LayoutService) *LayoutHandler {
	return &LayoutHandler{svc: svc}
}

// Register adds the API routes to mux.
func (h *LayoutHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/graph", h.GetGraph)
	mux.HandleFunc("POST /api/graph", h.IngestGraph)
	mux.HandleFunc("POST /api/reload", h.Reload)

	mux.HandleFunc("GET /api/config", h.GetConfig)
	mux.HandleFunc("PUT /api/config", h.UpdateConfig)
	mux.HandleFunc("GET /api/stats", h.GetStats)

	mux.HandleFunc("GET /api/snapshots", h.ListSnapshots)
	mux.HandleFunc("POST /api/snapshots", h.TakeSnapshot)
	mux.HandleFunc("GET /api/snapshots/{id}", h.GetSnapshot)
	mux.HandleFunc("DELETE /api/snapshots/{id}", h.DeleteSnapshot)

	mux.HandleFunc("PUT /api/camera", h.SetCamera)
	mux.HandleFunc("GET /api/tooltip", h.GetTooltip)
}

// Error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ConfigView is the JSON form of the engine configuration, without the
// payload.
type ConfigView struct {
	DataURL       string              `json:"data_url"`
	Dimensions    int                 `json:"dimensions"`
	NodeRelSize   float64             `json:"node_rel_size"`
	LineOpacity   float64             `json:"line_opacity"`
	AutoColorBy   string              `json:"auto_color_by"`
	Fields        domain.FieldMapping `json:"fields"`
	WarmupTicks   int                 `json:"warmup_ticks"`
	CooldownTicks *int                `json:"cooldown_ticks"`
	CooldownTime  int64               `json:"cooldown_time_ms"`
}

// ConfigPatch updates the configuration fields that are present.
type ConfigPatch struct {
	DataURL       *string              `json:"data_url"`
	Dimensions    *int                 `json:"dimensions"`
	NodeRelSize   *float64             `json:"node_rel_size"`
	LineOpacity   *float64             `json:"line_opacity"`
	AutoColorBy   *string              `json:"auto_color_by"`
	Fields        *domain.FieldMapping `json:"fields"`
	WarmupTicks   *int                 `json:"warmup_ticks"`
	CooldownTicks *int                 `json:"cooldown_ticks"`
	CooldownTime  *int64               `json:"cooldown_time_ms"`
}

// ReloadRequest names the payload to fetch. An empty URL reloads the
// configured one.
type ReloadRequest struct {
	URL string `json:"url"`
}

// CameraRequest aims the gaze ray.
type CameraRequest struct {
	Position [3]float32 `json:"position"`
	Target   [3]float32 `json:"target"`
}

// TooltipResponse carries the current tooltip text.
type TooltipResponse struct {
	Text string `json:"text"`
}

func newConfigView(cfg engine.Config) ConfigView {
	v := ConfigView{
		DataURL:      cfg.DataURL,
		Dimensions:   cfg.Dimensions,
		NodeRelSize:  cfg.NodeRelSize,
		LineOpacity:  cfg.LineOpacity,
		AutoColorBy:  cfg.AutoColorBy,
		Fields:       cfg.Fields,
		WarmupTicks:  cfg.WarmupTicks,
		CooldownTime: cfg.CooldownTime.Milliseconds(),
	}
	if cfg.CooldownTicks != engine.UnboundedTicks {
		ticks := cfg.CooldownTicks
		v.CooldownTicks = &ticks
	}
	return v
}

// apply merges the patch into cfg.
func (p ConfigPatch) apply(cfg engine.Config) (engine.Config, error) {
	if p.Dimensions != nil {
		if *p.Dimensions < 1 || *p.Dimensions > 3 {
			return cfg, fmt.Errorf("dimensions must be between 1 and 3, got %d", *p.Dimensions)
		}
		cfg.Dimensions = *p.Dimensions
	}
	if p.WarmupTicks != nil && *p.WarmupTicks < 0 {
		return cfg, fmt.Errorf("warmup_ticks must not be negative")
	}
	if p.DataURL != nil {
		cfg.DataURL = *p.DataURL
	}
	if p.NodeRelSize != nil {
		cfg.NodeRelSize = *p.NodeRelSize
	}
	if p.LineOpacity != nil {
		cfg.LineOpacity = *p.LineOpacity
	}
	if p.AutoColorBy != nil {
		cfg.AutoColorBy = *p.AutoColorBy
	}
	if p.Fields != nil {
		cfg.Fields = p.Fields.WithDefaults()
	}
	if p.WarmupTicks != nil {
		cfg.WarmupTicks = *p.WarmupTicks
	}
	if p.CooldownTicks != nil {
		cfg.CooldownTicks = *p.CooldownTicks
		if cfg.CooldownTicks < 0 {
			cfg.CooldownTicks = engine.UnboundedTicks
		}
	}
	if p.CooldownTime != nil {
		cfg.CooldownTime = time.Duration(*p.CooldownTime) * time.Millisecond
	}
	return cfg, nil
}

// GetGraph returns the current payload. ?format=yaml selects YAML.
func (h *LayoutHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Graph(r.Context())
	if err != nil {
		log.Printf("Failed to get graph: %v", err)
		h.writeError(w, "Failed to get graph", err.Error(), http.StatusServiceUnavailable)
		return
	}

	c, err := codec.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, "Invalid format", err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", c.ContentType())
	if err := c.Export(data, w); err != nil {
		log.Printf("Failed to export graph: %v", err)
	}
}

// IngestGraph replaces the payload with the request body, parsed by its
// Content-Type (JSON by default).
func (h *LayoutHandler) IngestGraph(w http.ResponseWriter, r *http.Request) {
	c := codec.ForContentType(r.Header.Get("Content-Type"), "payload."+r.URL.Query().Get("format"))

	data, err := c.Parse(http.MaxBytesReader(w, r.Body, MaxPayloadBytes))
	if err != nil {
		h.writeError(w, "Invalid graph payload", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.Ingest(r.Context(), data); err != nil {
		log.Printf("Failed to ingest graph: %v", err)
		h.writeError(w, "Failed to ingest graph", err.Error(), statusFor(err))
		return
	}

	h.writeStats(w, r, http.StatusAccepted)
}

// Reload starts an asynchronous fetch of the payload.
func (h *LayoutHandler) Reload(w http.ResponseWriter, r *http.Request) {
	var req ReloadRequest
	if err := decodeOptional(r.Body, &req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.Reload(r.Context(), req.URL); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		h.writeError(w, "Failed to reload graph", err.Error(), status)
		return
	}

	h.writeJSON(w, map[string]string{"status": "reload_started"}, http.StatusAccepted)
}

// GetConfig returns the engine configuration
func (h *LayoutHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.Config(r.Context())
	if err != nil {
		h.writeError(w, "Failed to get config", err.Error(), statusFor(err))
		return
	}
	h.writeJSON(w, newConfigView(cfg), http.StatusOK)
}

// UpdateConfig applies a partial configuration and re-ingests the payload
func (h *LayoutHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var patch ConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	cfg, err := h.svc.Config(r.Context())
	if err != nil {
		h.writeError(w, "Failed to get config", err.Error(), statusFor(err))
		return
	}

	cfg, err = patch.apply(cfg)
	if err != nil {
		h.writeError(w, "Invalid config", err.Error(), http.StatusBadRequest)
		return
	}
	// Keep the current payload; a changed URL triggers a fetch.
	cfg.Data = nil

	if err := h.svc.Configure(r.Context(), cfg); err != nil {
		log.Printf("Failed to update config: %v", err)
		h.writeError(w, "Failed to update config", err.Error(), statusFor(err))
		return
	}

	updated, err := h.svc.Config(r.Context())
	if err != nil {
		h.writeError(w, "Failed to get config", err.Error(), statusFor(err))
		return
	}
	h.writeJSON(w, newConfigView(updated), http.StatusOK)
}

// GetStats returns layout statistics
func (h *LayoutHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.writeStats(w, r, http.StatusOK)
}

// ListSnapshots returns stored snapshot summaries. ?limit=N bounds the list.
func (h *LayoutHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.writeError(w, "Invalid limit", s, http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := h.svc.ListSnapshots(r.Context(), limit)
	if err != nil {
		log.Printf("Failed to list snapshots: %v", err)
		h.writeError(w, "Failed to list snapshots", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, list, http.StatusOK)
}

// TakeSnapshot captures and stores the current layout
func (h *LayoutHandler) TakeSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.TakeSnapshot(r.Context())
	if err != nil {
		log.Printf("Failed to take snapshot: %v", err)
		h.writeError(w, "Failed to take snapshot", err.Error(), statusFor(err))
		return
	}
	h.writeJSON(w, snap, http.StatusCreated)
}

// GetSnapshot returns a stored snapshot. ?format=yaml selects YAML.
func (h *LayoutHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/snapshots/")
	if id == "" {
		h.writeError(w, "Invalid snapshot ID", "Snapshot ID is required", http.StatusBadRequest)
		return
	}

	c, err := codec.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, "Invalid format", err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := h.svc.GetSnapshot(r.Context(), id)
	if err != nil {
		h.writeError(w, "Failed to get snapshot", err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", c.ContentType())
	if err := c.ExportSnapshot(snap, w); err != nil {
		log.Printf("Failed to export snapshot: %v", err)
	}
}

// DeleteSnapshot removes a stored snapshot
func (h *LayoutHandler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/snapshots/")
	if id == "" {
		h.writeError(w, "Invalid snapshot ID", "Snapshot ID is required", http.StatusBadRequest)
		return
	}

	if err := h.svc.DeleteSnapshot(r.Context(), id); err != nil {
		h.writeError(w, "Failed to delete snapshot", err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCamera aims the camera and returns the resulting tooltip
func (h *LayoutHandler) SetCamera(w http.ResponseWriter, r *http.Request) {
	var req CameraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Position == req.Target {
		h.writeError(w, "Invalid camera", "position and target must differ", http.StatusBadRequest)
		return
	}

	position := math32.Vec3(req.Position[0], req.Position[1], req.Position[2])
	target := math32.Vec3(req.Target[0], req.Target[1], req.Target[2])
	if err := h.svc.SetCamera(r.Context(), position, target); err != nil {
		h.writeError(w, "Failed to set camera", err.Error(), statusFor(err))
		return
	}

	h.GetTooltip(w, r)
}

// GetTooltip resolves the gaze target and returns its label
func (h *LayoutHandler) GetTooltip(w http.ResponseWriter, r *http.Request) {
	text, err := h.svc.Tooltip(r.Context())
	if err != nil {
		h.writeError(w, "Failed to resolve tooltip", err.Error(), statusFor(err))
		return
	}
	h.writeJSON(w, TooltipResponse{Text: text}, http.StatusOK)
}

// Helper methods

func (h *LayoutHandler) writeStats(w http.ResponseWriter, r *http.Request, statusCode int) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.writeError(w, "Failed to get stats", err.Error(), statusFor(err))
		return
	}
	h.writeJSON(w, stats, statusCode)
}

func (h *LayoutHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *LayoutHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrStopped), errors.Is(err, engine.ErrDisposed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeOptional decodes a JSON body, accepting an empty one.
func decodeOptional(body io.Reader, v any) error {
	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func extractPathParam(path, prefix string) string {
	if strings.HasPrefix(path, prefix) {
		return strings.Trim(strings.TrimPrefix(path, prefix), "/")
	}
	return ""
}
