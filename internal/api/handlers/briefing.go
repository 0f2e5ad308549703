package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ark-poiop/dkwjawj-renew/internal/contracts"
	"github.com/ark-poiop/dkwjawj-renew/internal/external/threads"
	"github.com/ark-poiop/dkwjawj-renew/internal/pipeline"
	"github.com/ark-poiop/dkwjawj-renew/internal/selector"
	"github.com/ark-poiop/dkwjawj-renew/pkg/logger"
)

// Briefer runs one briefing (pipeline.Briefer in production)
type Briefer interface {
	Brief(ctx context.Context, slotToken string, opts pipeline.Options) (*pipeline.Report, error)
}

// PublishLog exposes the publisher's recent history (threads.Publisher)
type PublishLog interface {
	History() []threads.Record
	Stats() threads.Stats
}

// BriefingHandler handles briefing and snapshot endpoints
// ⭐ SSOT: 브리핑 API 핸들러는 이 구조체에서만
type BriefingHandler struct {
	briefer  Briefer
	archive   contracts.SnapshotArchive
	publishes PublishLog
	selector  *selector.Selector
	now       func() time.Time
	logger    *logger.Logger
}

// NewBriefingHandler creates a new briefing handler
func NewBriefingHandler(
	briefer Briefer,
	archive contracts.SnapshotArchive,
	publishes PublishLog,
	sel *selector.Selector,
	log *logger.Logger,
) *BriefingHandler {
	return &BriefingHandler{
		briefer:   briefer,
		archive:   archive,
		publishes: publishes,
		selector:  sel,
		now:       time.Now,
		logger:    log,
	}
}

// SetClock overrides the handler clock (tests)
func (h *BriefingHandler) SetClock(now func() time.Time) {
	h.now = now
}

// StatusResponse describes the current slot and market sessions
type StatusResponse struct {
	Now          time.Time              `json:"now"`
	BriefingType contracts.BriefingType `json:"briefing_type"`
	Title        string                 `json:"title"`
	KoreaOpen    bool                   `json:"korea_open"`
	USOpen       bool                   `json:"us_open"`
	Slots        []string               `json:"slots"`
}

// GetStatus returns the dynamic slot and market-hours state
// GET /api/status
func (h *BriefingHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	now := h.now().In(h.selector.Location())
	bt := h.selector.Select(now)

	respondJSON(w, http.StatusOK, StatusResponse{
		Now:          now,
		BriefingType: bt,
		Title:        bt.Title(),
		KoreaOpen:    selector.KoreaMarketOpen(now, h.selector.Location()),
		USOpen:       selector.USMarketOpen(now, h.selector.Location()),
		Slots:        selector.SlotTokens(),
	})
}

// GetLatestSnapshot returns the latest archived snapshot of a type
// GET /api/snapshots/latest?type=kr_close (기본값: 현재 시각의 유형)
func (h *BriefingHandler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		respondError(w, http.StatusServiceUnavailable, "Archive not configured")
		return
	}

	bt := contracts.BriefingType(r.URL.Query().Get("type"))
	if bt == "" {
		bt = h.selector.Select(h.now())
	}
	if !bt.Valid() {
		respondError(w, http.StatusBadRequest, "Unknown briefing type")
		return
	}

	snap, err := h.archive.Latest(r.Context(), bt)
	if errors.Is(err, contracts.ErrSnapshotNotFound) {
		respondError(w, http.StatusNotFound, "No snapshot for "+string(bt))
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest snapshot")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve snapshot")
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// ListSnapshots returns every archived snapshot
// GET /api/snapshots
func (h *BriefingHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		respondError(w, http.StatusServiceUnavailable, "Archive not configured")
		return
	}

	entries, err := h.archive.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list snapshots")
		respondError(w, http.StatusInternalServerError, "Failed to list snapshots")
		return
	}
	if entries == nil {
		entries = []contracts.ArchiveEntry{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(entries),
		"snapshots": entries,
	})
}

// BriefRequest represents a briefing trigger request
type BriefRequest struct {
	Topic   string `json:"topic"`
	Save    bool   `json:"save"`
	Publish bool   `json:"publish"`
}

// Brief triggers one briefing run
// POST /api/briefings/{slot}
func (h *BriefingHandler) Brief(w http.ResponseWriter, r *http.Request) {
	slot := mux.Vars(r)["slot"]

	// Body is optional
	var req BriefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.briefer.Brief(r.Context(), slot, pipeline.Options{
		Topic:   req.Topic,
		Save:    req.Save,
		Publish: req.Publish,
	})
	if contracts.IsConfigurationError(err) {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("slot", slot).Error("Briefing failed")
		respondError(w, http.StatusInternalServerError, "Briefing failed")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// GetPublishHistory returns recent publish attempts and totals
// GET /api/publish/history
func (h *BriefingHandler) GetPublishHistory(w http.ResponseWriter, r *http.Request) {
	if h.publishes == nil {
		respondError(w, http.StatusServiceUnavailable, "Publisher not configured")
		return
	}

	history := h.publishes.History()
	if history == nil {
		history = []threads.Record{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"stats":   h.publishes.Stats(),
		"history": history,
	})
}
