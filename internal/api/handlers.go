package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casepulse/casepulse/internal/config"
	"github.com/casepulse/casepulse/internal/database"
	"github.com/casepulse/casepulse/internal/documents"
	"github.com/casepulse/casepulse/internal/registry"
	"github.com/casepulse/casepulse/internal/scrape"
	"github.com/casepulse/casepulse/internal/source"
	"github.com/casepulse/casepulse/internal/store"
	"github.com/casepulse/casepulse/internal/summary"
	"github.com/casepulse/casepulse/pkg/logger"
)

// Handlers carries the wired collaborators for the HTTP surface.
type Handlers struct {
	store      *store.Store
	orch       *scrape.Orchestrator
	registry   *registry.Registry
	summarizer *summary.Summarizer
	docs       *documents.Downloader
	cfg        *config.Config
	log        *logger.Logger
}

func NewHandlers(st *store.Store, orch *scrape.Orchestrator, reg *registry.Registry, sum *summary.Summarizer, docs *documents.Downloader, cfg *config.Config, log *logger.Logger) *Handlers {
	return &Handlers{
		store:      st,
		orch:       orch,
		registry:   reg,
		summarizer: sum,
		docs:       docs,
		cfg:        cfg,
		log:        log,
	}
}

type searchRequest struct {
	CaseNumber   string `json:"case_number"`
	CaseType     string `json:"case_type"`
	Court        string `json:"court" binding:"required"`
	Party        string `json:"party"`
	ForceRefresh bool   `json:"force_refresh"`
}

type searchResponse struct {
	QueryID   string           `json:"query_id"`
	Outcome   database.Outcome `json:"outcome"`
	FromCache bool             `json:"from_cache"`
	Cases     []*database.Case `json:"cases"`
	Error     string           `json:"error,omitempty"`
}

// Search resolves a case query: cache, live portal with retries, demo
// fallback. Every submission is recorded as a query plus one history
// entry regardless of outcome.
func (h *Handlers) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.CaseNumber) == "" && strings.TrimSpace(req.Party) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either case_number or party is required"})
		return
	}

	q := &database.Query{
		ID:            uuid.NewString(),
		CaseNumber:    strings.TrimSpace(req.CaseNumber),
		CaseType:      strings.TrimSpace(req.CaseType),
		Court:         strings.TrimSpace(req.Court),
		PartyFragment: strings.TrimSpace(req.Party),
		ForceRefresh:  req.ForceRefresh,
		SubmittedAt:   time.Now(),
		ClientIP:      c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
	}
	if err := h.store.SaveQuery(q); err != nil {
		h.log.Error("Failed to save query", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record query"})
		return
	}

	start := time.Now()
	res := h.orch.Resolve(c.Request.Context(), q)

	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}
	if _, err := h.store.RecordOutcome(q, res.Outcome, res.FromCache, res.Records, errMsg, time.Since(start)); err != nil {
		h.log.Error("Failed to record outcome", "query_id", q.ID, "error", err)
	}

	// Fresh live data gets a background summary; cached and demo records
	// keep whatever summary they already carry.
	if res.Outcome == database.OutcomeSuccess && !res.FromCache && h.summarizer.Enabled() {
		for _, record := range res.Records {
			h.summarizer.GenerateAsync(record.ID)
		}
	}

	resp := searchResponse{
		QueryID:   q.ID,
		Outcome:   res.Outcome,
		FromCache: res.FromCache,
		Cases:     res.Records,
		Error:     errMsg,
	}
	c.JSON(statusForOutcome(res), resp)
}

func statusForOutcome(res scrape.Resolution) int {
	if res.Outcome != database.OutcomeError {
		return http.StatusOK
	}
	if errors.Is(res.Err, source.ErrUnsupportedCourt) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

// GetCase returns one case record by identifier. Read-only: never
// triggers a scrape.
func (h *Handlers) GetCase(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	record, err := h.registry.Get(id)
	if errors.Is(err, registry.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
		return
	}
	if err != nil {
		h.log.Error("Failed to load case", "case_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load case"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// GenerateSummary generates and attaches an AI summary synchronously.
func (h *Handlers) GenerateSummary(c *gin.Context) {
	if !h.summarizer.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "summarizer is not configured"})
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	text, err := h.summarizer.Generate(c.Request.Context(), id)
	if errors.Is(err, registry.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
		return
	}
	if err != nil {
		h.log.Error("Summary generation failed", "case_id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "summary generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"case_id": id, "summary": text})
}

// History pages back through resolved queries, newest first.
func (h *Handlers) History(c *gin.Context) {
	var cursor uint
	if raw := c.Query("cursor"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
		cursor = uint(parsed)
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	entries, next, err := h.store.ListHistory(cursor, limit)
	if err != nil {
		h.log.Error("Failed to list history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":     entries,
		"next_cursor": next,
	})
}

// GetOrderDocument serves an order's document, downloading it on first
// access.
func (h *Handlers) GetOrderDocument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 90*time.Second)
	defer cancel()

	order, err := h.docs.Ensure(ctx, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	case errors.Is(err, documents.ErrNoDocument):
		c.JSON(http.StatusNotFound, gin.H{"error": "order has no document"})
		return
	case err != nil:
		h.log.Error("Document fetch failed", "order_id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch document"})
		return
	}

	c.FileAttachment(order.LocalPath, "order_"+strconv.FormatUint(uint64(order.ID), 10)+".pdf")
}

// Health reports service liveness and database reachability.
func (h *Handlers) Health(c *gin.Context) {
	status := "healthy"
	dbStatus := "up"
	code := http.StatusOK

	if _, err := h.store.Stats(); err != nil {
		status = "degraded"
		dbStatus = "down"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"database":  dbStatus,
		"demo_mode": h.cfg.DemoMode,
		"time":      time.Now().UTC().Format(time.RFC3339),
	})
}

// CacheStats reports memory-layer hit and miss counters.
func (h *Handlers) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.CacheStats())
}

// Stats reports database-wide record counts.
func (h *Handlers) Stats(c *gin.Context) {
	stats, err := h.store.Stats()
	if err != nil {
		h.log.Error("Failed to collect stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to collect stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func parseID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || parsed == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(parsed), true
}
