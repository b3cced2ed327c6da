package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	syncapp "github.com/engagesync/backend/internal/application/sync"
	domain "github.com/engagesync/backend/internal/domain/sync"
	"github.com/engagesync/backend/internal/infrastructure/gateway"
	"github.com/engagesync/backend/internal/infrastructure/idempotency"
	"github.com/engagesync/backend/internal/interfaces/http/dto"
	"github.com/engagesync/backend/internal/interfaces/http/middleware"
)

// SyncHandler handles synchronization job HTTP requests
type SyncHandler struct {
	BaseHandler
	jobs     *syncapp.JobManager
	gateways *gateway.Set
	keygen   *idempotency.KeyGenerator
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(jobs *syncapp.JobManager, gateways *gateway.Set, keygen *idempotency.KeyGenerator) *SyncHandler {
	return &SyncHandler{
		jobs:     jobs,
		gateways: gateways,
		keygen:   keygen,
	}
}

// ============================================================================
// Request/Response DTOs for HTTP layer
// ============================================================================

// DateRangeHTTP is an inclusive event time window in a request body
type DateRangeHTTP struct {
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required"`
}

// CreateSyncJobHTTPRequest represents the HTTP request body for submitting a sync run
type CreateSyncJobHTTPRequest struct {
	Platforms  []string       `json:"platforms" binding:"required,min=1"`
	Namespaces []string       `json:"namespaces,omitempty"`
	Mode       string         `json:"mode" binding:"required,oneof=FULL_HISTORICAL DELTA_SINCE_LAST DATE_RANGE RESET_FROM_DATE"`
	DateRange  *DateRangeHTTP `json:"date_range,omitempty"`
	ResetDate  *time.Time     `json:"reset_date,omitempty"`
	BatchSize  int            `json:"batch_size,omitempty" binding:"omitempty,min=1"`
}

// toDomain converts the HTTP request into a domain sync request.
// Full validation happens in the domain; this is only shape mapping.
func (r *CreateSyncJobHTTPRequest) toDomain() domain.SyncRequest {
	platforms := make([]domain.PlatformCode, 0, len(r.Platforms))
	for _, p := range r.Platforms {
		platforms = append(platforms, domain.PlatformCode(p))
	}
	req := domain.SyncRequest{
		Platforms:  platforms,
		Namespaces: r.Namespaces,
		Mode:       domain.SyncMode(r.Mode),
		ResetDate:  r.ResetDate,
		BatchSize:  r.BatchSize,
	}
	if r.DateRange != nil {
		req.DateRange = &domain.DateRange{
			Start: r.DateRange.Start,
			End:   r.DateRange.End,
		}
	}
	return req
}

// SyncJobResponse represents a sync job in API responses
type SyncJobResponse struct {
	ID           string             `json:"id"`
	Status       string             `json:"status"`
	Request      domain.SyncRequest `json:"request"`
	Result       *domain.SyncResult `json:"result,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	StartedAt    *time.Time         `json:"started_at,omitempty"`
	FinishedAt   *time.Time         `json:"finished_at,omitempty"`
}

func toSyncJobResponse(job *domain.SyncJob) SyncJobResponse {
	return SyncJobResponse{
		ID:           job.ID.String(),
		Status:       string(job.Status),
		Request:      job.Request,
		Result:       job.Result,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		FinishedAt:   job.FinishedAt,
	}
}

// SyncStatsResponse aggregates gateway and key generation counters
type SyncStatsResponse struct {
	Gateways []gateway.Stats   `json:"gateways"`
	Keys     idempotency.Stats `json:"keys"`
}

// ============================================================================
// Handlers
// ============================================================================

// Submit accepts a sync run and returns its job ID immediately
func (h *SyncHandler) Submit(c *gin.Context) {
	var req CreateSyncJobHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	id, err := h.jobs.Submit(c.Request.Context(), req.toDomain())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, gin.H{"job_id": id.String()})
}

// Get returns a job's current status and result
func (h *SyncHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid job ID")
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSyncJobResponse(job))
}

// List returns the most recently submitted jobs
func (h *SyncHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	jobs, err := h.jobs.Recent(c.Request.Context(), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]SyncJobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, toSyncJobResponse(&jobs[i]))
	}
	h.SuccessWithMeta(c, out, int64(len(out)), req.Limit)
}

// Cancel prevents a queued job from starting
func (h *SyncHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid job ID")
		return
	}

	if err := h.jobs.Cancel(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSyncJobResponse(job))
}

// Stats returns gateway pacing and key generation counters
func (h *SyncHandler) Stats(c *gin.Context) {
	resp := SyncStatsResponse{
		Gateways: h.gateways.Stats(),
		Keys:     h.keygen.Stats(),
	}
	h.Success(c, resp)
}

// RegisterRoutes registers all sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/jobs", h.Submit)
		sync.GET("/jobs", h.List)
		sync.GET("/jobs/:id", h.Get)
		sync.POST("/jobs/:id/cancel", h.Cancel)
		sync.GET("/stats", h.Stats)
	}
}
