package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	tenantapp "github.com/engagesync/backend/internal/application/tenant"
	"github.com/engagesync/backend/internal/domain/tenant"
	"github.com/engagesync/backend/internal/interfaces/http/middleware"
)

// NamespaceHandler handles namespace registry HTTP requests
type NamespaceHandler struct {
	BaseHandler
	service *tenantapp.NamespaceService
}

// NewNamespaceHandler creates a new NamespaceHandler
func NewNamespaceHandler(service *tenantapp.NamespaceService) *NamespaceHandler {
	return &NamespaceHandler{service: service}
}

// ============================================================================
// Request/Response DTOs for HTTP layer
// ============================================================================

// CreateNamespaceHTTPRequest represents the HTTP request body for creating a namespace
type CreateNamespaceHTTPRequest struct {
	Name     string   `json:"name" binding:"required,min=1,max=100"`
	Keywords []string `json:"keywords" binding:"required,min=1"`
	TableRef string   `json:"table_ref,omitempty"`
}

// UpdateNamespaceHTTPRequest represents the HTTP request body for updating a namespace
type UpdateNamespaceHTTPRequest struct {
	Keywords []string `json:"keywords,omitempty"`
	TableRef string   `json:"table_ref,omitempty"`
	Active   *bool    `json:"active,omitempty"`
}

// NamespaceResponse represents a namespace in API responses
type NamespaceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Keywords  []string  `json:"keywords"`
	TableRef  string    `json:"table_ref"`
	IsDefault bool      `json:"is_default"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toNamespaceResponse(ns *tenant.Namespace) NamespaceResponse {
	return NamespaceResponse{
		ID:        ns.ID.String(),
		Name:      ns.Name,
		Keywords:  ns.Keywords,
		TableRef:  ns.TableRef,
		IsDefault: ns.IsDefault,
		Active:    ns.Active,
		CreatedAt: ns.CreatedAt,
		UpdatedAt: ns.UpdatedAt,
	}
}

// ============================================================================
// Handlers
// ============================================================================

// List returns all active namespaces
func (h *NamespaceHandler) List(c *gin.Context) {
	namespaces, err := h.service.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]NamespaceResponse, 0, len(namespaces))
	for i := range namespaces {
		out = append(out, toNamespaceResponse(&namespaces[i]))
	}
	h.Success(c, out)
}

// Create registers a new namespace
func (h *NamespaceHandler) Create(c *gin.Context) {
	var req CreateNamespaceHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	ns, err := h.service.Create(c.Request.Context(), tenantapp.CreateInput{
		Name:     req.Name,
		Keywords: req.Keywords,
		TableRef: req.TableRef,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toNamespaceResponse(ns))
}

// Update modifies an existing namespace
func (h *NamespaceHandler) Update(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		h.BadRequest(c, "namespace name is required")
		return
	}

	var req UpdateNamespaceHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	ns, err := h.service.Update(c.Request.Context(), name, tenantapp.UpdateInput{
		Keywords: req.Keywords,
		TableRef: req.TableRef,
		Active:   req.Active,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toNamespaceResponse(ns))
}

// RegisterRoutes registers all namespace routes
func (h *NamespaceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	namespaces := rg.Group("/namespaces")
	{
		namespaces.GET("", h.List)
		namespaces.POST("", h.Create)
		namespaces.PUT("/:name", h.Update)
	}
}
