package subdomains

import (
	"errors"
	"strconv"

	"subdns/internal/httpx"
	"subdns/internal/lifecycle"
	"subdns/internal/registry"

	"github.com/gin-gonic/gin"
)

// Handler exposes subdomain lifecycle operations over HTTP
type Handler struct {
	service *lifecycle.Service
}

// NewHandler creates a subdomain handler
func NewHandler(service *lifecycle.Service) *Handler {
	return &Handler{service: service}
}

// Register handles POST /api/v1/subdomains/create
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request: "+err.Error()))
		return
	}

	result, err := h.service.Register(c.Request.Context(), lifecycle.RegisterInput{
		Name:        req.Name,
		CustomerID:  req.CustomerID,
		PrototypeID: req.PrototypeID,
		TargetURL:   req.TargetURL,
		ExpiresAt:   req.ExpiresAt,
		Metadata:    req.Metadata,
	})
	if err != nil {
		httpx.FailErr(c, httpx.FromError(err))
		return
	}

	httpx.Created(c, result)
}

// Get handles GET /api/v1/subdomains/:name
func (h *Handler) Get(c *gin.Context) {
	sub, err := h.service.Get(c.Param("name"))
	if err != nil {
		httpx.FailErr(c, httpx.FromError(err))
		return
	}
	httpx.OK(c, sub)
}

// List handles GET /api/v1/subdomains
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := registry.ListFilter{
		CustomerID: c.Query("customerId"),
		Status:     c.Query("status"),
	}

	subs, err := h.service.List(filter, limit, offset)
	if err != nil {
		httpx.FailErr(c, httpx.FromError(err))
		return
	}
	httpx.OKItems(c, subs, len(subs), limit, offset)
}

// Update handles POST /api/v1/subdomains/update
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request: "+err.Error()))
		return
	}

	sub, err := h.service.Update(c.Request.Context(), req.Name, lifecycle.UpdateFields{
		Status:    req.Status,
		TargetURL: req.TargetURL,
		ExpiresAt: req.ExpiresAt,
		Metadata:  req.Metadata,
	})
	if err != nil {
		httpx.FailErr(c, httpx.FromError(err))
		return
	}
	httpx.OK(c, sub)
}

// Delete handles POST /api/v1/subdomains/delete
func (h *Handler) Delete(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid request: "+err.Error()))
		return
	}

	deleted, err := h.service.Delete(c.Request.Context(), req.Name)
	if err != nil {
		httpx.FailErr(c, httpx.FromError(err))
		return
	}
	httpx.OK(c, DeleteResponse{Deleted: deleted})
}

// Resolve handles GET /api/v1/resolve?fqdn=name.suffix
func (h *Handler) Resolve(c *gin.Context) {
	fqdn := c.Query("fqdn")
	if fqdn == "" {
		httpx.FailErr(c, httpx.ErrParamMissing("fqdn is required"))
		return
	}

	res, err := h.service.Resolve(c.Request.Context(), fqdn)
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			httpx.FailErr(c, httpx.ErrNotFound("subdomain not resolvable"))
			return
		}
		httpx.FailErr(c, httpx.FromError(err))
		return
	}
	httpx.OK(c, res)
}
