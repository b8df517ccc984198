package ssl

import (
	"subdns/internal/httpx"
	"subdns/internal/lifecycle"

	"github.com/gin-gonic/gin"
)

// Handler exposes certificate management operations. Each is independently
// retryable: they are idempotent with respect to the absent state.
type Handler struct {
	service *lifecycle.Service
}

// NewHandler creates an SSL management handler
func NewHandler(service *lifecycle.Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /api/v1/ssl
func (h *Handler) List(c *gin.Context) {
	infos, err := h.service.ListCertificates()
	if err != nil {
		httpx.FailErr(c, httpx.FromError(err))
		return
	}
	httpx.OK(c, infos)
}

// Info handles GET /api/v1/ssl/:name
func (h *Handler) Info(c *gin.Context) {
	info, err := h.service.CertificateInfo(c.Param("name"))
	if err != nil {
		httpx.FailErr(c, httpx.FromError(err))
		return
	}
	httpx.OK(c, info)
}

// Status handles GET /api/v1/ssl/:name/status
func (h *Handler) Status(c *gin.Context) {
	st, err := h.service.CertificateStatus(c.Param("name"))
	if err != nil {
		httpx.FailErr(c, httpx.FromError(err))
		return
	}
	httpx.OK(c, st)
}

// Regenerate handles POST /api/v1/ssl/:name/regenerate
func (h *Handler) Regenerate(c *gin.Context) {
	info, err := h.service.RegenerateCertificate(c.Request.Context(), c.Param("name"))
	if err != nil {
		httpx.FailErr(c, httpx.FromError(err))
		return
	}
	httpx.OK(c, info)
}

// Remove handles POST /api/v1/ssl/:name/delete
func (h *Handler) Remove(c *gin.Context) {
	removed, err := h.service.RemoveCertificate(c.Param("name"))
	if err != nil {
		httpx.FailErr(c, httpx.FromError(err))
		return
	}
	httpx.OK(c, gin.H{"removed": removed})
}
