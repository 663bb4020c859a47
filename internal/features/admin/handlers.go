// Package admin — handlers.go обрабатывает GET /admin/spin/stats.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/reward-engine/internal/api/respond"
)

// Handler обрабатывает запросы админ-панели.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик админ-панели.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterAdminRoutes регистрирует маршруты в админской группе.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/spin/stats", h.spinStats)
}

func (h *Handler) spinStats(c *gin.Context) {
	st, err := h.service.SpinStats(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
