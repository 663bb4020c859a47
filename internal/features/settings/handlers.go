// Package settings — handlers.go обрабатывает /admin/spin/settings.
package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/reward-engine/internal/api/respond"
	"serotonyl.ru/reward-engine/internal/common"
)

// Handler обрабатывает запросы настроек.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик настроек.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterAdminRoutes регистрирует маршруты в админской группе.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/spin/settings", h.get)
	rg.PUT("/spin/settings", h.update)
}

func (h *Handler) get(c *gin.Context) {
	st, err := h.service.Current(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": st})
}

func (h *Handler) update(c *gin.Context) {
	adminID, ok := respond.UserID(c)
	if !ok {
		respond.Error(c, common.ErrUnauthorized)
		return
	}
	var in UpdateInput
	if err := respond.BindJSON(c, &in); err != nil {
		respond.Error(c, err)
		return
	}
	st, err := h.service.Update(c.Request.Context(), adminID, in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": st})
}
