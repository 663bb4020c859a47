// Package spin — handlers.go обрабатывает запросы /spin.
package spin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/reward-engine/internal/api/respond"
	"serotonyl.ru/reward-engine/internal/common"
)

const maxHistoryLimit = 100

// Handler обрабатывает запросы рулетки.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик рулетки.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes регистрирует маршруты. limited навешивается на вращение.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, limited ...gin.HandlerFunc) {
	rg.POST("/spin", respond.Chain(limited, h.spin)...)
	rg.GET("/spin", h.wheel)
	rg.GET("/spin/history", h.history)
}

func (h *Handler) spin(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		respond.Error(c, common.ErrUnauthorized)
		return
	}
	res, err := h.service.Spin(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) wheel(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		respond.Error(c, common.ErrUnauthorized)
		return
	}
	w, err := h.service.Wheel(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) history(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		respond.Error(c, common.ErrUnauthorized)
		return
	}
	limit := respond.QueryInt(c, "limit", 0, maxHistoryLimit)
	list, err := h.service.History(c.Request.Context(), userID, limit)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": list})
}
