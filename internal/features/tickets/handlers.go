// Package tickets — handlers.go обрабатывает запросы ежедневной награды
// и админской выдачи билетов.
package tickets

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/reward-engine/internal/api/respond"
	"serotonyl.ru/reward-engine/internal/common"
)

// Handler обрабатывает /spin/claim-daily и /spin/daily-status.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик ежедневной награды.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes регистрирует маршруты. limited навешивается на изменяющие запросы.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, limited ...gin.HandlerFunc) {
	rg.POST("/spin/claim-daily", respond.Chain(limited, h.claimDaily)...)
	rg.GET("/spin/daily-status", h.dailyStatus)
}

func (h *Handler) claimDaily(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		respond.Error(c, common.ErrUnauthorized)
		return
	}
	res, err := h.service.ClaimDaily(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"ticketsGranted": res.TicketsGranted,
		"newStreak":      res.NewStreak,
		"ticketBalance":  res.TicketBalance,
		"expiresAt":      res.ExpiresAt,
		"message":        ClaimMessage(res),
	})
}

func (h *Handler) dailyStatus(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		respond.Error(c, common.ErrUnauthorized)
		return
	}
	st, err := h.service.Status(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ClaimMessage — текст ответа на ежедневную награду, например
// «Получено: 2 билета, серия 3 дня».
func ClaimMessage(res *ClaimResult) string {
	return fmt.Sprintf("Получено: %s, серия %d %s",
		common.FormatTickets(int64(res.TicketsGranted)), res.NewStreak, common.PluralizeDays(res.NewStreak))
}

// BonusHandler обрабатывает админские запросы /admin/tickets.
type BonusHandler struct {
	service *BonusService
}

// NewBonusHandler создаёт обработчик админской выдачи.
func NewBonusHandler(service *BonusService) *BonusHandler {
	return &BonusHandler{service: service}
}

// RegisterAdminRoutes регистрирует маршруты в админской группе.
func (h *BonusHandler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/tickets", h.list)
	rg.POST("/tickets", h.grant)
	rg.DELETE("/tickets/:id", h.revoke)
}

func (h *BonusHandler) list(c *gin.Context) {
	var userID int64
	if raw := c.Query("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respond.Error(c, common.NewValidationError("userId", "должен быть положительным числом"))
			return
		}
		userID = id
	}
	list, err := h.service.List(c.Request.Context(), userID, respond.QueryInt(c, "limit", 50, 200))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bonuses": list})
}

func (h *BonusHandler) grant(c *gin.Context) {
	adminID, ok := respond.UserID(c)
	if !ok {
		respond.Error(c, common.ErrUnauthorized)
		return
	}
	var in BonusInput
	if err := respond.BindJSON(c, &in); err != nil {
		respond.Error(c, err)
		return
	}
	b, err := h.service.Grant(c.Request.Context(), adminID, in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"bonus":   b,
		"message": "Выдано: " + common.FormatTickets(int64(b.Count)),
	})
}

func (h *BonusHandler) revoke(c *gin.Context) {
	adminID, ok := respond.UserID(c)
	if !ok {
		respond.Error(c, common.ErrUnauthorized)
		return
	}
	id, err := respond.ParseID(c, "id")
	if err != nil {
		respond.Error(c, err)
		return
	}
	b, err := h.service.Revoke(c.Request.Context(), adminID, id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "bonus": b})
}
