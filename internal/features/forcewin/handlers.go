// Package forcewin — handlers.go обрабатывает запросы админки /admin/force-wins.
package forcewin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/reward-engine/internal/api/respond"
	"serotonyl.ru/reward-engine/internal/common"
)

// Handler обрабатывает запросы реестра.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик реестра.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterAdminRoutes регистрирует маршруты в админской группе.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/force-wins", h.list)
	rg.POST("/force-wins", h.create)
	rg.PUT("/force-wins/:id", h.setActive)
	rg.DELETE("/force-wins/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forceWins": list})
}

func (h *Handler) create(c *gin.Context) {
	adminID, ok := respond.UserID(c)
	if !ok {
		respond.Error(c, common.ErrUnauthorized)
		return
	}
	var in CreateInput
	if err := respond.BindJSON(c, &in); err != nil {
		respond.Error(c, err)
		return
	}
	o, err := h.service.Create(c.Request.Context(), adminID, in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"forceWin": o})
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

func (h *Handler) setActive(c *gin.Context) {
	id, err := respond.ParseID(c, "id")
	if err != nil {
		respond.Error(c, err)
		return
	}
	var req setActiveRequest
	if err := respond.BindJSON(c, &req); err != nil {
		respond.Error(c, err)
		return
	}
	if req.Active == nil {
		respond.Error(c, common.NewValidationError("active", "обязательное поле"))
		return
	}
	o, err := h.service.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forceWin": o})
}

func (h *Handler) delete(c *gin.Context) {
	id, err := respond.ParseID(c, "id")
	if err != nil {
		respond.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
