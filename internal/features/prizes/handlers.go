// Package prizes — handlers.go обрабатывает HTTP-запросы админки каталога.
package prizes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/reward-engine/internal/api/respond"
)

// Handler обрабатывает запросы /admin/prizes.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик каталога.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterAdminRoutes регистрирует маршруты в админской группе.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/prizes", h.list)
	rg.POST("/prizes", h.create)
	rg.POST("/prizes/seed", h.seed)
	rg.PUT("/prizes/:id", h.update)
	rg.DELETE("/prizes/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	if list == nil {
		list = []Prize{}
	}
	c.JSON(http.StatusOK, gin.H{"prizes": Chances(list), "count": len(list)})
}

func (h *Handler) create(c *gin.Context) {
	var in Input
	if err := respond.BindJSON(c, &in); err != nil {
		respond.Error(c, err)
		return
	}
	p, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"prize": p})
}

func (h *Handler) update(c *gin.Context) {
	id, err := respond.ParseID(c, "id")
	if err != nil {
		respond.Error(c, err)
		return
	}
	var in Input
	if err := respond.BindJSON(c, &in); err != nil {
		respond.Error(c, err)
		return
	}
	p, err := h.service.Update(c.Request.Context(), id, in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prize": p})
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

func (h *Handler) seed(c *gin.Context) {
	seeded, err := h.service.SeedDefaults(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	list, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seeded": seeded, "prizes": list})
}
