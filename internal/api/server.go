// Package api собирает HTTP-маршруты и управляет сервером.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/api/middleware"
	"serotonyl.ru/reward-engine/internal/features/admin"
	"serotonyl.ru/reward-engine/internal/features/economy"
	"serotonyl.ru/reward-engine/internal/features/forcewin"
	"serotonyl.ru/reward-engine/internal/features/prizes"
	"serotonyl.ru/reward-engine/internal/features/settings"
	"serotonyl.ru/reward-engine/internal/features/spin"
	"serotonyl.ru/reward-engine/internal/features/tickets"
)

// Users — регистрация и проверка прав для middleware.
type Users interface {
	middleware.UserRegistrar
	middleware.AdminChecker
}

// Routes — всё, что нужно роутеру.
type Routes struct {
	JWTSecret      []byte
	RequestTimeout time.Duration
	Users          Users
	Limiter        *middleware.RateLimiter

	// Служебный ключ админки (пусто — только токены администраторов)
	AdminKeyHash    string
	AdminKeyActorID int64

	Spin     *spin.Handler
	Tickets  *tickets.Handler
	Economy  *economy.Handler
	Prizes   *prizes.Handler
	ForceWin *forcewin.Handler
	Bonus    *tickets.BonusHandler
	Settings *settings.Handler
	Admin    *admin.Handler
}

// NewRouter создаёт gin-движок со всеми маршрутами /api/v1.
func NewRouter(r Routes) *gin.Engine {
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.Timeout(r.RequestTimeout),
	)

	v1 := engine.Group("/api/v1")
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	var limited []gin.HandlerFunc
	if r.Limiter != nil {
		limited = append(limited, r.Limiter.Middleware())
	}

	user := v1.Group("", middleware.Auth(r.JWTSecret, r.Users))
	r.Spin.RegisterRoutes(user, limited...)
	r.Tickets.RegisterRoutes(user, limited...)
	r.Economy.RegisterRoutes(user)

	var adminChain []gin.HandlerFunc
	if r.AdminKeyHash != "" {
		adminChain = append(adminChain, middleware.AdminKey(r.AdminKeyHash, r.AdminKeyActorID))
	}
	adminChain = append(adminChain, middleware.Auth(r.JWTSecret, r.Users), middleware.RequireAdmin(r.Users))
	adminGroup := v1.Group("/admin", adminChain...)
	r.Prizes.RegisterAdminRoutes(adminGroup)
	r.ForceWin.RegisterAdminRoutes(adminGroup)
	r.Bonus.RegisterAdminRoutes(adminGroup)
	r.Settings.RegisterAdminRoutes(adminGroup)
	r.Admin.RegisterAdminRoutes(adminGroup)

	return engine
}

// Server — HTTP-сервер с graceful shutdown.
type Server struct {
	srv *http.Server
}

// NewServer создаёт сервер на addr.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start блокируется до остановки сервера.
func (s *Server) Start() error {
	log.Infof("HTTP-сервер слушает %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка HTTP-сервера: %w", err)
	}
	return nil
}

// Shutdown дожидается текущих запросов в пределах ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка остановки HTTP-сервера: %w", err)
	}
	log.Info("HTTP-сервер остановлен")
	return nil
}
