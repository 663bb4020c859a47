// Package middleware содержит промежуточные обработчики HTTP: логирование,
// восстановление после паники, ID запроса, таймаут, авторизацию и rate-limiting.
package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/api/respond"
)

// RequestIDHeader — заголовок с ID запроса.
const RequestIDHeader = "X-Request-ID"

// RequestID берёт ID из заголовка или генерирует новый UUID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		respond.SetRequestID(c, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// Logger логирует завершённый запрос.
// Записывает: метод, путь, статус, время обработки, user_id.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := log.Fields{
			"request_id": respond.RequestID(c),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if id, ok := respond.UserID(c); ok {
			fields["user_id"] = id
		}
		log.WithFields(fields).Debug("Запрос обработан")
	}
}

// Timeout ограничивает время обработки запроса через контекст.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
