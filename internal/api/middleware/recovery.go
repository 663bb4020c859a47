package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/api/respond"
)

// Recovery перехватывает панику обработчика и отвечает INTERNAL_ERROR.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"component":  "panic_recovery",
					"request_id": respond.RequestID(c),
					"panic":      fmt.Sprintf("%v", r),
					"stack":      string(debug.Stack()),
				}).Error("ПАНИКА в обработчике — восстановлено")
				respond.Error(c, fmt.Errorf("паника: %v", r))
			}
		}()
		c.Next()
	}
}
