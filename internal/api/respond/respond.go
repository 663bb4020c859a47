// Package respond — общие помощники HTTP-обработчиков:
// единый формат ошибок, доступ к пользователю запроса, разбор параметров.
package respond

import (
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/common"
)

// Ключи gin.Context.
const (
	userIDKey    = "userID"
	usernameKey  = "username"
	requestIDKey = "requestID"
	serviceKey   = "serviceKey"
)

// ErrorBody — тело ответа с ошибкой.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorResponse — {"error": {...}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error классифицирует ошибку, логирует её и завершает запрос.
// Внутренние ошибки логируются как Error, пользовательские — как Debug.
func Error(c *gin.Context, err error) {
	cl := common.Classify(err)

	entry := log.WithFields(log.Fields{
		"request_id": RequestID(c),
		"path":       c.FullPath(),
		"code":       cl.Code,
	}).WithError(err)
	if id, ok := UserID(c); ok {
		entry = entry.WithField("user_id", id)
	}
	if cl.Internal() {
		entry.Error("Ошибка обработки запроса")
	} else {
		entry.Debug("Запрос отклонён")
	}

	c.AbortWithStatusJSON(cl.Status, ErrorResponse{Error: ErrorBody{
		Code:    cl.Code,
		Message: cl.Message,
		Fields:  cl.Fields,
	}})
}

// SetUser сохраняет пользователя из токена в контексте запроса.
func SetUser(c *gin.Context, userID int64, username string) {
	c.Set(userIDKey, userID)
	c.Set(usernameKey, username)
}

// UserID возвращает ID пользователя, выставленный middleware авторизации.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// MarkServiceKey отмечает запрос, прошедший по служебному ключу администратора.
func MarkServiceKey(c *gin.Context) {
	c.Set(serviceKey, true)
}

// ServiceKey сообщает, авторизован ли запрос служебным ключом.
func ServiceKey(c *gin.Context) bool {
	return c.GetBool(serviceKey)
}

// SetRequestID сохраняет ID запроса.
func SetRequestID(c *gin.Context, id string) {
	c.Set(requestIDKey, id)
}

// RequestID возвращает ID запроса или пустую строку.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// ParseID разбирает положительный числовой параметр пути.
func ParseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewValidationError(name, "должен быть положительным числом")
	}
	return id, nil
}

// BindJSON декодирует тело запроса. Ошибка разбора — ValidationError.
func BindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return common.NewValidationError("body", "некорректный JSON")
	}
	return nil
}

// QueryInt читает необязательный числовой параметр запроса в пределах [1, max].
func QueryInt(c *gin.Context, name string, def, max int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// Chain добавляет обработчик после middleware, не трогая исходный срез.
func Chain(middleware []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(middleware)+1)
	out = append(out, middleware...)
	return append(out, h)
}
