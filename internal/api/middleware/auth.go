package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/api/respond"
	"serotonyl.ru/reward-engine/internal/common"
)

const bearerSchema = "Bearer "

// UserRegistrar регистрирует пользователя из токена.
type UserRegistrar interface {
	Ensure(ctx context.Context, userID int64, username string) error
}

// AdminChecker отвечает, администратор ли пользователь.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// Identity — пользователь, извлечённый из токена.
type Identity struct {
	UserID   int64
	Username string
}

// ParseToken проверяет HS256-токен и достаёт из него пользователя.
// sub — ID пользователя строкой или числом, username — необязательно.
func ParseToken(raw string, secret []byte) (*Identity, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("токен отклонён: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("неверные claims токена")
	}

	id, err := subjectID(claims["sub"])
	if err != nil {
		return nil, err
	}
	username, _ := claims["username"].(string)
	return &Identity{UserID: id, Username: username}, nil
}

func subjectID(v any) (int64, error) {
	switch sub := v.(type) {
	case string:
		id, err := strconv.ParseInt(sub, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("некорректный sub %q", sub)
		}
		return id, nil
	case float64:
		if sub <= 0 || sub != math.Trunc(sub) || sub > math.MaxInt64 {
			return 0, fmt.Errorf("некорректный sub %v", sub)
		}
		return int64(sub), nil
	default:
		return 0, errors.New("в токене нет sub")
	}
}

// Auth проверяет Bearer-токен, регистрирует пользователя и кладёт его в контекст.
func Auth(secret []byte, users UserRegistrar) gin.HandlerFunc {
	return func(c *gin.Context) {
		if respond.ServiceKey(c) {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerSchema) {
			respond.Error(c, common.ErrUnauthorized)
			return
		}

		identity, err := ParseToken(strings.TrimSpace(header[len(bearerSchema):]), secret)
		if err != nil {
			log.WithError(err).WithField("request_id", respond.RequestID(c)).Debug("Токен отклонён")
			respond.Error(c, common.ErrUnauthorized)
			return
		}

		if err := users.Ensure(c.Request.Context(), identity.UserID, identity.Username); err != nil {
			respond.Error(c, fmt.Errorf("ошибка регистрации пользователя: %w", err))
			return
		}

		respond.SetUser(c, identity.UserID, identity.Username)
		c.Next()
	}
}

// RequireAdmin пропускает только администраторов.
func RequireAdmin(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if respond.ServiceKey(c) {
			c.Next()
			return
		}
		userID, ok := respond.UserID(c)
		if !ok {
			respond.Error(c, common.ErrUnauthorized)
			return
		}
		isAdmin, err := checker.IsAdmin(c.Request.Context(), userID)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if !isAdmin {
			respond.Error(c, common.ErrNotAdmin)
			return
		}
		c.Next()
	}
}
