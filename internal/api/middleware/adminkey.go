package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/reward-engine/internal/api/respond"
	"serotonyl.ru/reward-engine/internal/common"
)

// AdminKeyHeader — заголовок со служебным ключом для скриптов эксплуатации.
const AdminKeyHeader = "X-Admin-Key"

// Параметры Argon2id для новых хешей.
const (
	argonMemory      uint32 = 64 * 1024
	argonIterations  uint32 = 3
	argonParallelism uint8  = 2
	argonKeyLength   uint32 = 32
)

// HashAdminKey возвращает хеш ключа в формате
// $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func HashAdminKey(key string, salt []byte) string {
	hash := argon2.IDKey([]byte(key), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}

// VerifyAdminKey сравнивает ключ с хешем Argon2id в постоянном времени.
func VerifyAdminKey(key, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("некорректный формат хеша Argon2id")
	}

	var (
		memory      uint32
		iterations  uint32
		parallelism uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("ошибка парсинга параметров Argon2id: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("ошибка декодирования соли: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("ошибка декодирования хеша: %w", err)
	}

	computed := argon2.IDKey([]byte(key), salt, iterations, memory, parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// AdminKey пропускает запрос со служебным ключом в админскую группу
// от имени actorID. Без заголовка запрос идёт дальше к проверке токена.
// Ставится перед Auth и RequireAdmin.
func AdminKey(encodedHash string, actorID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(AdminKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		ok, err := VerifyAdminKey(key, encodedHash)
		if err != nil {
			log.WithError(err).Error("Служебный ключ не проверен")
		}
		if !ok {
			respond.Error(c, common.ErrUnauthorized)
			return
		}

		respond.SetUser(c, actorID, "service-key")
		respond.MarkServiceKey(c)
		c.Next()
	}
}
