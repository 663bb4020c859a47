// Package members управляет участниками: регистрацией по токену и флагом администратора.
// models.go описывает структуры данных для работы с таблицей members.
package members

import (
	"strconv"
	"time"
)

// Member представляет участника в базе данных.
// Запись создаётся при первом авторизованном запросе пользователя.
type Member struct {
	UserID    int64     `db:"user_id" json:"userId"`     // ID пользователя из токена (уникальный)
	Username  string    `db:"username" json:"username"`  // Имя из токена (может быть пустым)
	IsAdmin   bool      `db:"is_admin" json:"isAdmin"`   // Флаг администратора
	IsBanned  bool      `db:"is_banned" json:"isBanned"` // Флаг бана
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// DisplayName возвращает отображаемое имя пользователя.
// Если есть username — возвращает его с @, иначе — "id<число>".
func (m *Member) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	return "id" + strconv.FormatInt(m.UserID, 10)
}
