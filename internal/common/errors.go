// Package common — errors.go определяет доменные ошибки,
// которые используются во всех модулях движка наград.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отдавать клиенту стабильные коды.
package common

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

// Ошибки билетов и ежедневной награды
var (
	// ErrNoTickets — нет ни одного действующего билета
	ErrNoTickets = errors.New("нет доступных билетов")
	// ErrAlreadyClaimed — ежедневная награда за сегодня уже получена
	ErrAlreadyClaimed = errors.New("ежедневная награда уже получена сегодня")
	// ErrStreakVerification — не удалось прочитать вчерашнюю запись серии
	ErrStreakVerification = errors.New("не удалось проверить серию")
)

// Ошибки рулетки
var (
	// ErrNoPrizesConfigured — нет активных призов с положительным весом
	ErrNoPrizesConfigured = errors.New("призы не настроены")
	// ErrSpinDisabled — рулетка отключена в настройках
	ErrSpinDisabled = errors.New("рулетка временно отключена")
)

// Общие ошибки хранилища
var (
	// ErrNotFound — запись не найдена
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конкурентное изменение, операцию можно повторить
	ErrConflict = errors.New("конфликт конкурентного изменения")
)

// Ошибки доступа
var (
	// ErrUnauthorized — нет или неверный токен
	ErrUnauthorized = errors.New("требуется авторизация")
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrRateLimited — слишком много запросов
	ErrRateLimited = errors.New("слишком много запросов, подождите")
)

// ValidationError описывает ошибки входных данных по полям.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError создаёт ошибку с одним полем.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add добавляет ошибку поля.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

// HasErrors сообщает, есть ли хотя бы одна ошибка.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "некорректные данные: " + strings.Join(parts, "; ")
}

// Стабильные коды ошибок API.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeAlreadyClaimed     = "ALREADY_CLAIMED"
	CodeNoTickets          = "NO_TICKETS"
	CodeNoPrizesConfigured = "NO_PRIZES_CONFIGURED"
	CodeSpinDisabled       = "SPIN_DISABLED"
	CodeNotFound           = "NOT_FOUND"
	CodeStreakVerification = "STREAK_VERIFICATION_FAILED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

// Classification — результат сопоставления ошибки с HTTP-ответом.
type Classification struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

// Internal сообщает, что ошибка неожиданная и её нужно логировать как Error.
func (c Classification) Internal() bool {
	return c.Status >= http.StatusInternalServerError
}

// Classify сопоставляет ошибку со статусом и кодом.
// Внутренние подробности (SQL, стек) наружу не попадают.
func Classify(err error) Classification {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return Classification{Status: http.StatusBadRequest, Code: CodeValidation, Message: "некорректные данные", Fields: vErr.Fields}
	case errors.Is(err, ErrAlreadyClaimed):
		return Classification{Status: http.StatusConflict, Code: CodeAlreadyClaimed, Message: ErrAlreadyClaimed.Error()}
	case errors.Is(err, ErrNoTickets):
		return Classification{Status: http.StatusConflict, Code: CodeNoTickets, Message: ErrNoTickets.Error()}
	case errors.Is(err, ErrNoPrizesConfigured):
		return Classification{Status: http.StatusConflict, Code: CodeNoPrizesConfigured, Message: ErrNoPrizesConfigured.Error()}
	case errors.Is(err, ErrSpinDisabled):
		return Classification{Status: http.StatusForbidden, Code: CodeSpinDisabled, Message: ErrSpinDisabled.Error()}
	case errors.Is(err, ErrStreakVerification):
		return Classification{Status: http.StatusInternalServerError, Code: CodeStreakVerification, Message: ErrStreakVerification.Error()}
	case errors.Is(err, ErrNotFound):
		return Classification{Status: http.StatusNotFound, Code: CodeNotFound, Message: ErrNotFound.Error()}
	case errors.Is(err, ErrUnauthorized):
		return Classification{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: ErrUnauthorized.Error()}
	case errors.Is(err, ErrNotAdmin):
		return Classification{Status: http.StatusForbidden, Code: CodeForbidden, Message: ErrNotAdmin.Error()}
	case errors.Is(err, ErrRateLimited):
		return Classification{Status: http.StatusTooManyRequests, Code: CodeRateLimited, Message: ErrRateLimited.Error()}
	default:
		// Сюда же попадают исчерпанные повторы ErrConflict
		return Classification{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "внутренняя ошибка сервера"}
	}
}
