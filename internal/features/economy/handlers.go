// Package economy — handlers.go обрабатывает запросы кошелька:
// баланс монет и история транзакций текущего пользователя.
package economy

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/reward-engine/internal/api/respond"
	"serotonyl.ru/reward-engine/internal/common"
)

const maxTransactionsLimit = 100

// Handler обрабатывает запросы /wallet.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик кошелька.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes регистрирует маршруты пользователя.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/wallet", h.wallet)
	rg.GET("/wallet/transactions", h.transactions)
}

func (h *Handler) wallet(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		respond.Error(c, common.ErrUnauthorized)
		return
	}
	account, err := h.service.GetAccount(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"coins":       account.Coins,
		"totalEarned": account.TotalEarned,
		"formatted":   common.FormatCoins(account.Coins),
	})
}

func (h *Handler) transactions(c *gin.Context) {
	userID, ok := respond.UserID(c)
	if !ok {
		respond.Error(c, common.ErrUnauthorized)
		return
	}
	limit := respond.QueryInt(c, "limit", 20, maxTransactionsLimit)
	list, err := h.service.Transactions(c.Request.Context(), userID, limit)
	if err != nil {
		respond.Error(c, err)
		return
	}
	views := make([]TransactionView, 0, len(list))
	for _, t := range list {
		views = append(views, NewTransactionView(t))
	}
	c.JSON(http.StatusOK, gin.H{"transactions": views})
}
