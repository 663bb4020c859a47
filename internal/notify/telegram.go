// Package notify объявляет крупные выигрыши в Telegram-чат.
package notify

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/spin"
)

// Sender — часть telego.Bot, которой достаточно для объявлений.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// TelegramNotifier отправляет объявления в один чат.
type TelegramNotifier struct {
	sender Sender
	chatID int64
}

// NewTelegram создаёт бота по токену. Бот только отправляет, апдейты не читает.
func NewTelegram(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram-бота: %w", err)
	}
	return NewTelegramWithSender(bot, chatID), nil
}

// NewTelegramWithSender используется в тестах с подменой отправителя.
func NewTelegramWithSender(sender Sender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, chatID: chatID}
}

// NotifyWin реализует spin.WinNotifier.
func (n *TelegramNotifier) NotifyWin(ctx context.Context, w spin.Win) error {
	if _, err := n.sender.SendMessage(ctx, tu.Message(tu.ID(n.chatID), WinText(w))); err != nil {
		return fmt.Errorf("ошибка отправки объявления: %w", err)
	}
	log.WithFields(log.Fields{
		"user_id":   w.UserID,
		"coins_won": w.CoinsWon,
		"chat_id":   n.chatID,
	}).Info("Выигрыш объявлен")
	return nil
}

// WinText — текст объявления.
func WinText(w spin.Win) string {
	return fmt.Sprintf("🎰 Крупный выигрыш! Игрок %d выбил «%s» и получил %s",
		w.UserID, w.PrizeName, common.FormatCoins(w.CoinsWon))
}
