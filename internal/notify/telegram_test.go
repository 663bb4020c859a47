package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/mymmrac/telego"

	"serotonyl.ru/reward-engine/internal/features/spin"
)

type fakeSender struct {
	sent []*telego.SendMessageParams
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, p *telego.SendMessageParams) (*telego.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, p)
	return &telego.Message{Text: p.Text}, nil
}

func TestWinText(t *testing.T) {
	got := WinText(spin.Win{UserID: 42, PrizeName: "Джекпот", CoinsWon: 1000})
	want := "🎰 Крупный выигрыш! Игрок 42 выбил «Джекпот» и получил 1 000 монет"
	if got != want {
		t.Fatalf("WinText = %q, want %q", got, want)
	}
}

func TestNotifyWinSendsToChat(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegramWithSender(sender, -100500)

	if err := n.NotifyWin(context.Background(), spin.Win{UserID: 1, PrizeName: "500 монет", CoinsWon: 500}); err != nil {
		t.Fatalf("NotifyWin: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("отправлено %d сообщений", len(sender.sent))
	}
	if sender.sent[0].ChatID.ID != -100500 {
		t.Fatalf("чат = %v", sender.sent[0].ChatID)
	}
}

func TestNotifyWinWrapsError(t *testing.T) {
	boom := errors.New("telegram недоступен")
	n := NewTelegramWithSender(&fakeSender{err: boom}, 1)

	if err := n.NotifyWin(context.Background(), spin.Win{UserID: 1}); !errors.Is(err, boom) {
		t.Fatalf("ожидали обёрнутую ошибку, получили %v", err)
	}
}
