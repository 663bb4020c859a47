package members_test

import (
	"context"
	"errors"
	"testing"

	"serotonyl.ru/reward-engine/internal/common"
	"serotonyl.ru/reward-engine/internal/features/members"
	"serotonyl.ru/reward-engine/internal/store/memory"
)

func TestEnsureAndAdmins(t *testing.T) {
	ctx := context.Background()
	svc := members.NewService(memory.New(nil).Members())

	if err := svc.Ensure(ctx, 5, "alice"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	// Пустой username не затирает сохранённый
	if err := svc.Ensure(ctx, 5, ""); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	m, err := svc.Get(ctx, 5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.Username != "alice" {
		t.Fatalf("Username = %q", m.Username)
	}

	if ok, _ := svc.IsAdmin(ctx, 5); ok {
		t.Fatal("новый пользователь не администратор")
	}
	if ok, err := svc.IsAdmin(ctx, 404); err != nil || ok {
		t.Fatalf("неизвестный пользователь: ok=%v err=%v", ok, err)
	}

	if err := svc.PromoteAdmins(ctx, []int64{5, 6}); err != nil {
		t.Fatalf("PromoteAdmins: %v", err)
	}
	for _, id := range []int64{5, 6} {
		if ok, _ := svc.IsAdmin(ctx, id); !ok {
			t.Fatalf("пользователь %d должен стать администратором", id)
		}
	}

	if _, err := svc.Get(ctx, 404); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
}
