//go:build ignore

// hash_admin_key.go — генерирует Argon2id-хеш служебного ключа админки.
// Запуск: go run scripts/hash_admin_key.go ваш_ключ
//
// Результат вставьте в .env как ADMIN_KEY_HASH.
package main

import (
	"crypto/rand"
	"fmt"
	"os"

	"serotonyl.ru/reward-engine/internal/api/middleware"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Использование: go run scripts/hash_admin_key.go <ключ>")
		os.Exit(1)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		fmt.Printf("Ошибка генерации соли: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Хеш ключа (вставьте в .env как ADMIN_KEY_HASH):")
	fmt.Println(middleware.HashAdminKey(os.Args[1], salt))
}
