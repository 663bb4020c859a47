//go:build ignore

// issue_token.go — утилита для выпуска тестового HS256 токена.
// Запуск: go run scripts/issue_token.go <user_id> [username]
//
// Секрет берётся из JWT_SECRET (или .env). Токен передавайте как
// заголовок Authorization: Bearer <токен>.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Использование: go run scripts/issue_token.go <user_id> [username]")
		os.Exit(1)
	}

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Println("JWT_SECRET не задан")
		os.Exit(1)
	}

	userID, err := strconv.ParseInt(os.Args[1], 10, 64)
	if err != nil || userID <= 0 {
		fmt.Printf("Некорректный user_id: %s\n", os.Args[1])
		os.Exit(1)
	}

	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}
	if len(os.Args) > 2 {
		claims["username"] = os.Args[2]
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		fmt.Printf("Ошибка подписи токена: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Токен (действует 24 часа):")
	fmt.Println(signed)
}
