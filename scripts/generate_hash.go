//go:build ignore

// generate_hash.go готовит значение ADMIN_PASSWORD_HASH для движка.
// Пароль читается со стандартного ввода, чтобы не попадать в историю
// шелла:
//
//	echo -n 'пароль' | go run scripts/generate_hash.go
//
// Строка результата целиком добавляется в .env; параметры Argon2id
// совпадают с проверкой в internal/features/admin.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	memory      uint32 = 64 * 1024
	iterations  uint32 = 3
	parallelism uint8  = 2
	keyLength   uint32 = 32
)

func main() {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ошибка чтения пароля: %v\n", err)
		os.Exit(1)
	}
	password := strings.TrimRight(string(raw), "\r\n")
	if password == "" {
		fmt.Fprintln(os.Stderr, "пустой ввод: передайте пароль на stdin")
		os.Exit(1)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		fmt.Fprintf(os.Stderr, "ошибка генерации соли: %v\n", err)
		os.Exit(1)
	}

	hash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, keyLength)

	fmt.Printf("ADMIN_PASSWORD_HASH=$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s\n",
		memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}
