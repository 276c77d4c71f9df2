package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Dir - каталог Docker Secrets. Переменная для тестов.
var Dir = "/run/secrets"

// Read читает секрет из файла Docker Secrets.
func Read(secretName string) (string, error) {
	filePath := fmt.Sprintf("%s/%s", Dir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// ReadOptional возвращает секрет из файла, а если файла нет - значение переменной окружения envKey.
// Пустой результат означает, что секрет не задан.
func ReadOptional(secretName, envKey string) string {
	if secret, err := Read(secretName); err == nil {
		return secret
	}
	return strings.TrimSpace(os.Getenv(envKey))
}
