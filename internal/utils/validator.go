package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	apperrors "github.com/mbocharov/tinylink/internal/errors"
)

const MaxCustomCodeLength = 32

var codeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Коды которые заняты маршрутами сервиса
var reservedCodes = []string{"api", "health", "info", "static"}

func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return apperrors.NewValidationError("url", "URL cannot be empty")
	}

	if len(rawURL) > 2048 {
		return apperrors.NewValidationError("url", "URL is too long (max 2048 characters)")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return apperrors.NewValidationError("url", fmt.Sprintf("invalid URL format: %v", err))
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return apperrors.NewValidationError("url", "URL must start with http:// or https://")
	}

	if parsedURL.Host == "" {
		return apperrors.NewValidationError("url", "URL must contain a valid host")
	}

	return nil
}

// ValidateCustomCode проверяет пользовательский код: длина, набор символов,
// зарезервированные имена. Занятость кода проверяет только хранилище.
func ValidateCustomCode(code string) error {
	if code == "" {
		return apperrors.NewValidationError("customCode", "custom code cannot be empty")
	}

	if len(code) > MaxCustomCodeLength {
		return apperrors.NewValidationError("customCode",
			fmt.Sprintf("custom code is too long (max %d characters)", MaxCustomCodeLength))
	}

	if !codeRegex.MatchString(code) {
		return apperrors.NewValidationError("customCode",
			"custom code must contain only letters, numbers, hyphens, and underscores")
	}

	for _, r := range reservedCodes {
		if strings.EqualFold(code, r) {
			return apperrors.NewValidationError("customCode", "this code is reserved")
		}
	}

	return nil
}

func SanitizeInput(input string) string {
	// Удаляем управляющие символы и обрезаем пробелы
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1 // удаляем символ
		}
		return r
	}, input)

	return strings.TrimSpace(result)
}
