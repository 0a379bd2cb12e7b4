package utils

import (
	"strings"
	"testing"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode()
	if err != nil {
		t.Fatalf("GenerateCode() error = %v", err)
	}

	if len(code) != DefaultCodeLength {
		t.Errorf("GenerateCode() length = %d, want %d", len(code), DefaultCodeLength)
	}

	for _, char := range code {
		if !strings.ContainsRune(alphabet, char) {
			t.Errorf("GenerateCode() contains invalid character: %c", char)
		}
	}
}

func TestGenerateCodeWithLength(t *testing.T) {
	tests := []struct {
		name   string
		length int
	}{
		{"length 1", 1},
		{"length 4", 4},
		{"length 8", 8},
		{"length 12", 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := GenerateCodeWithLength(tt.length)
			if err != nil {
				t.Errorf("GenerateCodeWithLength(%d) error = %v", tt.length, err)
				return
			}

			if len(code) != tt.length {
				t.Errorf("GenerateCodeWithLength(%d) length = %d, want %d", tt.length, len(code), tt.length)
			}

			for _, char := range code {
				if !strings.ContainsRune(alphabet, char) {
					t.Errorf("GenerateCodeWithLength(%d) contains invalid character: %c", tt.length, char)
				}
			}
		})
	}
}

func TestGenerateCodeUniqueness(t *testing.T) {
	generated := make(map[string]bool)
	iterations := 1000

	for i := 0; i < iterations; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode() error = %v", err)
		}

		if generated[code] {
			t.Errorf("GenerateCode() generated duplicate: %s", code)
		}
		generated[code] = true
	}
}

func TestGenerateCodeIsURLSafe(t *testing.T) {
	// Коды попадают в path короткой ссылки как есть
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode() error = %v", err)
		}

		if strings.ContainsAny(code, "/?#%& ") {
			t.Errorf("GenerateCode() = %q contains URL-unsafe characters", code)
		}
	}
}
