package bmx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/MrSnakeDoc/soundgate/internal/domain"
)

// SanitizeFilename keeps letters, digits, '.', '-' and '_'.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_' {
			return r
		}
		return -1
	}, name)
}

// MediaPath resolves name inside dir. Only regular files are served.
func MediaPath(dir, name string) (string, error) {
	clean := SanitizeFilename(name)
	if clean == "" || strings.Trim(clean, ".") == "" {
		return "", fmt.Errorf("media %q: %w", name, domain.ErrNotFound)
	}
	p := filepath.Join(dir, clean)
	fi, err := os.Stat(p)
	if err != nil || !fi.Mode().IsRegular() {
		return "", fmt.Errorf("media %q: %w", name, domain.ErrNotFound)
	}
	return p, nil
}
