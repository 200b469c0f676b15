package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
)

// DefaultPathManager implements path management functionality
type DefaultPathManager struct{}

// NewDefaultPathManager creates a new path manager
func NewDefaultPathManager() *DefaultPathManager {
	return &DefaultPathManager{}
}

// OutputDir returns <root>/<SYMBOL>_<strategy-slug>
func (p *DefaultPathManager) OutputDir(root, symbol, strategy string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		s = "UNKNOWN"
	}
	name := slug(strategy)
	if name == "" {
		name = "strategy"
	}
	if root == "" {
		root = "results"
	}
	return filepath.Join(root, fmt.Sprintf("%s_%s", s, name))
}

// EnsureDirectoryExists creates the parent directory of path
func (p *DefaultPathManager) EnsureDirectoryExists(path string) error {
	return ensureDir(path)
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return bterrors.Wrap(err, bterrors.KindData, "reporting", "mkdir", "cannot create "+dir)
		}
	}
	return nil
}

// slug keeps letters, digits, dot and dash; everything else becomes '-'.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
