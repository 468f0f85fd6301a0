package vault

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Scanner enumerates markdown files under a root directory
type Scanner struct {
	ignorePatterns []string
}

// ScannerOption configures a Scanner
type ScannerOption func(*Scanner)

// WithIgnorePatterns sets ignore patterns for the scanner
func WithIgnorePatterns(patterns []string) ScannerOption {
	return func(s *Scanner) {
		s.ignorePatterns = patterns
	}
}

// NewScanner creates a new scanner with optional configuration
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListMarkdown walks root and returns relative paths of all .md files.
// Dot-prefixed directories are skipped. A missing or unreadable root
// yields no paths and no error: callers treat "no notes" and "not
// found" identically.
func (s *Scanner) ListMarkdown(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // unreadable subtree, keep walking
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if rel != "." && (strings.HasPrefix(d.Name(), ".") || s.shouldIgnore(rel)) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(path, ".md") || s.shouldIgnore(rel) {
			return nil
		}

		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, nil
	}
	return paths, nil
}

// shouldIgnore checks if a relative path matches any ignore pattern
func (s *Scanner) shouldIgnore(path string) bool {
	for _, pattern := range s.ignorePatterns {
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
		// Patterns like "archive/*" also cover deeper descendants
		if strings.Contains(pattern, "/*") {
			prefix := strings.TrimSuffix(pattern, "/*")
			if strings.HasPrefix(path, prefix+"/") || path == prefix {
				return true
			}
		}
	}
	return false
}
