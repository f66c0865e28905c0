package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultOutputDir returns results/<PRODUCT> for a product id
func DefaultOutputDir(productID string) string {
	p := strings.ToUpper(strings.TrimSpace(productID))
	if p == "" {
		p = "UNKNOWN"
	}
	return filepath.Join("results", p)
}

// EnsureDirectoryExists creates the parent directory of path if needed
func EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
