package converter

import (
	"fmt"
	"os"

	"github.com/miitarou/notebooklm-loader/classify"
)

// plainText reads a text file and normalizes it to UTF-8.
func (c *Converter) plainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return "", nil
	}
	text, err := classify.DecodeText(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return text, nil
}
