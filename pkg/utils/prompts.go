package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadPrompt reads persona instructions from an exact file path. Surrounding whitespace is trimmed
// and an empty file is treated as an error so a blank persona never reaches a model
func LoadPrompt(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("file does not exist: %s", filePath)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	prompt := strings.TrimSpace(string(content))
	if prompt == "" {
		return "", fmt.Errorf("prompt file %s is empty", filePath)
	}

	return prompt, nil
}
