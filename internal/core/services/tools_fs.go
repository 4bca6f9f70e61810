package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/manthysbr/toolchat/internal/core/domain"
)

// MaxDocBytes caps the content returned by read_docs_file
const MaxDocBytes = 16 * 1024

var docExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// ensurePathIsSafe strictly validates that the requested path is within root.
func ensurePathIsSafe(root, requestedPath string) (string, error) {
	if filepath.IsAbs(requestedPath) {
		return "", fmt.Errorf("%w: %q is absolute", domain.ErrInvalidPath, requestedPath)
	}
	cleanRoot := filepath.Clean(root)
	cleanPath := filepath.Clean(filepath.Join(cleanRoot, requestedPath))

	rel, err := filepath.Rel(cleanRoot, cleanPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q is outside %s", domain.ErrInvalidPath, requestedPath, root)
	}
	return cleanPath, nil
}

type ReadDocsInput struct {
	Filename string `json:"filename" jsonschema_description:"Name of a .md, .markdown or .txt file in the docs directory (no directories)"`
}

// NewReadDocsTool reads a text document from docsRoot. Refusals and read
// failures come back as {"error": ...} values so the model can see them.
func NewReadDocsTool(docsRoot string) *domain.Tool {
	return &domain.Tool{
		Name:        "read_docs_file",
		Description: "Read a markdown or text file from the local docs directory and return its text content.",
		Parameters:  schemaFor[ReadDocsInput](),
		Execute: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			in, err := bindArgs[ReadDocsInput](params)
			if err != nil {
				return nil, err
			}
			return readDoc(docsRoot, in.Filename), nil
		},
	}
}

func readDoc(root, filename string) map[string]interface{} {
	if strings.TrimSpace(filename) == "" {
		return map[string]interface{}{"error": "filename is required"}
	}
	if strings.ContainsAny(filename, `/\`) || filename == ".." {
		return map[string]interface{}{"error": "invalid filename"}
	}
	if !docExtensions[strings.ToLower(filepath.Ext(filename))] {
		return map[string]interface{}{"error": fmt.Sprintf("filename not allowed: %s", filename)}
	}

	path, err := ensurePathIsSafe(root, filename)
	if err != nil {
		return map[string]interface{}{"error": "invalid filename"}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]interface{}{"error": fmt.Sprintf("file not found: %s", filename)}
		}
		return map[string]interface{}{"error": fmt.Sprintf("read error: %v", err)}
	}

	if len(content) > MaxDocBytes {
		return map[string]interface{}{
			"filename":  filename,
			"content":   string(content[:MaxDocBytes]),
			"truncated": true,
			"max_bytes": MaxDocBytes,
		}
	}
	return map[string]interface{}{"filename": filename, "content": string(content)}
}
