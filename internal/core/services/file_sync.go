package services

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/manthysbr/toolchat/internal/core/ports"
)

// ImportDir copies every regular file under root into the store, keyed by
// prefix joined with the slash-separated relative path. It returns the
// number of files imported.
func ImportDir(ctx context.Context, store ports.FileStore, root, prefix string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key, err := domain.CleanFilePath(path.Join(prefix, filepath.ToSlash(rel)))
		if err != nil {
			return err
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		if err := store.PutFile(ctx, key, data); err != nil {
			return fmt.Errorf("store %s: %w", key, err)
		}
		count++
		return nil
	})
	return count, err
}

// ExportDir writes every stored file under prefix into root, stripping the
// prefix from the key. Keys that would land outside root are rejected.
func ExportDir(ctx context.Context, store ports.FileStore, root, prefix string) (int, error) {
	files, err := store.ListFiles(ctx, prefix)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, f := range files {
		rel := strings.TrimPrefix(strings.TrimPrefix(f.Path, prefix), "/")
		if rel == "" {
			rel = path.Base(f.Path)
		}
		dest, err := ensurePathIsSafe(root, filepath.FromSlash(rel))
		if err != nil {
			return count, err
		}

		full, err := store.GetFile(ctx, f.Path)
		if err != nil {
			return count, fmt.Errorf("load %s: %w", f.Path, err)
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return count, err
		}
		if err := os.WriteFile(dest, full.Data, 0o644); err != nil {
			return count, fmt.Errorf("write %s: %w", dest, err)
		}
		count++
	}
	return count, nil
}
