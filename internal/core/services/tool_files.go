package services

import (
	"context"
	"time"

	"github.com/manthysbr/toolchat/internal/core/domain"
	"github.com/manthysbr/toolchat/internal/core/ports"
)

type StoreReadInput struct {
	Path string `json:"path" jsonschema_description:"Key of the stored file (e.g. 'notes/todo.md')"`
}

type StoreWriteInput struct {
	Path    string `json:"path" jsonschema_description:"Key of the stored file; existing files are overwritten"`
	Content string `json:"content" jsonschema_description:"Text content to store"`
}

type StoreListInput struct {
	Prefix string `json:"prefix,omitempty" jsonschema_description:"Only list keys starting with this prefix"`
}

type storeEntry struct {
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

func NewStoreReadTool(files ports.FileStore) *domain.Tool {
	return &domain.Tool{
		Name:        "store_read",
		Description: "Read a text file from the persistent file store.",
		Parameters:  schemaFor[StoreReadInput](),
		Execute: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			in, err := bindArgs[StoreReadInput](params)
			if err != nil {
				return nil, err
			}
			p, err := domain.CleanFilePath(in.Path)
			if err != nil {
				return nil, err
			}
			f, err := files.GetFile(ctx, p)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"path":       f.Path,
				"content":    string(f.Data),
				"size_bytes": f.SizeBytes,
			}, nil
		},
	}
}

func NewStoreWriteTool(files ports.FileStore) *domain.Tool {
	return &domain.Tool{
		Name:        "store_write",
		Description: "Write a text file to the persistent file store, replacing any previous content.",
		Parameters:  schemaFor[StoreWriteInput](),
		Execute: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			in, err := bindArgs[StoreWriteInput](params)
			if err != nil {
				return nil, err
			}
			p, err := domain.CleanFilePath(in.Path)
			if err != nil {
				return nil, err
			}
			if err := files.PutFile(ctx, p, []byte(in.Content)); err != nil {
				return nil, err
			}
			return map[string]interface{}{"path": p, "size_bytes": len(in.Content)}, nil
		},
	}
}

func NewStoreListTool(files ports.FileStore) *domain.Tool {
	return &domain.Tool{
		Name:        "store_list",
		Description: "List files in the persistent file store, optionally filtered by key prefix.",
		Parameters:  schemaFor[StoreListInput](),
		Execute: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			in, err := bindArgs[StoreListInput](params)
			if err != nil {
				return nil, err
			}
			list, err := files.ListFiles(ctx, in.Prefix)
			if err != nil {
				return nil, err
			}
			entries := make([]storeEntry, 0, len(list))
			for _, f := range list {
				entries = append(entries, storeEntry{Path: f.Path, SizeBytes: f.SizeBytes, ModifiedAt: f.ModifiedAt})
			}
			return map[string]interface{}{"files": entries}, nil
		},
	}
}
