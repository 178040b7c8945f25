// Package docstore is the narrow port to the remote document database.
// Documents are JSON objects; collections are flat. Watch registrations
// deliver a full snapshot immediately and a full replacement after every
// change — consumers never see incremental diffs.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrPermissionDenied = errors.New("permission denied")
)

type Document struct {
	ID   string
	Data json.RawMessage
}

// CollectionHandler получает полный снимок коллекции либо ошибку подписки.
// Ошибка не завершает подписку: следующий успешный снимок придёт сюда же.
type CollectionHandler func(docs []Document, err error)

type DocHandler func(data json.RawMessage, exists bool, err error)

type Store interface {
	GetDoc(ctx context.Context, col, id string) (json.RawMessage, error)
	// SetDoc upserts the full document, replacing any previous content.
	SetDoc(ctx context.Context, col, id string, v any) error
	// UpdateDoc merges patch into the document at the top level.
	// Fails with ErrNotFound when the document does not exist.
	UpdateDoc(ctx context.Context, col, id string, patch map[string]any) error
	DeleteDoc(ctx context.Context, col, id string) error

	WatchCollection(col string, fn CollectionHandler) (cancel func())
	WatchDoc(col, id string, fn DocHandler) (cancel func())
}

// mergePatch накладывает patch поверх существующего JSON-объекта по верхним ключам.
func mergePatch(existing json.RawMessage, patch map[string]any) (json.RawMessage, error) {
	obj := map[string]any{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &obj); err != nil {
			return nil, err
		}
	}
	for k, v := range patch {
		obj[k] = v
	}
	return json.Marshal(obj)
}
