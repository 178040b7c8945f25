package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DocumentRow — строка таблицы documents: одна JSONB-запись на документ.
type DocumentRow struct {
	Collection string    `gorm:"primaryKey;type:text"`
	DocID      string    `gorm:"primaryKey;type:text;column:doc_id"`
	Data       []byte    `gorm:"type:jsonb;not null"`
	UpdatedAt  time.Time `gorm:"not null;default:now();index"`
}

func (DocumentRow) TableName() string { return "documents" }

// Postgres backs the Store port with a single documents table. Remote
// changes from other writers are picked up by a per-collection poller;
// local writes refresh watchers immediately.
type Postgres struct {
	db       *gorm.DB
	log      *zap.Logger
	interval time.Duration

	mu      sync.Mutex
	watches map[string]*colWatch
	nextSub int
}

type colWatch struct {
	handlers    map[int]CollectionHandler
	docHandlers map[string]map[int]DocHandler
	stop        chan struct{}
	fingerprint string
}

func NewPostgres(db *gorm.DB, pollInterval time.Duration, log *zap.Logger) *Postgres {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Postgres{
		db:       db,
		log:      log,
		interval: pollInterval,
		watches:  map[string]*colWatch{},
	}
}

func (p *Postgres) GetDoc(ctx context.Context, col, id string) (json.RawMessage, error) {
	var row DocumentRow
	err := p.db.WithContext(ctx).First(&row, "collection = ? AND doc_id = ?", col, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.Data, nil
}

func (p *Postgres) SetDoc(ctx context.Context, col, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	err = p.db.WithContext(ctx).Exec(
		`INSERT INTO documents (collection, doc_id, data, updated_at) VALUES (?, ?, ?, now())
		 ON CONFLICT (collection, doc_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		col, id, raw,
	).Error
	if err != nil {
		return err
	}
	p.refresh(col)
	return nil
}

func (p *Postgres) UpdateDoc(ctx context.Context, col, id string, patch map[string]any) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row DocumentRow
		if err := tx.First(&row, "collection = ? AND doc_id = ?", col, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		merged, err := mergePatch(row.Data, patch)
		if err != nil {
			return err
		}
		return tx.Model(&DocumentRow{}).
			Where("collection = ? AND doc_id = ?", col, id).
			Updates(map[string]any{"data": []byte(merged), "updated_at": time.Now()}).Error
	})
	if err != nil {
		return err
	}
	p.refresh(col)
	return nil
}

func (p *Postgres) DeleteDoc(ctx context.Context, col, id string) error {
	err := p.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", col, id).
		Delete(&DocumentRow{}).Error
	if err != nil {
		return err
	}
	p.refresh(col)
	return nil
}

func (p *Postgres) WatchCollection(col string, fn CollectionHandler) (cancel func()) {
	p.mu.Lock()
	w := p.ensureWatchLocked(col)
	id := p.nextSub
	p.nextSub++
	w.handlers[id] = fn
	p.mu.Unlock()

	docs, fp, err := p.load(col)
	if err == nil {
		p.mu.Lock()
		w.fingerprint = fp
		p.mu.Unlock()
	}
	fn(docs, err)

	return func() { p.unsubscribe(col, id, "") }
}

func (p *Postgres) WatchDoc(col, docID string, fn DocHandler) (cancel func()) {
	p.mu.Lock()
	w := p.ensureWatchLocked(col)
	if w.docHandlers[docID] == nil {
		w.docHandlers[docID] = map[int]DocHandler{}
	}
	id := p.nextSub
	p.nextSub++
	w.docHandlers[docID][id] = fn
	p.mu.Unlock()

	data, err := p.GetDoc(context.Background(), col, docID)
	switch {
	case errors.Is(err, ErrNotFound):
		fn(nil, false, nil)
	case err != nil:
		fn(nil, false, err)
	default:
		fn(data, true, nil)
	}

	return func() { p.unsubscribe(col, id, docID) }
}

func (p *Postgres) ensureWatchLocked(col string) *colWatch {
	w, ok := p.watches[col]
	if !ok {
		w = &colWatch{
			handlers:    map[int]CollectionHandler{},
			docHandlers: map[string]map[int]DocHandler{},
			stop:        make(chan struct{}),
		}
		p.watches[col] = w
		go p.poll(col, w.stop)
	}
	return w
}

func (p *Postgres) unsubscribe(col string, id int, docID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.watches[col]
	if !ok {
		return
	}
	if docID == "" {
		delete(w.handlers, id)
	} else {
		delete(w.docHandlers[docID], id)
		if len(w.docHandlers[docID]) == 0 {
			delete(w.docHandlers, docID)
		}
	}
	if len(w.handlers) == 0 && len(w.docHandlers) == 0 {
		close(w.stop)
		delete(p.watches, col)
	}
}

func (p *Postgres) poll(col string, stop chan struct{}) {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			p.refresh(col)
		}
	}
}

// refresh перечитывает коллекцию и рассылает снимок, если она изменилась.
func (p *Postgres) refresh(col string) {
	p.mu.Lock()
	w, ok := p.watches[col]
	p.mu.Unlock()
	if !ok {
		return
	}

	docs, fp, err := p.load(col)
	if err != nil {
		p.log.Warn("docstore: collection refresh failed", zap.String("collection", col), zap.Error(err))
		p.fanout(col, nil, err, true)
		return
	}

	p.mu.Lock()
	changed := w.fingerprint != fp
	w.fingerprint = fp
	p.mu.Unlock()
	if changed {
		p.fanout(col, docs, nil, false)
	}
}

func (p *Postgres) fanout(col string, docs []Document, err error, failed bool) {
	p.mu.Lock()
	w, ok := p.watches[col]
	if !ok {
		p.mu.Unlock()
		return
	}
	colFns := make([]CollectionHandler, 0, len(w.handlers))
	for _, fn := range w.handlers {
		colFns = append(colFns, fn)
	}
	type docSub struct {
		id string
		fn DocHandler
	}
	docFns := []docSub{}
	for docID, subs := range w.docHandlers {
		for _, fn := range subs {
			docFns = append(docFns, docSub{id: docID, fn: fn})
		}
	}
	p.mu.Unlock()

	for _, fn := range colFns {
		fn(docs, err)
	}
	byID := map[string]Document{}
	for _, d := range docs {
		byID[d.ID] = d
	}
	for _, s := range docFns {
		if failed {
			s.fn(nil, false, err)
			continue
		}
		d, exists := byID[s.id]
		s.fn(d.Data, exists, nil)
	}
}

func (p *Postgres) load(col string) ([]Document, string, error) {
	var rows []DocumentRow
	err := p.db.Where("collection = ?", col).Order("doc_id").Find(&rows).Error
	if err != nil {
		return nil, "", err
	}
	docs := make([]Document, 0, len(rows))
	fp := fmt.Sprintf("n=%d", len(rows))
	for _, r := range rows {
		docs = append(docs, Document{ID: r.DocID, Data: r.Data})
		fp += fmt.Sprintf(";%s@%d", r.DocID, r.UpdatedAt.UnixNano())
	}
	return docs, fp, nil
}
