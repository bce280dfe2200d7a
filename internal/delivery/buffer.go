package delivery

import (
	"context"
	"sync"

	"shinobi/internal/export"
)

// Buffer keeps delivered documents in memory.
type Buffer struct {
	mu   sync.Mutex
	docs []export.Document
}

var _ export.Delivery = (*Buffer)(nil)

func (b *Buffer) Deliver(_ context.Context, doc export.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs = append(b.docs, doc)
	return nil
}

// Last returns the most recently delivered document.
func (b *Buffer) Last() (export.Document, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.docs) == 0 {
		return export.Document{}, false
	}
	return b.docs[len(b.docs)-1], true
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.docs)
}
