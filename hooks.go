package worldstat

import (
	"sync"

	"github.com/agentstation/worldstat/pkg/document"
	"github.com/agentstation/worldstat/pkg/sources"
)

// Hook function types for run events
type (
	// PublishedHook is called after a document was published
	PublishedHook func(doc *document.Document, path string)

	// SourceFailedHook is called when a source produced no usable batch
	SourceFailedHook func(id sources.ID, err error)
)

// hooks manages event callbacks for runs
type hooks struct {
	mu             sync.RWMutex
	onPublished    []PublishedHook
	onSourceFailed []SourceFailedHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnPublished registers a callback for published documents
func (h *hooks) OnPublished(fn PublishedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPublished = append(h.onPublished, fn)
}

// OnSourceFailed registers a callback for failed sources
func (h *hooks) OnSourceFailed(fn SourceFailedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onSourceFailed = append(h.onSourceFailed, fn)
}

func (h *hooks) triggerPublished(doc *document.Document, path string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onPublished {
		hook(doc, path)
	}
}

func (h *hooks) triggerSourceFailed(id sources.ID, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onSourceFailed {
		hook(id, err)
	}
}
