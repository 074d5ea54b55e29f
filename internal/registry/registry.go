// Package registry tracks scanned markup documents and view-model types and
// broadcasts change events to interested consumers such as watch mode and the
// diagnostics server.
package registry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bindc-dev/bindc/internal/types"
)

// Registry manages all discovered documents and view-model types
type Registry struct {
	documents map[string]*types.DocumentInfo
	typeTable map[string]*types.TypeInfo
	mutex     sync.RWMutex
	watchers  []chan types.DocumentEvent
}

// NewRegistry creates a new document/type registry
func NewRegistry() *Registry {
	return &Registry{
		documents: make(map[string]*types.DocumentInfo),
		typeTable: make(map[string]*types.TypeInfo),
		watchers:  make([]chan types.DocumentEvent, 0),
	}
}

// RegisterDocument adds or updates a document in the registry
func (r *Registry) RegisterDocument(doc *types.DocumentInfo) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := types.EventTypeAdded
	if _, exists := r.documents[doc.Name]; exists {
		eventType = types.EventTypeUpdated
	}

	r.documents[doc.Name] = doc

	r.notify(types.DocumentEvent{
		Type:      eventType,
		Document:  doc,
		Timestamp: time.Now(),
	})
}

// GetDocument retrieves a document by name
func (r *Registry) GetDocument(name string) (*types.DocumentInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	doc, exists := r.documents[name]
	return doc, exists
}

// Documents returns all registered documents sorted by name
func (r *Registry) Documents() []*types.DocumentInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*types.DocumentInfo, 0, len(r.documents))
	for _, doc := range r.documents {
		result = append(result, doc)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// RemoveDocument removes a document from the registry
func (r *Registry) RemoveDocument(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	doc, exists := r.documents[name]
	if !exists {
		return
	}

	delete(r.documents, name)

	r.notify(types.DocumentEvent{
		Type:      types.EventTypeRemoved,
		Document:  doc,
		Timestamp: time.Now(),
	})
}

// RegisterType adds or updates a view-model type in the type table
func (r *Registry) RegisterType(t *types.TypeInfo) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.typeTable[t.Name] = t
}

// LookupType resolves a type name against the type table. Qualified names
// ("vm.Customer") match on the unqualified part when a package-qualified
// entry is absent.
func (r *Registry) LookupType(name string) (*types.TypeInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if t, ok := r.typeTable[name]; ok {
		return t, true
	}
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		if t, ok := r.typeTable[name[idx+1:]]; ok {
			return t, true
		}
	}
	return nil, false
}

// Types returns all registered view-model types sorted by name
func (r *Registry) Types() []*types.TypeInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*types.TypeInfo, 0, len(r.typeTable))
	for _, t := range r.typeTable {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// RemoveType removes a view-model type from the type table
func (r *Registry) RemoveType(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.typeTable, name)
}

// Watch returns a channel that receives document events
func (r *Registry) Watch() <-chan types.DocumentEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan types.DocumentEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *Registry) UnWatch(ch <-chan types.DocumentEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// DocumentCount returns the number of registered documents
func (r *Registry) DocumentCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.documents)
}

// TypeCount returns the number of registered view-model types
func (r *Registry) TypeCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.typeTable)
}

// notify must be called with the mutex held.
func (r *Registry) notify(event types.DocumentEvent) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}
