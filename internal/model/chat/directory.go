package chat

import "sync"

// Directory holds the correspondents available for the current chat activation.
type Directory struct {
	mu    sync.RWMutex
	items []Correspondent
}

// NewDirectory returns a Directory preloaded with the supplied correspondents.
func NewDirectory(items []Correspondent) *Directory {
	return &Directory{items: append([]Correspondent(nil), items...)}
}

// Replace swaps the whole listing.
func (d *Directory) Replace(items []Correspondent) {
	d.mu.Lock()
	d.items = append([]Correspondent(nil), items...)
	d.mu.Unlock()
}

// List returns the listing in server order.
func (d *Directory) List() []Correspondent {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Correspondent, len(d.items))
	copy(out, d.items)
	return out
}

// FindByID looks up a correspondent by identifier.
func (d *Directory) FindByID(id string) (Correspondent, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, item := range d.items {
		if item.ID == id {
			return item, true
		}
	}
	return Correspondent{}, false
}
