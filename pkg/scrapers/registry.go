package scrapers

import "fmt"

// Registry holds the configured fetchers in registration order. That order
// is the merge order of the aggregated result, so it must be stable.
type Registry struct {
	order    []string
	fetchers map[string]Fetcher
}

func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]Fetcher)}
}

func (r *Registry) Register(f Fetcher) error {
	name := f.Store()
	if _, exists := r.fetchers[name]; exists {
		return fmt.Errorf("store %q already registered", name)
	}
	r.fetchers[name] = f
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(store string) (Fetcher, bool) {
	f, ok := r.fetchers[store]
	return f, ok
}

// Stores returns the registered store names in registration order.
func (r *Registry) Stores() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}
