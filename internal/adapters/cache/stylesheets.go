package cache

import "sync"

// Stylesheets holds the stylesheet text of every compiled styling module,
// keyed by normalized path, until the host build asks for it.
type Stylesheets struct {
	mu  sync.RWMutex
	css map[string]string
}

func NewStylesheets() *Stylesheets {
	return &Stylesheets{css: make(map[string]string)}
}

func (s *Stylesheets) Set(key, css string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.css[key] = css
}

func (s *Stylesheets) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.css, key)
}

func (s *Stylesheets) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	css, ok := s.css[key]
	return css, ok
}
