package tenant

import (
	"sync"

	"go.uber.org/zap"
)

// Registry keeps one Scope per signed-in user.
type Registry struct {
	dir    Directory
	tables Tables
	logger *zap.Logger

	mu     sync.Mutex
	scopes map[string]*Scope
}

func NewRegistry(dir Directory, tables Tables, logger *zap.Logger) *Registry {
	return &Registry{
		dir:    dir,
		tables: tables,
		logger: logger,
		scopes: make(map[string]*Scope),
	}
}

// Scope returns the scope of userID, creating an uninitialized one on
// first use.
func (r *Registry) Scope(userID string) *Scope {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.scopes[userID]
	if !ok {
		s = NewScope(userID, r.dir, r.tables, r.logger)
		r.scopes[userID] = s
	}
	return s
}

// Lookup returns the scope of userID if one is open.
func (r *Registry) Lookup(userID string) (*Scope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.scopes[userID]
	return s, ok
}

// Close resets and forgets the scope of userID.
func (r *Registry) Close(userID string) {
	r.mu.Lock()
	s, ok := r.scopes[userID]
	delete(r.scopes, userID)
	r.mu.Unlock()

	if ok {
		s.Reset()
	}
}
