package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pratik-mahalle/watchpost/internal/domain/biometric"
)

type templateKey struct {
	modality biometric.Modality
	userID   int64
}

// TemplateStore keeps enrolled biometric templates in process
type TemplateStore struct {
	mu        sync.RWMutex
	templates map[templateKey]biometric.Template
	closed    bool
}

// NewTemplateStore creates an empty template store
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{templates: make(map[templateKey]biometric.Template)}
}

// Put stores or replaces a template
func (s *TemplateStore) Put(ctx context.Context, t biometric.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("template store is closed")
	}
	t.Encoding = append([]float64(nil), t.Encoding...)
	s.templates[templateKey{t.Modality, t.UserID}] = t
	return nil
}

// Get returns the template of one user
func (s *TemplateStore) Get(ctx context.Context, m biometric.Modality, userID int64) (biometric.Template, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return biometric.Template{}, false, fmt.Errorf("template store is closed")
	}
	t, ok := s.templates[templateKey{m, userID}]
	return t, ok, nil
}

// List returns every template of a modality ordered by user id
func (s *TemplateStore) List(ctx context.Context, m biometric.Modality) ([]biometric.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("template store is closed")
	}
	var out []biometric.Template
	for k, t := range s.templates {
		if k.modality == m {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Close drops every template
func (s *TemplateStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.templates = make(map[templateKey]biometric.Template)
	s.closed = true
	return nil
}
