package middleware

import (
	"context"
	"errors"
	"regexp"

	"github.com/colloquyhq/colloquy/pkg/domain"
	"github.com/colloquyhq/colloquy/pkg/ports"
)

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the values of slots and
// action outputs whose names match any of the patterns before persisting.
// The in-memory state the engine works with is left untouched; only the
// stored copy is redacted.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, conversationID string, state *domain.TurnState) error {
	cloned := state.Clone()

	for _, slots := range cloned.Slots {
		maskMap(slots, m.patterns)
	}
	for _, inst := range cloned.Stack {
		maskMap(inst.Outputs, m.patterns)
	}
	for _, inst := range cloned.History {
		maskMap(inst.Outputs, m.patterns)
	}

	return m.next.Save(ctx, conversationID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, conversationID string) (*domain.TurnState, error) {
	return m.next.Load(ctx, conversationID)
}

func (m *piiMiddleware) Delete(ctx context.Context, conversationID string) error {
	return m.next.Delete(ctx, conversationID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	if lister, ok := m.next.(ports.StateLister); ok {
		return lister.List(ctx)
	}
	return nil, errors.New("underlying store does not support listing")
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = "***"
				break
			}
		}

		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
