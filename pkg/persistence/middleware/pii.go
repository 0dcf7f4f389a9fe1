package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
)

// Mask replaces every masked value.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks container values and
// data layer fields whose key matches one of the patterns. Masking happens
// on Save only; the live session keeps the real values.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("mask pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, snap *domain.Snapshot) error {
	// Copy so the caller's snapshot is never modified.
	masked := *snap
	masked.Values = make(map[string]domain.Value, len(snap.Values))
	for k, v := range snap.Values {
		if m.matches(k) {
			v = domain.String(Mask)
		}
		masked.Values[k] = v
	}
	masked.DataLayer = make([]domain.Entry, len(snap.DataLayer))
	for i, entry := range snap.DataLayer {
		masked.DataLayer[i] = domain.Entry(m.maskMap(entry))
	}

	return m.next.Save(ctx, &masked)
}

func (m *piiMiddleware) Load(ctx context.Context, containerID string) (*domain.Snapshot, error) {
	return m.next.Load(ctx, containerID)
}

func (m *piiMiddleware) Delete(ctx context.Context, containerID string) error {
	return m.next.Delete(ctx, containerID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

// maskMap returns a masked deep copy of in.
func (m *piiMiddleware) maskMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if m.matches(k) {
			out[k] = Mask
			continue
		}
		out[k] = m.maskAny(v)
	}
	return out
}

// maskAny masks nested maps, entries and slices; scalars pass through.
func (m *piiMiddleware) maskAny(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return m.maskMap(x)
	case domain.Entry:
		return domain.Entry(m.maskMap(x))
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = m.maskAny(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(x))
		for i, item := range x {
			out[i] = m.maskMap(item)
		}
		return out
	}
	return v
}
