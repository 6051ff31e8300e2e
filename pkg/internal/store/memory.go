package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory is the in-process adapter: a hierarchical tree of JSON-shaped values
// with the same observable semantics as the remote store. It backs tests and
// single-node deployments.
type Memory struct {
	mu   sync.Mutex
	root map[string]any
	hub  *hub
}

func NewMemory() *Memory {
	return &Memory{
		root: map[string]any{},
		hub:  newHub(),
	}
}

func (m *Memory) Read(_ context.Context, path string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.lookup(path)
	if !ok {
		return nil, nil
	}
	return cloneValue(value), nil
}

func (m *Memory) Write(_ context.Context, path string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dispatch(path, func() error {
		return m.set(path, cloneValue(value))
	})
}

func (m *Memory) Merge(_ context.Context, path string, partial map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dispatch(path, func() error {
		current, ok := m.lookup(path)
		mapping, isMap := current.(map[string]any)
		if !ok || !isMap {
			mapping = map[string]any{}
		}
		for key, value := range partial {
			if value == nil {
				delete(mapping, key)
				continue
			}
			mapping[key] = cloneValue(value)
		}
		return m.set(path, mapping)
	})
}

func (m *Memory) Append(_ context.Context, path string, value any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := NewPushKey()
	target := JoinPath(path, key)
	err := m.dispatch(target, func() error {
		return m.set(target, cloneValue(value))
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lookup(path); !ok {
		return nil
	}
	return m.dispatch(path, func() error {
		m.remove(path)
		return nil
	})
}

func (m *Memory) Query(_ context.Context, path string, opts QueryOpts) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.lookup(path)
	if !ok {
		return nil, nil
	}
	mapping, isMap := value.(map[string]any)
	if !isMap {
		return nil, fmt.Errorf("path %s does not hold a collection", path)
	}

	entries := make([]Entry, 0, len(mapping))
	for key, child := range mapping {
		entries = append(entries, Entry{Key: key, Value: cloneValue(child)})
	}
	return applyQuery(entries, opts), nil
}

// Watch opens a subscription and immediately delivers the current snapshot,
// matching the remote store's observe-then-stream contract.
func (m *Memory) Watch(path string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := m.hub.subscribe(path)
	emit(sub, Event{Type: EventSnapshot, Path: path, Value: m.snapshot(path)})
	return sub, nil
}

func (m *Memory) dispatch(changed string, mutate func() error) error {
	return m.hub.dispatch(changed,
		func(p string) bool { _, ok := m.lookup(p); return ok },
		m.snapshot,
		mutate,
	)
}

func (m *Memory) snapshot(path string) any {
	value, ok := m.lookup(path)
	if !ok {
		return nil
	}
	return cloneValue(value)
}

func (m *Memory) lookup(path string) (any, bool) {
	var current any = m.root
	for _, segment := range SplitPath(path) {
		mapping, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = mapping[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func (m *Memory) set(path string, value any) error {
	segments := SplitPath(path)
	if len(segments) == 0 {
		mapping, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("root value must be a mapping")
		}
		m.root = mapping
		return nil
	}

	current := m.root
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
	return nil
}

func (m *Memory) remove(path string) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		m.root = map[string]any{}
		return
	}

	current := m.root
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	delete(current, segments[len(segments)-1])
}
