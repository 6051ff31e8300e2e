package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Node is one stored record: the full path is the primary key and the value
// is the JSON mapping written at that path. Subtrees deeper than a written
// record live in their own rows and are assembled on read.
type Node struct {
	Path      string            `json:"path" gorm:"primaryKey"`
	Parent    string            `json:"parent" gorm:"index"`
	Key       string            `json:"key"`
	Value     datatypes.JSONMap `json:"value"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Postgres persists the tree in a node table. Watches are served by the same
// in-process hub as the memory adapter, fed on the write path; cross-process
// change delivery is out of scope here.
type Postgres struct {
	mu  sync.Mutex
	db  *gorm.DB
	hub *hub
}

func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db, hub: newHub()}
}

func (p *Postgres) Read(ctx context.Context, path string) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.assemble(ctx, path)
}

func (p *Postgres) Write(ctx context.Context, path string, value any) error {
	mapping, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("value at %s must be a mapping", path)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dispatch(ctx, path, func() error {
		return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := deleteSubtree(tx, path); err != nil {
				return err
			}
			return tx.Save(&Node{
				Path:   path,
				Parent: parentOf(path),
				Key:    lastSegment(path),
				Value:  datatypes.JSONMap(mapping),
			}).Error
		})
	})
}

func (p *Postgres) Merge(ctx context.Context, path string, partial map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dispatch(ctx, path, func() error {
		var node Node
		err := p.db.WithContext(ctx).Where("path = ?", path).First(&node).Error
		if err != nil && !isNotFound(err) {
			return err
		}
		if node.Value == nil {
			node = Node{
				Path:   path,
				Parent: parentOf(path),
				Key:    lastSegment(path),
				Value:  datatypes.JSONMap{},
			}
		}
		for key, value := range partial {
			if value == nil {
				delete(node.Value, key)
				continue
			}
			node.Value[key] = value
		}
		return p.db.WithContext(ctx).Save(&node).Error
	})
}

func (p *Postgres) Append(ctx context.Context, path string, value any) (string, error) {
	mapping, ok := value.(map[string]any)
	if !ok {
		return "", fmt.Errorf("value appended to %s must be a mapping", path)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	key := NewPushKey()
	target := JoinPath(path, key)
	err := p.dispatch(ctx, target, func() error {
		return p.db.WithContext(ctx).Save(&Node{
			Path:   target,
			Parent: path,
			Key:    key,
			Value:  datatypes.JSONMap(mapping),
		}).Error
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (p *Postgres) Delete(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dispatch(ctx, path, func() error {
		return deleteSubtree(p.db.WithContext(ctx), path)
	})
}

func (p *Postgres) Query(ctx context.Context, path string, opts QueryOpts) ([]Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	value, err := p.assemble(ctx, path)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	mapping, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("path %s does not hold a collection", path)
	}

	entries := make([]Entry, 0, len(mapping))
	for key, child := range mapping {
		entries = append(entries, Entry{Key: key, Value: child})
	}
	return applyQuery(entries, opts), nil
}

func (p *Postgres) Watch(path string) (*Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sub := p.hub.subscribe(path)
	snapshot, err := p.assemble(context.Background(), path)
	if err != nil {
		p.hub.remove(sub)
		return nil, err
	}
	emit(sub, Event{Type: EventSnapshot, Path: path, Value: snapshot})
	return sub, nil
}

func (p *Postgres) dispatch(ctx context.Context, changed string, mutate func() error) error {
	return p.hub.dispatch(changed,
		func(path string) bool {
			var count int64
			p.db.WithContext(ctx).Model(&Node{}).
				Where("path = ? OR path LIKE ?", path, path+"/%").
				Count(&count)
			return count > 0
		},
		func(path string) any {
			snapshot, err := p.assemble(ctx, path)
			if err != nil {
				return nil
			}
			return snapshot
		},
		mutate,
	)
}

// assemble rebuilds the subtree at path from its own row plus every
// descendant row, deeper rows overriding inline fields of shallower ones.
func (p *Postgres) assemble(ctx context.Context, path string) (any, error) {
	var nodes []Node
	if err := p.db.WithContext(ctx).
		Where("path = ? OR path LIKE ?", path, path+"/%").
		Order("path ASC").
		Find(&nodes).Error; err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	root := map[string]any{}
	for _, node := range nodes {
		value := map[string]any(node.Value)
		if node.Path == path {
			for key, child := range value {
				root[key] = child
			}
			continue
		}
		segments := SplitPath(node.Path[len(path)+1:])
		current := root
		for _, segment := range segments[:len(segments)-1] {
			next, ok := current[segment].(map[string]any)
			if !ok {
				next = map[string]any{}
				current[segment] = next
			}
			current = next
		}
		current[segments[len(segments)-1]] = map[string]any(value)
	}
	return root, nil
}

func deleteSubtree(tx *gorm.DB, path string) error {
	return tx.Where("path = ? OR path LIKE ?", path, path+"/%").Delete(&Node{}).Error
}

func parentOf(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[:idx]
	}
	return ""
}

func lastSegment(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
