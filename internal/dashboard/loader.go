package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

var ErrUnknownModule = errors.New("unknown module")

// ModuleFactory builds a domain module.
type ModuleFactory func() (Module, error)

// ModuleLoader builds each module on first use and memoizes it. Concurrent
// first calls share a single construction.
type ModuleLoader struct {
	factories map[string]ModuleFactory

	mu      sync.RWMutex
	modules map[string]Module
	group   singleflight.Group
}

func NewModuleLoader(factories map[string]ModuleFactory) *ModuleLoader {
	return &ModuleLoader{
		factories: factories,
		modules:   make(map[string]Module),
	}
}

func (l *ModuleLoader) Get(ctx context.Context, name string) (Module, error) {
	l.mu.RLock()
	m, ok := l.modules[name]
	l.mu.RUnlock()
	if ok {
		return m, nil
	}

	factory, ok := l.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}

	v, err, _ := l.group.Do(name, func() (any, error) {
		l.mu.RLock()
		if m, ok := l.modules[name]; ok {
			l.mu.RUnlock()
			return m, nil
		}
		l.mu.RUnlock()

		m, err := factory()
		if err != nil {
			return nil, fmt.Errorf("failed to build module %s: %w", name, err)
		}
		l.mu.Lock()
		l.modules[name] = m
		l.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.(Module), nil
}

// Loaded reports whether name has been built.
func (l *ModuleLoader) Loaded(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.modules[name]
	return ok
}
