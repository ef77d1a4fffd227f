/*
Copyright 2026 The EdgeKit Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package memory is an in-process store.Backend backed by a map, guarded by
// a single RWMutex. It is meant for tests and for hosts that accept losing
// registry state across restarts; production hosts should use
// store/jsonfile instead.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/gravitational/trace"

	"github.com/edgekit/deviceauth/lib/store"
)

// Backend is a map-backed store.Backend.
type Backend struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// New returns an empty in-memory backend.
func New() *Backend {
	return &Backend{items: map[string][]byte{}}
}

func (b *Backend) Get(_ context.Context, key string) (*store.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.items[key]
	if !ok {
		return nil, trace.NotFound("no item at key %q", key)
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return &store.Item{Key: key, Value: cp}, nil
}

func (b *Backend) Put(_ context.Context, item store.Item) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := make([]byte, len(item.Value))
	copy(cp, item.Value)
	b.items[item.Key] = cp
	return nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.items, key)
	return nil
}

func (b *Backend) GetRange(_ context.Context, prefix string) ([]store.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []store.Item
	for k, v := range b.items {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		cp := make([]byte, len(v))
		copy(cp, v)
		out = append(out, store.Item{Key: k, Value: cp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
