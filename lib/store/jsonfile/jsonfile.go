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

// Package jsonfile is the production store.Backend: one file per key under
// a configured root directory, named after the key with a ".json" suffix
// (the certificate key "clientDeviceCerts/<id>" is stored in
// "<root>/clientDeviceCerts/<id>.json"). Writes are
// guarded with github.com/gofrs/flock so two processes sharing the same
// root directory never interleave a write to the same key.
package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/gravitational/trace"
	"golang.org/x/exp/slices"

	"github.com/edgekit/deviceauth/lib/store"
)

// Backend persists items as files under Root.
type Backend struct {
	root string
}

// New returns a Backend rooted at dir, creating it if necessary.
func New(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, trace.Wrap(err, "creating store root %q", dir)
	}
	return &Backend{root: dir}, nil
}

func (b *Backend) path(key string) string {
	return filepath.Join(b.root, filepath.FromSlash(key)+".json")
}

func (b *Backend) lockPath(key string) string {
	return filepath.Join(b.root, filepath.FromSlash(key)+".lock")
}

func (b *Backend) Get(_ context.Context, key string) (*store.Item, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, trace.NotFound("no item at key %q", key)
		}
		return nil, trace.Wrap(err, "reading key %q", key)
	}
	return &store.Item{Key: key, Value: data}, nil
}

func (b *Backend) Put(_ context.Context, item store.Item) error {
	path := b.path(item.Key)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return trace.Wrap(err, "creating parent directory for %q", item.Key)
	}

	lock := flock.New(b.lockPath(item.Key))
	if err := lock.Lock(); err != nil {
		return trace.Wrap(err, "locking key %q", item.Key)
	}
	defer lock.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, item.Value, 0o600); err != nil {
		return trace.Wrap(err, "writing key %q", item.Key)
	}
	if err := os.Rename(tmp, path); err != nil {
		return trace.Wrap(err, "committing key %q", item.Key)
	}
	return nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	lock := flock.New(b.lockPath(key))
	if err := lock.Lock(); err != nil {
		return trace.Wrap(err, "locking key %q", key)
	}
	defer lock.Unlock()

	if err := os.Remove(b.path(key)); err != nil && !os.IsNotExist(err) {
		return trace.Wrap(err, "deleting key %q", key)
	}
	return nil
}

func (b *Backend) GetRange(_ context.Context, prefix string) ([]store.Item, error) {
	root := filepath.Join(b.root, filepath.FromSlash(prefix))
	var out []store.Item
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), ".json")
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out = append(out, store.Item{Key: key, Value: data})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, trace.Wrap(err, "scanning prefix %q", prefix)
	}
	slices.SortFunc(out, func(a, b store.Item) bool { return a.Key < b.Key })
	return out, nil
}
