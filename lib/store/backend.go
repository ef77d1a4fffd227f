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

// Package store defines the small key/value persistence seam that the
// Certificate Registry and Thing Registry are built over — the same role
// backend.Backend plays for teleport's services/local registries (each
// embeds a backend.Backend and turns Get/Put/GetRange calls into typed
// resources). Two implementations are provided: store/memory for tests and
// store/jsonfile for the on-disk layout of the runtime's cached registries.
package store

import (
	"context"

	"github.com/gravitational/trace"
)

// Item is one key/value pair as stored under the registries' logical tree
// (e.g. "clientDeviceCerts/<id>").
type Item struct {
	Key   string
	Value []byte
}

// Backend is the minimal key/value contract the registries need. Keys are
// '/'-joined logical paths; Prefix range reads return every item whose key
// begins with the given prefix.
type Backend interface {
	// Get returns the item at key, or trace.NotFound if absent.
	Get(ctx context.Context, key string) (*Item, error)
	// Put creates or overwrites the item at key.
	Put(ctx context.Context, item Item) error
	// Delete removes the item at key. No-op if absent.
	Delete(ctx context.Context, key string) error
	// GetRange returns every item whose key begins with prefix, sorted by
	// key, for lazy iteration-style lookups such as
	// findThingNamesWithCertificate.
	GetRange(ctx context.Context, prefix string) ([]Item, error)
}

// notFound builds the trace.NotFound error for a Get miss at key.
func notFound(key string) error {
	return trace.NotFound("no item at key %q", key)
}
