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

// Package things is the registry of known client devices ("things") and
// their certificate attachments, consulting the Cloud Verifier only when
// the local cache cannot answer within the trust window.
package things

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/edgekit/deviceauth/api/types"
	"github.com/edgekit/deviceauth/lib/cloudverifier"
	"github.com/edgekit/deviceauth/lib/eventbus"
	"github.com/edgekit/deviceauth/lib/store"
)

const keyPrefix = "clientDeviceThings"

// Registry is the cache of thing-to-certificate attachments, backed by a
// store.Backend and consulting a cloudverifier.Verifier when the cache is
// stale or silent.
type Registry struct {
	backend  store.Backend
	verifier cloudverifier.Verifier
	bus      eventbus.Bus
	clock    clockwork.Clock

	group singleflight.Group
}

// New returns a Registry over backend, calling out through verifier and
// publishing to bus.
func New(backend store.Backend, verifier cloudverifier.Verifier, bus eventbus.Bus, clock clockwork.Clock) *Registry {
	return &Registry{backend: backend, verifier: verifier, bus: bus, clock: clock}
}

func thingKey(thingName string) string {
	return keyPrefix + "/" + thingName
}

func (r *Registry) get(ctx context.Context, thingName string) (*types.Thing, error) {
	item, err := r.backend.Get(ctx, thingKey(thingName))
	if trace.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, trace.Wrap(err)
	}
	var th types.Thing
	if err := json.Unmarshal(item.Value, &th); err != nil {
		return nil, trace.Wrap(err, "decoding stored thing %q", thingName)
	}
	return &th, nil
}

func (r *Registry) put(ctx context.Context, th types.Thing) error {
	data, err := json.Marshal(th)
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(r.backend.Put(ctx, store.Item{Key: thingKey(th.ThingName), Value: data}))
}

// GetOrCreate returns the thing named thingName, creating an empty record
// if none exists yet.
func (r *Registry) GetOrCreate(ctx context.Context, thingName string) (types.Thing, error) {
	v, err, _ := r.group.Do("get:"+thingName, func() (interface{}, error) {
		existing, err := r.get(ctx, thingName)
		if err != nil {
			return types.Thing{}, trace.Wrap(err)
		}
		if existing != nil {
			return *existing, nil
		}
		fresh := types.NewThing(thingName)
		if err := r.put(ctx, fresh); err != nil {
			return types.Thing{}, trace.Wrap(err)
		}
		return fresh, nil
	})
	if err != nil {
		return types.Thing{}, err
	}
	return v.(types.Thing), nil
}

// Update persists thing if it differs from the stored record, emitting
// ThingUpdated on the event bus. It is a no-op, with no event, when the
// record is unchanged.
func (r *Registry) Update(ctx context.Context, th types.Thing) (types.Thing, error) {
	existing, err := r.get(ctx, th.ThingName)
	if err != nil {
		return types.Thing{}, trace.Wrap(err)
	}
	if existing != nil && existing.Equal(th) {
		unchanged := true
		for id, verified := range th.AttachedCertificates {
			if !existing.AttachedCertificates[id].Equal(verified) {
				unchanged = false
				break
			}
		}
		if unchanged {
			return *existing, nil
		}
	}
	if err := r.put(ctx, th); err != nil {
		return types.Thing{}, trace.Wrap(err)
	}
	if r.bus != nil {
		r.bus.Publish(types.ThingUpdated{ThingName: th.ThingName})
	}
	return th, nil
}

// IsAttachedToCertificate reports whether thing is attached to the
// certificate with the given id, consulting the local cache first and
// falling back to the Cloud Verifier only when the cached record is
// missing or has aged past trustDuration.
func (r *Registry) IsAttachedToCertificate(ctx context.Context, thing types.Thing, certificateID string, trustDuration time.Duration) (bool, error) {
	now := r.clock.Now()
	if thing.IsAttachedWithinTrust(certificateID, now, trustDuration) {
		return true, nil
	}

	attached, err := r.verifier.VerifyThingAttached(ctx, thing.ThingName, certificateID)
	if err != nil {
		return false, trace.Wrap(err)
	}

	updated := thing.Clone()
	if attached {
		updated.AttachedCertificates[certificateID] = now
	} else {
		delete(updated.AttachedCertificates, certificateID)
	}
	if _, err := r.Update(ctx, updated); err != nil {
		return false, trace.Wrap(err)
	}
	return attached, nil
}

// FindThingNamesWithCertificate returns every thing name currently
// recorded as attached to certificateID. Lazy in the sense that it scans
// the backend range on each call rather than maintaining a reverse index.
func (r *Registry) FindThingNamesWithCertificate(ctx context.Context, certificateID string) ([]string, error) {
	items, err := r.backend.GetRange(ctx, keyPrefix)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	var names []string
	for _, item := range items {
		var th types.Thing
		if err := json.Unmarshal(item.Value, &th); err != nil {
			continue
		}
		if _, ok := th.AttachedCertificates[certificateID]; ok {
			names = append(names, th.ThingName)
		}
	}
	return names, nil
}
