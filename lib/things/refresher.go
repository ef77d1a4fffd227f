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

package things

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/edgekit/deviceauth/api/types"
)

// Refresher is the optional background task that re-verifies
// thing/certificate attachments before they age out of the trust window,
// so a device's next connection attempt finds a warm cache entry instead
// of paying a cloud round trip inline. It owns one long-lived scan
// goroutine, started and stopped explicitly, and each scan pass fans out
// up to concurrency short-lived worker goroutines; nothing constructs or
// runs it implicitly.
type Refresher struct {
	registry      *Registry
	trustDuration time.Duration
	nearExpiry    time.Duration
	interval      time.Duration
	concurrency   int

	refreshGroup singleflight.Group
	log          *logrus.Entry

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
	closed chan struct{}
}

// NewRefresher returns a Refresher over registry. trustDuration must match
// the trust duration the Session Factory uses. nearExpiry is how far ahead
// of expiry an attachment is eligible for proactive re-check; interval is
// how often the registry is scanned; concurrency bounds the number of
// in-flight cloud calls at once.
func NewRefresher(registry *Registry, trustDuration, nearExpiry, interval time.Duration, concurrency int) *Refresher {
	return &Refresher{
		registry:      registry,
		trustDuration: trustDuration,
		nearExpiry:    nearExpiry,
		interval:      interval,
		concurrency:   concurrency,
		log:           logrus.WithField("component", "things.refresher"),
	}
}

// Start launches the background scan loop. Calling Start twice without an
// intervening Stop is a no-op.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := r.runOnce(runCtx); err != nil {
					r.log.WithError(err).Warn("attachment refresh pass failed")
				}
			}
		}
	}()
}

// Stop halts the background loop and waits for the in-flight pass, if any,
// to return. Safe to call when Start was never called.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// runOnce scans every known thing once, fanning out one re-verification
// call per attachment within nearExpiry of aging out of trustDuration.
func (r *Refresher) runOnce(ctx context.Context) error {
	items, err := r.registry.backend.GetRange(ctx, keyPrefix)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	now := r.registry.clock.Now()
	for _, item := range items {
		var th types.Thing
		if jsonErr := json.Unmarshal(item.Value, &th); jsonErr != nil {
			continue
		}
		for certID, verifiedAt := range th.AttachedCertificates {
			if now.Sub(verifiedAt) < r.trustDuration-r.nearExpiry {
				continue
			}
			thingName, certificateID := th.ThingName, certID
			g.Go(func() error {
				r.refreshOne(gctx, thingName, certificateID)
				return nil
			})
		}
	}
	return g.Wait()
}

func (r *Refresher) refreshOne(ctx context.Context, thingName, certificateID string) {
	_, _, _ = r.refreshGroup.Do(thingName+"/"+certificateID, func() (interface{}, error) {
		th, err := r.registry.get(ctx, thingName)
		if err != nil || th == nil {
			return nil, nil
		}
		if _, err := r.registry.IsAttachedToCertificate(ctx, *th, certificateID, 0); err != nil {
			r.log.WithError(err).WithField("thing", thingName).Warn("proactive attachment refresh failed")
		}
		return nil, nil
	})
}
