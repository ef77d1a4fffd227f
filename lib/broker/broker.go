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

// Package broker wires the registries, group manager, permission
// evaluator and session factory/manager into the single facade a host
// runtime embeds. Broker is instantiated once at startup; it holds no
// global mutable state and owns no goroutine of its own beyond the
// optional background refresher, which must be started and stopped
// explicitly.
package broker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"

	"github.com/edgekit/deviceauth/api/types"
	"github.com/edgekit/deviceauth/lib/authz"
	"github.com/edgekit/deviceauth/lib/certs"
	"github.com/edgekit/deviceauth/lib/cloudverifier"
	"github.com/edgekit/deviceauth/lib/eventbus"
	"github.com/edgekit/deviceauth/lib/groups"
	"github.com/edgekit/deviceauth/lib/session"
	"github.com/edgekit/deviceauth/lib/store"
	"github.com/edgekit/deviceauth/lib/things"
)

// Recorder observes how long each public Broker operation took. Wiring it
// to a real metrics sink is left to the host runtime; Broker itself never
// exports metrics.
type Recorder interface {
	RecordDuration(operation string, d time.Duration)
}

// NoopRecorder discards every observation. It is the default when no
// Recorder is supplied.
type NoopRecorder struct{}

// RecordDuration implements Recorder.
func (NoopRecorder) RecordDuration(string, time.Duration) {}

// Broker is the single type a host runtime constructs at startup.
type Broker struct {
	certs    *certs.Registry
	things   *things.Registry
	groups   *groups.Manager
	sessions *session.Manager
	factory  *session.Factory
	bus      eventbus.Bus
	refresh  *things.Refresher
	recorder Recorder

	newSessionID func() string
}

// Options configures New.
type Options struct {
	Backend                 store.Backend
	Verifier                cloudverifier.Verifier
	Clock                   clockwork.Clock
	TrustDuration           time.Duration
	IsComponent             session.ComponentCredentialChecker
	Recorder                Recorder
	RefreshInterval         time.Duration
	RefreshNearExpiryWindow time.Duration
	RefreshConcurrency      int
}

// New wires every collaborator together from Options. Clock defaults to
// clockwork.NewRealClock, Recorder to NoopRecorder.
func New(opts Options) *Broker {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = NoopRecorder{}
	}

	bus := eventbus.New()
	certRegistry := certs.New(opts.Backend, clock)
	thingRegistry := things.New(opts.Backend, opts.Verifier, bus, clock)
	groupManager := groups.New(bus)
	sessionManager := session.NewManager()
	factory := session.NewFactory(certRegistry, thingRegistry, opts.Verifier, bus, clock, opts.TrustDuration, opts.IsComponent)

	refreshInterval := opts.RefreshInterval
	if refreshInterval == 0 {
		refreshInterval = time.Hour
	}
	nearExpiry := opts.RefreshNearExpiryWindow
	if nearExpiry == 0 {
		nearExpiry = time.Hour
	}
	concurrency := opts.RefreshConcurrency
	if concurrency == 0 {
		concurrency = 4
	}
	refresher := things.NewRefresher(thingRegistry, opts.TrustDuration, nearExpiry, refreshInterval, concurrency)

	return &Broker{
		certs:        certRegistry,
		things:       thingRegistry,
		groups:       groupManager,
		sessions:     sessionManager,
		factory:      factory,
		bus:          bus,
		refresh:      refresher,
		recorder:     recorder,
		newSessionID: func() string { return uuid.NewString() },
	}
}

// Events returns the bus new listeners can subscribe to.
func (b *Broker) Events() eventbus.Bus { return b.bus }

// StartRefresher launches the optional background re-verification task.
// Not started implicitly by New.
func (b *Broker) StartRefresher(ctx context.Context) {
	b.refresh.Start(ctx)
}

// StopRefresher halts the background re-verification task, if running.
func (b *Broker) StopRefresher() {
	b.refresh.Stop()
}

// Close releases everything Broker started on its own: the background
// refresher, if running. It does not close the supplied store.Backend or
// cloudverifier.Verifier, since Broker did not construct them. Close is
// idempotent and safe to call even if StartRefresher was never called.
func (b *Broker) Close() error {
	b.refresh.Stop()
	return nil
}

// CreateSession authenticates creds and registers the resulting session
// under a freshly generated id.
func (b *Broker) CreateSession(ctx context.Context, creds session.Credentials) (sessionID string, err error) {
	err = b.withTiming("CreateSession", func() error {
		sess, authErr := b.factory.Authenticate(ctx, creds)
		if authErr != nil {
			return authErr
		}
		sessionID = b.newSessionID()
		b.sessions.Register(sessionID, sess)
		return nil
	})
	return sessionID, err
}

// CloseSession evicts sessionID. No-op if unknown.
func (b *Broker) CloseSession(_ context.Context, sessionID string) error {
	return b.withTiming("CloseSession", func() error {
		b.sessions.Close(sessionID)
		return nil
	})
}

// CanDevicePerform decides whether the session identified by sessionID may
// perform operation on resource, under the currently active group
// configuration.
func (b *Broker) CanDevicePerform(_ context.Context, sessionID, operation, resource string) (allowed bool, err error) {
	err = b.withTiming("CanDevicePerform", func() error {
		sess, ok := b.sessions.Find(sessionID)
		if !ok {
			return types.NewAuthorizationError(types.AuthorizationInvalidSession, sessionID)
		}
		perms := b.groups.GetApplicablePolicyPermissions(sess)
		var flat []types.Permission
		for _, groupPerms := range perms {
			flat = append(flat, groupPerms...)
		}
		allowed = authz.IsAuthorized(operation, resource, flat)
		return nil
	})
	return allowed, err
}

// SetGroupConfiguration replaces the active group configuration
// atomically. The previous configuration remains in effect if cfg fails
// validation.
func (b *Broker) SetGroupConfiguration(_ context.Context, cfg types.GroupConfiguration) error {
	return b.withTiming("SetGroupConfiguration", func() error {
		if cfg.FormatVersion == "" {
			return types.NewConfigurationError("missing formatVersion", nil)
		}
		b.groups.SetConfiguration(cfg)
		return nil
	})
}

func (b *Broker) withTiming(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	b.recorder.RecordDuration(operation, time.Since(start))
	return trace.Wrap(err)
}
