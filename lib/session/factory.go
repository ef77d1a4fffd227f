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

package session

import (
	"context"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"

	"github.com/edgekit/deviceauth/api/types"
	"github.com/edgekit/deviceauth/lib/certs"
	"github.com/edgekit/deviceauth/lib/cloudverifier"
	"github.com/edgekit/deviceauth/lib/eventbus"
	"github.com/edgekit/deviceauth/lib/things"
)

// Credentials is the input to Factory.Authenticate: what an MQTT CONNECT
// (or equivalent) handshake presents.
type Credentials struct {
	PEM      []byte
	ClientID string
	Username string
	Password string
}

// ComponentCredentialChecker recognizes an in-process component from its
// connection credentials, short-circuiting certificate/thing lookups
// entirely. It is an external collaborator injected by the host runtime.
type ComponentCredentialChecker func(Credentials) bool

// Factory turns credentials into a Session, consulting the Certificate
// Registry, Thing Registry and Cloud Verifier as needed and enforcing
// trust-duration freshness along the way.
type Factory struct {
	certs         *certs.Registry
	things        *things.Registry
	verifier      cloudverifier.Verifier
	bus           eventbus.Bus
	clock         clockwork.Clock
	isComponent   ComponentCredentialChecker
	trustDuration time.Duration
}

// NewFactory returns a Factory wired to its collaborators. isComponent may
// be nil, meaning no requester is ever recognized as an in-process
// component.
func NewFactory(
	certRegistry *certs.Registry,
	thingRegistry *things.Registry,
	verifier cloudverifier.Verifier,
	bus eventbus.Bus,
	clock clockwork.Clock,
	trustDuration time.Duration,
	isComponent ComponentCredentialChecker,
) *Factory {
	return &Factory{
		certs:         certRegistry,
		things:        thingRegistry,
		verifier:      verifier,
		bus:           bus,
		clock:         clock,
		isComponent:   isComponent,
		trustDuration: trustDuration,
	}
}

// Authenticate runs the credential path: component short-circuit, then
// certificate verification, then thing↔certificate attachment, emitting a
// SessionCreationEvent for every outcome.
func (f *Factory) Authenticate(ctx context.Context, creds Credentials) (Session, error) {
	if f.isComponent != nil && f.isComponent(creds) {
		f.emitOutcome(types.SessionCreationSuccess, "")
		return ComponentSession(), nil
	}

	sess, err := f.authenticateDevice(ctx, creds)
	if err != nil {
		f.emitOutcome(types.SessionCreationFailure, err.Error())
		return Session{}, err
	}
	f.emitOutcome(types.SessionCreationSuccess, "")
	return sess, nil
}

func (f *Factory) authenticateDevice(ctx context.Context, creds Credentials) (Session, error) {
	certificateID, err := f.resolveCertificate(ctx, creds.PEM)
	if err != nil {
		return Session{}, trace.Wrap(err)
	}

	thing, err := f.things.GetOrCreate(ctx, creds.ClientID)
	if err != nil {
		return Session{}, types.NewServiceError(err)
	}

	attached, err := f.things.IsAttachedToCertificate(ctx, thing, certificateID, f.trustDuration)
	if err != nil {
		return Session{}, types.NewAuthenticationError("could not verify device attachment", err)
	}
	if !attached {
		return Session{}, types.NewAuthenticationError("client not attached to certificate", nil)
	}

	return ForThingAndCertificate(thing.ThingName, certificateID), nil
}

// resolveCertificate implements steps 2-3 of the credential path: look the
// certificate up locally; if unknown or stale, consult the Cloud Verifier.
func (f *Factory) resolveCertificate(ctx context.Context, pem []byte) (string, error) {
	existing, err := f.certs.GetCertificateFromPEM(ctx, pem)
	if err != nil {
		return "", types.NewAuthenticationError("invalid certificate", err)
	}

	x509Cert, parseErr := certs.ParseCertificatePEM(pem)
	if parseErr != nil {
		return "", types.NewAuthenticationError("invalid certificate", parseErr)
	}
	certificateID := certs.CertificateID(x509Cert)

	now := f.clock.Now()
	if existing != nil && existing.IsActive(now, f.trustDuration) {
		return certificateID, nil
	}

	status, verifyErr := f.verifier.VerifyCertificate(ctx, pem)
	if verifyErr != nil {
		if existing != nil {
			// A locally known certificate whose trust window merely needs
			// refreshing fails closed on a cloud error: the offline trust
			// window has expired and there is nothing else to fall back to.
			return "", types.NewAuthenticationError("certificate re-verification failed", verifyErr)
		}
		return "", types.NewAuthenticationError("unknown certificate", verifyErr)
	}

	if status != types.CertificateStatusActive {
		return "", types.NewAuthenticationError("unknown certificate", nil)
	}

	if err := f.certs.CreateOrUpdate(ctx, types.Certificate{
		CertificateID: certificateID,
		Status:        types.CertificateStatusActive,
		LastUpdated:   now,
	}); err != nil {
		return "", types.NewServiceError(err)
	}
	return certificateID, nil
}

func (f *Factory) emitOutcome(status types.SessionCreationStatus, reason string) {
	if f.bus == nil {
		return
	}
	f.bus.Publish(types.SessionCreationEvent{Status: status, Reason: reason})
}
