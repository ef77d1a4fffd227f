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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/edgekit/deviceauth/api/types"
	"github.com/edgekit/deviceauth/lib/certs"
	"github.com/edgekit/deviceauth/lib/cloudverifier"
	"github.com/edgekit/deviceauth/lib/eventbus"
	"github.com/edgekit/deviceauth/lib/store/memory"
	"github.com/edgekit/deviceauth/lib/things"
)

func selfSignedPEM(t *testing.T, commonName string) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

type testHarness struct {
	factory  *Factory
	verifier *cloudverifier.FakeVerifier
	bus      *eventbus.InProcessBus
	clock    clockwork.FakeClock
}

func newHarness(t *testing.T, isComponent ComponentCredentialChecker) *testHarness {
	t.Helper()
	clock := clockwork.NewFakeClock()
	bus := eventbus.New()
	verifier := cloudverifier.NewFakeVerifier()
	certRegistry := certs.New(memory.New(), clock)
	thingRegistry := things.New(memory.New(), verifier, bus, clock)
	factory := NewFactory(certRegistry, thingRegistry, verifier, bus, clock, 24*time.Hour, isComponent)
	return &testHarness{factory: factory, verifier: verifier, bus: bus, clock: clock}
}

func TestAuthenticateComponentShortCircuits(t *testing.T) {
	h := newHarness(t, func(Credentials) bool { return true })
	sess, err := h.factory.Authenticate(context.Background(), Credentials{ClientID: "internal-tool"})
	require.NoError(t, err)
	require.True(t, sess.IsComponent())
	require.Equal(t, 0, h.verifier.Calls["VerifyCertificate"])
}

func TestAuthenticateNewCertificateVerifiedActive(t *testing.T) {
	h := newHarness(t, nil)
	pemBytes := selfSignedPEM(t, "device-1")
	h.verifier.CertificateStatus[string(pemBytes)] = types.CertificateStatusActive
	h.verifier.Attachments["thing-1/"+certificateIDFor(t, pemBytes)] = true

	sess, err := h.factory.Authenticate(context.Background(), Credentials{PEM: pemBytes, ClientID: "thing-1"})
	require.NoError(t, err)
	name, ok := sess.ThingName()
	require.True(t, ok)
	require.Equal(t, "thing-1", name)
}

func TestAuthenticateNewCertificateInactiveFails(t *testing.T) {
	h := newHarness(t, nil)
	pemBytes := selfSignedPEM(t, "device-1")
	h.verifier.CertificateStatus[string(pemBytes)] = types.CertificateStatusUnknown

	_, err := h.factory.Authenticate(context.Background(), Credentials{PEM: pemBytes, ClientID: "thing-1"})
	require.Error(t, err)
	var authErr *types.AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestAuthenticateUnattachedThingFails(t *testing.T) {
	h := newHarness(t, nil)
	pemBytes := selfSignedPEM(t, "device-1")
	h.verifier.CertificateStatus[string(pemBytes)] = types.CertificateStatusActive
	h.verifier.Attachments["thing-1/"+certificateIDFor(t, pemBytes)] = false

	_, err := h.factory.Authenticate(context.Background(), Credentials{PEM: pemBytes, ClientID: "thing-1"})
	require.Error(t, err)
}

func TestAuthenticateEmitsSessionCreationEvent(t *testing.T) {
	h := newHarness(t, nil)
	pemBytes := selfSignedPEM(t, "device-1")
	h.verifier.CertificateStatus[string(pemBytes)] = types.CertificateStatusActive
	h.verifier.Attachments["thing-1/"+certificateIDFor(t, pemBytes)] = true

	var events []types.SessionCreationEvent
	h.bus.Subscribe(func(evt types.Event) {
		if e, ok := evt.(types.SessionCreationEvent); ok {
			events = append(events, e)
		}
	})

	_, err := h.factory.Authenticate(context.Background(), Credentials{PEM: pemBytes, ClientID: "thing-1"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, types.SessionCreationSuccess, events[0].Status)
}

func TestAuthenticateStaleCertificateRechecksAndFailsOnCloudError(t *testing.T) {
	h := newHarness(t, nil)
	pemBytes := selfSignedPEM(t, "device-1")
	h.verifier.CertificateStatus[string(pemBytes)] = types.CertificateStatusActive
	certID := certificateIDFor(t, pemBytes)
	h.verifier.Attachments["thing-1/"+certID] = true

	_, err := h.factory.Authenticate(context.Background(), Credentials{PEM: pemBytes, ClientID: "thing-1"})
	require.NoError(t, err)

	h.clock.Advance(25 * time.Hour)
	h.verifier.Err = context.DeadlineExceeded

	_, err = h.factory.Authenticate(context.Background(), Credentials{PEM: pemBytes, ClientID: "thing-1"})
	require.Error(t, err)
}

func certificateIDFor(t *testing.T, pemBytes []byte) string {
	t.Helper()
	cert, err := certs.ParseCertificatePEM(pemBytes)
	require.NoError(t, err)
	return certs.CertificateID(cert)
}
