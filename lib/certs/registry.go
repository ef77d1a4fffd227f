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

// Package certs is the cache of certificate verification state: PEM to
// identifier resolution and the ACTIVE/UNKNOWN status history that lets the
// Session Factory answer authentication requests without a cloud round
// trip on every connection.
package certs

import (
	"context"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/edgekit/deviceauth/api/types"
	"github.com/edgekit/deviceauth/lib/store"
)

const keyPrefix = "clientDeviceCerts"

// Registry is the cache of cloud-verified certificate status, backed by a
// store.Backend. Zero value is not usable; construct with New.
type Registry struct {
	backend store.Backend
	clock   clockwork.Clock
	group   singleflight.Group
}

// New returns a Registry over backend using clock for LastUpdated stamps.
func New(backend store.Backend, clock clockwork.Clock) *Registry {
	return &Registry{backend: backend, clock: clock}
}

// ParseCertificatePEM decodes pem-encoded bytes into an x509.Certificate,
// failing with an InvalidCertificateException-equivalent trace.BadParameter
// if the bytes do not decode.
func ParseCertificatePEM(pemBytes []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, trace.BadParameter("could not decode PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, trace.BadParameter("invalid certificate: %v", err)
	}
	return cert, nil
}

// CertificateID derives the stable identifier for a parsed certificate: the
// hex-encoded SHA-256 digest of its raw DER encoding.
func CertificateID(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

func certKey(certificateID string) string {
	return keyPrefix + "/" + certificateID
}

// GetCertificateFromPEM parses pemBytes, computes its identifier, and
// returns the stored record if one exists. A nil result with a nil error
// means the certificate is unknown; the caller (the Session Factory)
// decides whether to create one after consulting the Cloud Verifier.
func (r *Registry) GetCertificateFromPEM(ctx context.Context, pemBytes []byte) (*types.Certificate, error) {
	cert, err := ParseCertificatePEM(pemBytes)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return r.get(ctx, CertificateID(cert))
}

func (r *Registry) get(ctx context.Context, certificateID string) (*types.Certificate, error) {
	item, err := r.backend.Get(ctx, certKey(certificateID))
	if trace.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, trace.Wrap(err)
	}
	var c types.Certificate
	if err := json.Unmarshal(item.Value, &c); err != nil {
		return nil, trace.Wrap(err, "decoding stored certificate %q", certificateID)
	}
	return &c, nil
}

// CreateOrUpdate persists certificate, enforcing that status never
// regresses from ACTIVE back to UNKNOWN: once a certificate has been
// positively verified, only a never-yet-verified record may later be
// written as UNKNOWN.
func (r *Registry) CreateOrUpdate(ctx context.Context, certificate types.Certificate) error {
	_, err, _ := r.group.Do(certificate.CertificateID, func() (interface{}, error) {
		existing, err := r.get(ctx, certificate.CertificateID)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		if existing != nil && existing.Status == types.CertificateStatusActive &&
			certificate.Status == types.CertificateStatusUnknown {
			certificate.Status = types.CertificateStatusActive
			certificate.LastUpdated = existing.LastUpdated
		}

		data, err := json.Marshal(certificate)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		return nil, trace.Wrap(r.backend.Put(ctx, store.Item{
			Key:   certKey(certificate.CertificateID),
			Value: data,
		}))
	})
	return err
}
