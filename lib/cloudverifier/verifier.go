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

// Package cloudverifier declares the boundary the Session Factory calls
// across to reach the upstream identity service. Nothing in this package
// talks to a real network: Verifier is the external collaborator interface,
// and FakeVerifier is the in-memory test double that stands in for it.
package cloudverifier

import (
	"context"

	"github.com/edgekit/deviceauth/api/types"
)

// Verifier is the external collaborator a Session Factory depends on for
// anything it cannot answer from local cache alone.
type Verifier interface {
	// VerifyCertificate asks the upstream service for the current status of
	// the certificate with the given PEM encoding. Failure to reach the
	// service is returned as a *types.CloudError.
	VerifyCertificate(ctx context.Context, pem []byte) (types.CertificateStatus, error)

	// VerifyThingAttached asks whether certificateID is currently attached
	// to thingName.
	VerifyThingAttached(ctx context.Context, thingName, certificateID string) (bool, error)

	// GetThingAttributes fetches the attribute set the upstream service
	// holds for thingName, used to resolve group selection rules.
	GetThingAttributes(ctx context.Context, thingName string) (map[string]string, error)
}
