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

package cloudverifier

import (
	"context"
	"sync"

	"github.com/gravitational/trace"

	"github.com/edgekit/deviceauth/api/types"
)

// FakeVerifier is an in-memory Verifier for tests: every answer is seeded by
// the caller ahead of time, and an optional Err forces every call to fail
// with a *types.CloudError, for exercising fallback-to-cache paths.
type FakeVerifier struct {
	mu sync.Mutex

	// CertificateStatus maps a PEM's string form to the status VerifyCertificate
	// should return for it. Unseeded PEMs return CertificateStatusUnknown
	// together with a trace.NotFound error.
	CertificateStatus map[string]types.CertificateStatus
	// Attachments maps "thingName/certificateID" to the attachment answer
	// VerifyThingAttached should return.
	Attachments map[string]bool
	// Attributes maps thingName to the attribute set GetThingAttributes
	// should return.
	Attributes map[string]map[string]string

	// Err, when non-nil, is returned (wrapped as a CloudError) from every
	// call, simulating an unreachable upstream.
	Err error

	// Calls counts invocations per method, for assertions about retry/
	// fallback behavior.
	Calls map[string]int
}

// NewFakeVerifier returns an empty FakeVerifier ready for seeding.
func NewFakeVerifier() *FakeVerifier {
	return &FakeVerifier{
		CertificateStatus: map[string]types.CertificateStatus{},
		Attachments:       map[string]bool{},
		Attributes:        map[string]map[string]string{},
		Calls:             map[string]int{},
	}
}

func (f *FakeVerifier) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[method]++
	if f.Err != nil {
		return types.NewCloudError(f.Err)
	}
	return nil
}

func (f *FakeVerifier) VerifyCertificate(_ context.Context, pem []byte) (types.CertificateStatus, error) {
	if err := f.record("VerifyCertificate"); err != nil {
		return types.CertificateStatusUnknown, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.CertificateStatus[string(pem)]
	if !ok {
		return types.CertificateStatusUnknown, trace.NotFound("no seeded status for certificate")
	}
	return status, nil
}

func (f *FakeVerifier) VerifyThingAttached(_ context.Context, thingName, certificateID string) (bool, error) {
	if err := f.record("VerifyThingAttached"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Attachments[thingName+"/"+certificateID], nil
}

func (f *FakeVerifier) GetThingAttributes(_ context.Context, thingName string) (map[string]string, error) {
	if err := f.record("GetThingAttributes"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	attrs, ok := f.Attributes[thingName]
	if !ok {
		return nil, trace.NotFound("no seeded attributes for thing %q", thingName)
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out, nil
}
