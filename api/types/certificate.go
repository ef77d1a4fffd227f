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

package types

import "time"

// CertificateStatus is the cloud-verified state of a certificate. UNKNOWN
// must stay ordinal zero: it is both the conservative initial value and the
// value every unrecognized/forward-incompatible encoding must decode to.
type CertificateStatus int

const (
	// CertificateStatusUnknown is the conservative default: not yet
	// confirmed ACTIVE by the cloud, or confirmed INACTIVE.
	CertificateStatusUnknown CertificateStatus = iota
	// CertificateStatusActive means the cloud most recently confirmed this
	// certificate as valid.
	CertificateStatusActive
)

func (s CertificateStatus) String() string {
	switch s {
	case CertificateStatusActive:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler so CertificateStatus can be
// persisted and logged as its name rather than a bare ordinal.
func (s CertificateStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Any value other than
// the literal string "ACTIVE" decodes to UNKNOWN, which is what makes
// forward compatibility possible: a future status this binary has never
// heard of still round-trips to the conservative state instead of failing
// to decode.
func (s *CertificateStatus) UnmarshalText(text []byte) error {
	if string(text) == "ACTIVE" {
		*s = CertificateStatusActive
		return nil
	}
	*s = CertificateStatusUnknown
	return nil
}

// Certificate is the cached verification state of one X.509 certificate
// presented by a device.
type Certificate struct {
	// CertificateID is a stable identifier derived from the certificate
	// (implementations hash the decoded DER).
	CertificateID string
	// Status is the last cloud-verified state.
	Status CertificateStatus
	// LastUpdated is the wall-clock time of the last cloud verification.
	LastUpdated time.Time
}

// IsActive reports whether the certificate is ACTIVE and its verification
// has not aged past trustDuration as of now. A certificate whose status is
// ACTIVE but whose LastUpdated has expired is treated as not active for new
// sessions: its offline validity has expired.
func (c Certificate) IsActive(now time.Time, trustDuration time.Duration) bool {
	if c.Status != CertificateStatusActive {
		return false
	}
	return now.Sub(c.LastUpdated) <= trustDuration
}
