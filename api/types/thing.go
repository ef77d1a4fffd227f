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

// Thing is a persisted IoT device identity, keyed by ThingName, together
// with the certificates it has been bound to and when each binding was last
// confirmed by the cloud.
type Thing struct {
	ThingName string
	// AttachedCertificates maps certificateId to the instant the binding
	// was last verified against the cloud.
	AttachedCertificates map[string]time.Time
}

// NewThing returns an empty Thing, ready to accept attachments.
func NewThing(thingName string) Thing {
	return Thing{ThingName: thingName, AttachedCertificates: map[string]time.Time{}}
}

// Clone returns a deep copy so callers can mutate the result without
// affecting any cached/stored Thing.
func (t Thing) Clone() Thing {
	out := Thing{ThingName: t.ThingName, AttachedCertificates: make(map[string]time.Time, len(t.AttachedCertificates))}
	for id, ts := range t.AttachedCertificates {
		out.AttachedCertificates[id] = ts
	}
	return out
}

// IsAttachedWithinTrust reports whether certificateID is attached and was
// verified within trustDuration of now, the local-cache fast path for
// deciding attachment without calling out to the cloud.
func (t Thing) IsAttachedWithinTrust(certificateID string, now time.Time, trustDuration time.Duration) bool {
	verified, ok := t.AttachedCertificates[certificateID]
	if !ok {
		return false
	}
	return now.Sub(verified) <= trustDuration
}

// Equal reports whether t and other have the same name and the same set of
// attached certificate IDs, ignoring the exact verification instants.
func (t Thing) Equal(other Thing) bool {
	if t.ThingName != other.ThingName {
		return false
	}
	if len(t.AttachedCertificates) != len(other.AttachedCertificates) {
		return false
	}
	for id := range t.AttachedCertificates {
		if _, ok := other.AttachedCertificates[id]; !ok {
			return false
		}
	}
	return true
}
