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

// Package session is the Session model plus the Session Factory and
// Session Manager built around it: authenticating a device's credentials
// into an immutable attribute snapshot, and tracking the live set of those
// snapshots by opaque session id.
package session

import "github.com/edgekit/deviceauth/api/types"

// Session is an immutable, per-connection snapshot of a device's identity
// attributes, grouped by namespace. Once built by the Factory it is never
// mutated; a changed identity produces a new Session under a new id.
type Session struct {
	providers map[string]types.AttributeProvider
}

// New builds a Session from a set of providers, keyed by their own
// namespace. Later providers in the slice win on a namespace collision.
func New(providers ...types.AttributeProvider) Session {
	m := make(map[string]types.AttributeProvider, len(providers))
	for _, p := range providers {
		m[p.Namespace] = p
	}
	return Session{providers: m}
}

// Attribute looks up name within namespace, returning ok=false if either
// the namespace or the name within it is absent.
func (s Session) Attribute(namespace, name string) (types.DeviceAttribute, bool) {
	p, ok := s.providers[namespace]
	if !ok {
		return types.DeviceAttribute{}, false
	}
	return p.Attribute(name)
}

// ThingName returns the session's Thing.thingName literal value, used to
// resolve "${iot:Connection.Thing.ThingName}" policy variables.
func (s Session) ThingName() (string, bool) {
	attr, ok := s.Attribute(types.NamespaceThing, types.AttrThingName)
	if !ok {
		return "", false
	}
	return attr.Value(), true
}

// IsComponent reports whether this session was created for a recognized
// in-process component rather than an authenticated client device.
func (s Session) IsComponent() bool {
	attr, ok := s.Attribute(types.NamespaceComponent, types.AttrComponentValue)
	return ok && attr.Value() == types.ComponentAttributeValue
}

// ComponentSession builds the short-circuit Session used when the Session
// Factory recognizes the requester as an in-process component: it carries
// only the Component.component attribute, bypassing certificate and thing
// lookups entirely.
func ComponentSession() Session {
	return New(types.NewAttributeProvider(types.NamespaceComponent, map[string]types.DeviceAttribute{
		types.AttrComponentValue: types.StringLiteral(types.ComponentAttributeValue),
	}))
}

// ForThingAndCertificate builds the Session produced by a normal
// certificate-authenticated connection.
func ForThingAndCertificate(thingName, certificateID string) Session {
	return New(
		types.NewAttributeProvider(types.NamespaceThing, map[string]types.DeviceAttribute{
			types.AttrThingName: types.WildcardCapable(thingName),
		}),
		types.NewAttributeProvider(types.NamespaceCertificate, map[string]types.DeviceAttribute{
			types.AttrCertificateID: types.StringLiteral(certificateID),
		}),
	)
}
