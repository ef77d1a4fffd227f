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

// Package types holds the wire/persistence shapes shared by every package in
// this module: device attributes, certificates, things, policy statements and
// domain events.
package types

import "github.com/edgekit/deviceauth/lib/glob"

// AttributeKind distinguishes the two DeviceAttribute flavors.
type AttributeKind int

const (
	// StringLiteralKind matches only by exact equality.
	StringLiteralKind AttributeKind = iota
	// WildcardCapableKind matches via glob.Matches, allowing leading/trailing
	// '*' in the *pattern being tested against*.
	WildcardCapableKind
)

// DeviceAttribute is a tagged attribute value. Construct with
// StringLiteral or WildcardCapable.
type DeviceAttribute struct {
	kind  AttributeKind
	value string
}

// StringLiteral builds an attribute that matches only by == .
func StringLiteral(value string) DeviceAttribute {
	return DeviceAttribute{kind: StringLiteralKind, value: value}
}

// WildcardCapable builds an attribute whose Matches allows the caller-supplied
// expression to contain leading/trailing '*'.
func WildcardCapable(value string) DeviceAttribute {
	return DeviceAttribute{kind: WildcardCapableKind, value: value}
}

// Value returns the underlying string.
func (a DeviceAttribute) Value() string { return a.value }

// Kind reports which flavor this attribute is.
func (a DeviceAttribute) Kind() AttributeKind { return a.kind }

// Matches reports whether expr selects this attribute. A StringLiteral
// attribute matches only when expr equals the stored value exactly. A
// WildcardCapable attribute treats expr as a glob pattern (leading '*' is a
// suffix match, trailing '*' a prefix match, both a substring match) matched
// against the stored value.
//
// Matching a nil attribute (the zero value obtained by a failed namespace
// lookup) is never attempted by callers; AttributeProvider.Attribute returns
// (DeviceAttribute, bool) precisely so "missing" and "matches false" cannot be
// confused.
func (a DeviceAttribute) Matches(expr string) bool {
	switch a.kind {
	case StringLiteralKind:
		return a.value == expr
	case WildcardCapableKind:
		return glob.Matches(expr, a.value, glob.Options{})
	default:
		return false
	}
}

// AttributeProvider is a source of attributes under a single namespace, e.g.
// "Thing", "Certificate", "Component".
type AttributeProvider struct {
	Namespace  string
	Attributes map[string]DeviceAttribute
}

// NewAttributeProvider builds a provider from a flat attribute map.
func NewAttributeProvider(namespace string, attrs map[string]DeviceAttribute) AttributeProvider {
	if attrs == nil {
		attrs = map[string]DeviceAttribute{}
	}
	return AttributeProvider{Namespace: namespace, Attributes: attrs}
}

// Attribute looks up name within this provider.
func (p AttributeProvider) Attribute(name string) (DeviceAttribute, bool) {
	a, ok := p.Attributes[name]
	return a, ok
}

// Well-known namespaces and attribute names shared by every attribute
// provider a session exposes.
const (
	NamespaceThing       = "Thing"
	NamespaceCertificate = "Certificate"
	NamespaceComponent   = "Component"

	AttrThingName      = "thingName"
	AttrCertificateID  = "CertificateId"
	AttrComponentValue = "component"

	// ComponentAttributeValue is the literal value carried by the Component
	// namespace when a requester is a recognized in-process component.
	ComponentAttributeValue = "component"
)
