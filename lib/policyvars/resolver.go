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

// Package policyvars resolves "${namespace:path}" placeholders that may
// appear inside policy resource/operation patterns, substituting values
// pulled from a session's attributes.
package policyvars

import (
	"strings"

	"github.com/gravitational/trace"
)

// VarPrefix/VarSuffix delimit a placeholder token.
const (
	VarPrefix = "${"
	VarSuffix = "}"
)

// ThingNamePath is the one path this module currently understands:
// "${iot:Connection.Thing.ThingName}".
const ThingNamePath = "iot:Connection.Thing.ThingName"

// AttributeLookup resolves a single well-known path to a literal value.
// Session implements this narrow interface so policyvars never needs to
// import the session package (which itself depends on api/types, not on
// policyvars).
type AttributeLookup interface {
	// ThingName returns the session's Thing.thingName literal value, and
	// whether that attribute is present.
	ThingName() (string, bool)
}

// Resolve substitutes every "${...}" token in pattern using session.
//
// If any token references an unknown path, or a known path whose value is
// unavailable for this session, ok is false: the statement that contains
// this pattern must be skipped entirely, never treated as a literal or
// partial match.
func Resolve(pattern string, session AttributeLookup) (resolved string, ok bool) {
	var b strings.Builder
	rest := pattern
	for {
		start := strings.Index(rest, VarPrefix)
		if start == -1 {
			b.WriteString(rest)
			return b.String(), true
		}
		end := strings.Index(rest[start:], VarSuffix)
		if end == -1 {
			// Unterminated placeholder: treat the whole pattern as
			// unresolved rather than guessing at intent.
			return "", false
		}
		end += start

		b.WriteString(rest[:start])
		path := rest[start+len(VarPrefix) : end]
		value, known := lookup(path, session)
		if !known {
			return "", false
		}
		b.WriteString(value)
		rest = rest[end+len(VarSuffix):]
	}
}

func lookup(path string, session AttributeLookup) (string, bool) {
	switch path {
	case ThingNamePath:
		return session.ThingName()
	default:
		return "", false
	}
}

// HasPlaceholder is a cheap pre-check callers can use to skip Resolve for
// patterns that contain no variables at all.
func HasPlaceholder(pattern string) bool {
	return strings.Contains(pattern, VarPrefix)
}

// CheckSyntax validates that every "${" in pattern is terminated, without
// resolving values, and reports an unterminated one as trace.BadParameter.
// The configuration loader does not call it; at evaluation time Resolve
// treats an unterminated placeholder as unresolved.
func CheckSyntax(pattern string) error {
	rest := pattern
	for {
		start := strings.Index(rest, VarPrefix)
		if start == -1 {
			return nil
		}
		end := strings.Index(rest[start:], VarSuffix)
		if end == -1 {
			return trace.BadParameter("unterminated variable in pattern %q", pattern)
		}
		rest = rest[start+end+len(VarSuffix):]
	}
}
