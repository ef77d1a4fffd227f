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

// Package authz is the pure decision function over a resolved permission
// set: no I/O, no state, nothing to mock — just operation/resource
// matching against ALLOW and DENY rows.
package authz

import (
	"github.com/edgekit/deviceauth/api/types"
	"github.com/edgekit/deviceauth/lib/glob"
)

// IsAuthorized reports whether operation against resource is permitted by
// perms. A request is authorized iff some ALLOW permission's operation and
// resource patterns both match, AND no DENY permission matches both;
// explicit DENY always overrides a matching ALLOW.
func IsAuthorized(operation, resource string, perms []types.Permission) bool {
	allowed := false
	for _, p := range perms {
		if !matches(p.Operation, operation) || !matches(p.Resource, resource) {
			continue
		}
		if p.Effect == types.Deny {
			return false
		}
		allowed = true
	}
	return allowed
}

func matches(pattern, value string) bool {
	return glob.Matches(pattern, value, glob.Options{})
}
