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

package ruleexpr

import "github.com/edgekit/deviceauth/api/types"

// AttributeSession is the narrow view of a Session that rule evaluation
// needs: lookup of a single attribute by namespace and name. Session
// implements this directly.
type AttributeSession interface {
	Attribute(namespace, name string) (types.DeviceAttribute, bool)
}

// Evaluate walks n against session. A missing attribute is never an error:
// it simply makes the enclosing Thing clause false.
func Evaluate(n Node, session AttributeSession) bool {
	switch v := n.(type) {
	case *ThingNode:
		attr, ok := session.Attribute(types.NamespaceThing, types.AttrThingName)
		if !ok {
			return false
		}
		return attr.Matches(v.Value)
	case *AndNode:
		for _, c := range v.Clauses {
			if !Evaluate(c, session) {
				return false
			}
		}
		return true
	case *OrNode:
		for _, c := range v.Clauses {
			if Evaluate(c, session) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
