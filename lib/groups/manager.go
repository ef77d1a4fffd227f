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

// Package groups holds the current GroupConfiguration and derives the
// permission set a session's matched groups grant, resolving selection
// rules and policy variables along the way.
package groups

import (
	"fmt"
	"sync/atomic"

	"github.com/edgekit/deviceauth/api/types"
	"github.com/edgekit/deviceauth/lib/eventbus"
	"github.com/edgekit/deviceauth/lib/policyvars"
	"github.com/edgekit/deviceauth/lib/ruleexpr"
)

// Session is the narrow view of a session the Group Manager needs: enough
// to evaluate a selection rule and to resolve policy variables embedded in
// resource/operation patterns.
type Session interface {
	ruleexpr.AttributeSession
	policyvars.AttributeLookup
}

// Manager holds the active GroupConfiguration behind an atomic pointer, so
// replacement is lock-free and every reader within one call sees a single
// consistent configuration, never a mix of old and new.
type Manager struct {
	config *atomic.Pointer[types.GroupConfiguration]
	bus    eventbus.Bus
	rules  *atomic.Pointer[map[string]ruleexpr.Node]
}

// New returns a Manager with an empty configuration, publishing warning
// events about skipped rules/statements through bus.
func New(bus eventbus.Bus) *Manager {
	m := &Manager{
		config: &atomic.Pointer[types.GroupConfiguration]{},
		bus:    bus,
		rules:  &atomic.Pointer[map[string]ruleexpr.Node]{},
	}
	m.config.Store(types.NewGroupConfiguration(""))
	empty := map[string]ruleexpr.Node{}
	m.rules.Store(&empty)
	return m
}

// SetConfiguration replaces the active configuration atomically, compiling
// every group's selection rule up front so evaluation never re-parses.
// Groups whose rule fails to parse are dropped from the compiled set (and
// so never match) with a ServiceErrorEvent describing which group and why;
// the rest of the configuration is still installed.
func (m *Manager) SetConfiguration(cfg types.GroupConfiguration) {
	compiled := make(map[string]ruleexpr.Node, len(cfg.Definitions))
	for name, def := range cfg.Definitions {
		node, err := ruleexpr.Parse(def.SelectionRule)
		if err != nil {
			m.emitWarning("selection rule for group %q failed to parse: %v", name, err)
			continue
		}
		compiled[name] = node
	}
	m.rules.Store(&compiled)
	m.config.Store(&cfg)
}

// Configuration returns the currently active configuration.
func (m *Manager) Configuration() types.GroupConfiguration {
	return *m.config.Load()
}

func (m *Manager) emitWarning(format string, args ...interface{}) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(types.ServiceErrorEvent{Message: fmt.Sprintf(format, args...)})
}

// GetApplicablePolicyPermissions evaluates every group's selection rule
// against session and, for each matching group, expands its policy's
// statements into concrete Permission rows. Unknown variables within a
// single statement cause that statement alone to be skipped.
func (m *Manager) GetApplicablePolicyPermissions(session Session) map[string][]types.Permission {
	cfg := *m.config.Load()
	rules := *m.rules.Load()

	out := make(map[string][]types.Permission)
	for groupName, def := range cfg.Definitions {
		rule, ok := rules[groupName]
		if !ok {
			continue
		}
		if !ruleexpr.Evaluate(rule, session) {
			continue
		}

		statements, ok := cfg.Policies[def.PolicyName]
		if !ok {
			continue
		}
		out[groupName] = append(out[groupName], m.expandStatements(groupName, statements, session)...)
	}
	return out
}

func (m *Manager) expandStatements(groupName string, statements map[string]types.AuthorizationPolicyStatement, session Session) []types.Permission {
	var perms []types.Permission
statementLoop:
	for _, stmt := range statements {
		ops := stmt.Operations
		if len(ops) == 0 {
			ops = []string{"*"}
		}
		resources := stmt.Resources
		if len(resources) == 0 {
			resources = []string{"*"}
		}

		resolvedOps := make([]string, 0, len(ops))
		for _, opPattern := range ops {
			resolvedOp, ok := m.resolve(opPattern, session)
			if !ok {
				continue statementLoop
			}
			resolvedOps = append(resolvedOps, resolvedOp)
		}
		resolvedResources := make([]string, 0, len(resources))
		for _, resPattern := range resources {
			resolvedRes, ok := m.resolve(resPattern, session)
			if !ok {
				continue statementLoop
			}
			resolvedResources = append(resolvedResources, resolvedRes)
		}

		for _, resolvedOp := range resolvedOps {
			for _, resolvedRes := range resolvedResources {
				perms = append(perms, types.Permission{
					PrincipalGroup: groupName,
					Operation:      resolvedOp,
					Resource:       resolvedRes,
					Effect:         stmt.Effect,
				})
			}
		}
	}
	return perms
}

func (m *Manager) resolve(pattern string, session Session) (string, bool) {
	resolved, ok := policyvars.Resolve(pattern, session)
	if !ok {
		m.emitWarning("unresolved policy variable in pattern %q, skipping statement", pattern)
		return "", false
	}
	return resolved, true
}
