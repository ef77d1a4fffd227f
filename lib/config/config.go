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

// Package config decodes the host runtime's YAML configuration tree into
// the domain types the Group Manager and Session Factory need: group
// definitions/policies and the trust duration. Nothing here owns the file
// on disk; callers pass an io.Reader and keep the previous configuration
// on a load failure.
package config

import (
	"fmt"
	"io"
	"time"

	"github.com/gravitational/trace"
	"gopkg.in/yaml.v2"

	"github.com/edgekit/deviceauth/api/types"
)

// SupportedFormatVersion is the only deviceGroups.formatVersion this
// binary understands. An unrecognized version is a ConfigurationError, not
// a panic, so the host runtime can keep running the previous configuration.
const SupportedFormatVersion = "2021-03-05"

// DefaultTrustDurationHours is used when security.clientDeviceTrustDurationHours
// is absent from the input.
const DefaultTrustDurationHours = 24

type fileStatement struct {
	Effect     string   `yaml:"effect"`
	Operations []string `yaml:"operations"`
	Resources  []string `yaml:"resources"`
}

type fileGroupDefinition struct {
	SelectionRule string `yaml:"selectionRule"`
	PolicyName    string `yaml:"policyName"`
}

type fileDeviceGroups struct {
	FormatVersion string                             `yaml:"formatVersion"`
	Definitions   map[string]fileGroupDefinition      `yaml:"definitions"`
	Policies      map[string]map[string]fileStatement `yaml:"policies"`
}

type fileSecurity struct {
	ClientDeviceTrustDurationHours int `yaml:"clientDeviceTrustDurationHours"`
}

type fileRoot struct {
	DeviceGroups fileDeviceGroups `yaml:"deviceGroups"`
	Security     fileSecurity     `yaml:"security"`
}

// Result is the decoded, validated configuration.
type Result struct {
	GroupConfiguration types.GroupConfiguration
	TrustDuration      time.Duration
}

// Load decodes and validates the YAML tree read from r. A parse error in
// the YAML itself, or an unsupported formatVersion, fails the whole load;
// the caller is expected to retain its previous configuration in that case.
// A parse error in an individual group's selection rule is NOT fatal here:
// lib/groups.Manager.SetConfiguration drops only that one group and emits
// a warning, matching the per-group isolation a malformed group should get.
func Load(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, trace.Wrap(err, "reading configuration")
	}

	var root fileRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, types.NewConfigurationError("invalid YAML", err)
	}

	if root.DeviceGroups.FormatVersion != SupportedFormatVersion {
		return nil, types.NewConfigurationError(
			fmt.Sprintf("unsupported deviceGroups.formatVersion %q", root.DeviceGroups.FormatVersion), nil)
	}

	cfg := types.NewGroupConfiguration(root.DeviceGroups.FormatVersion)
	for name, def := range root.DeviceGroups.Definitions {
		cfg.Definitions[name] = types.GroupDefinition{
			SelectionRule: def.SelectionRule,
			PolicyName:    def.PolicyName,
		}
	}
	for policyName, statements := range root.DeviceGroups.Policies {
		converted := make(map[string]types.AuthorizationPolicyStatement, len(statements))
		for id, stmt := range statements {
			effect := types.Allow
			if stmt.Effect == "DENY" {
				effect = types.Deny
			}
			converted[id] = types.AuthorizationPolicyStatement{
				Effect:     effect,
				Operations: stmt.Operations,
				Resources:  stmt.Resources,
			}
		}
		cfg.Policies[policyName] = converted
	}

	hours := root.Security.ClientDeviceTrustDurationHours
	if hours == 0 {
		hours = DefaultTrustDurationHours
	}

	return &Result{
		GroupConfiguration: *cfg,
		TrustDuration:      time.Duration(hours) * time.Hour,
	}, nil
}
