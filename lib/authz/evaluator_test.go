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

package authz

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edgekit/deviceauth/api/types"
)

func TestIsAuthorizedAllowMatch(t *testing.T) {
	perms := []types.Permission{
		{Operation: "publish", Resource: "topic/data", Effect: types.Allow},
	}
	require.True(t, IsAuthorized("publish", "topic/data", perms))
}

func TestIsAuthorizedNoMatchingAllow(t *testing.T) {
	perms := []types.Permission{
		{Operation: "publish", Resource: "topic/data", Effect: types.Allow},
	}
	require.False(t, IsAuthorized("subscribe", "topic/data", perms))
}

func TestIsAuthorizedExplicitDenyOverridesAllow(t *testing.T) {
	perms := []types.Permission{
		{Operation: "publish", Resource: "topic/*", Effect: types.Allow},
		{Operation: "publish", Resource: "topic/secret", Effect: types.Deny},
	}
	require.False(t, IsAuthorized("publish", "topic/secret", perms))
	require.True(t, IsAuthorized("publish", "topic/data", perms))
}

func TestIsAuthorizedWildcardOperationAndResource(t *testing.T) {
	perms := []types.Permission{
		{Operation: "*", Resource: "*", Effect: types.Allow},
	}
	require.True(t, IsAuthorized("publish", "anything", perms))
}

func TestIsAuthorizedEmptyPermissionSetDenies(t *testing.T) {
	require.False(t, IsAuthorized("publish", "topic/data", nil))
}

func TestIsAuthorizedDenyWithoutMatchingAllowStillDenies(t *testing.T) {
	perms := []types.Permission{
		{Operation: "publish", Resource: "topic/secret", Effect: types.Deny},
	}
	require.False(t, IsAuthorized("publish", "topic/secret", perms))
}

func TestIsAuthorizedMultipleGroupsAllowWins(t *testing.T) {
	perms := []types.Permission{
		{PrincipalGroup: "a", Operation: "subscribe", Resource: "*", Effect: types.Allow},
		{PrincipalGroup: "b", Operation: "publish", Resource: "*", Effect: types.Allow},
	}
	require.True(t, IsAuthorized("publish", "topic/data", perms))
}
