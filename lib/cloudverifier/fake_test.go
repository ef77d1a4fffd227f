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

package cloudverifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edgekit/deviceauth/api/types"
)

func TestFakeVerifierSeededAnswers(t *testing.T) {
	f := NewFakeVerifier()
	f.CertificateStatus["pem-a"] = types.CertificateStatusActive
	f.Attachments["thing-1/cert-a"] = true
	f.Attributes["thing-1"] = map[string]string{"model": "sensor-x"}

	ctx := context.Background()

	status, err := f.VerifyCertificate(ctx, []byte("pem-a"))
	require.NoError(t, err)
	require.Equal(t, types.CertificateStatusActive, status)

	attached, err := f.VerifyThingAttached(ctx, "thing-1", "cert-a")
	require.NoError(t, err)
	require.True(t, attached)

	attrs, err := f.GetThingAttributes(ctx, "thing-1")
	require.NoError(t, err)
	require.Equal(t, "sensor-x", attrs["model"])

	require.Equal(t, 1, f.Calls["VerifyCertificate"])
}

func TestFakeVerifierUnreachable(t *testing.T) {
	f := NewFakeVerifier()
	f.Err = errors.New("connection refused")

	_, err := f.VerifyCertificate(context.Background(), []byte("pem-a"))
	require.Error(t, err)
	var cloudErr *types.CloudError
	require.ErrorAs(t, err, &cloudErr)
}

func TestFakeVerifierUnseededCertificateIsNotFound(t *testing.T) {
	f := NewFakeVerifier()
	_, err := f.VerifyCertificate(context.Background(), []byte("unseen"))
	require.Error(t, err)
}

func TestFakeVerifierAttributesAreCopied(t *testing.T) {
	f := NewFakeVerifier()
	f.Attributes["thing-1"] = map[string]string{"model": "sensor-x"}

	attrs, err := f.GetThingAttributes(context.Background(), "thing-1")
	require.NoError(t, err)
	attrs["model"] = "mutated"

	fresh, err := f.GetThingAttributes(context.Background(), "thing-1")
	require.NoError(t, err)
	require.Equal(t, "sensor-x", fresh["model"])
}
