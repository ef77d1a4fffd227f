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

package jsonfile

import (
	"context"
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/edgekit/deviceauth/lib/store"
)

func TestGetMissing(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = b.Get(context.Background(), "clientDeviceCerts/abc/status")
	require.Error(t, err)
	require.True(t, trace.IsNotFound(err))
}

func TestPutGetRoundTrip(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	item := store.Item{Key: "clientDeviceCerts/abc/status", Value: []byte(`"ACTIVE"`)}
	require.NoError(t, b.Put(ctx, item))

	got, err := b.Get(ctx, item.Key)
	require.NoError(t, err)
	require.Equal(t, item.Value, got.Value)
}

func TestPutOverwrites(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key := "clientDeviceCerts/abc/status"
	require.NoError(t, b.Put(ctx, store.Item{Key: key, Value: []byte("1")}))
	require.NoError(t, b.Put(ctx, store.Item{Key: key, Value: []byte("2")}))

	got, err := b.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("2"), got.Value)
}

func TestDeleteIsIdempotent(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key := "clientDeviceCerts/abc/status"
	require.NoError(t, b.Put(ctx, store.Item{Key: key, Value: []byte("1")}))
	require.NoError(t, b.Delete(ctx, key))
	require.NoError(t, b.Delete(ctx, key))

	_, err = b.Get(ctx, key)
	require.True(t, trace.IsNotFound(err))
}

func TestGetRangeReturnsSortedPrefixMatches(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Put(ctx, store.Item{Key: "clientDeviceThings/b/version", Value: []byte("1")}))
	require.NoError(t, b.Put(ctx, store.Item{Key: "clientDeviceThings/a/version", Value: []byte("1")}))
	require.NoError(t, b.Put(ctx, store.Item{Key: "clientDeviceCerts/x/status", Value: []byte("1")}))

	items, err := b.GetRange(ctx, "clientDeviceThings")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "clientDeviceThings/a/version", items[0].Key)
	require.Equal(t, "clientDeviceThings/b/version", items[1].Key)
}

func TestGetRangeOnMissingPrefixIsEmpty(t *testing.T) {
	b, err := New(t.TempDir())
	require.NoError(t, err)

	items, err := b.GetRange(context.Background(), "nothingHere")
	require.NoError(t, err)
	require.Empty(t, items)
}
