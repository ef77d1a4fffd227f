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

package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterFind(t *testing.T) {
	m := NewManager()
	sess := ForThingAndCertificate("thing-1", "cert-1")
	m.Register("sess-1", sess)

	got, ok := m.Find("sess-1")
	require.True(t, ok)
	require.Equal(t, sess, got)
}

func TestFindMissing(t *testing.T) {
	m := NewManager()
	_, ok := m.Find("nope")
	require.False(t, ok)
}

func TestCloseRemovesSession(t *testing.T) {
	m := NewManager()
	m.Register("sess-1", ForThingAndCertificate("thing-1", "cert-1"))
	m.Close("sess-1")

	_, ok := m.Find("sess-1")
	require.False(t, ok)
}

func TestCloseIsIdempotent(t *testing.T) {
	m := NewManager()
	m.Close("never-registered")
}

func TestConcurrentRegisterAndFind(t *testing.T) {
	m := NewManager()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := string(rune('a' + i%26))
			m.Register(id, ForThingAndCertificate(id, "cert"))
			m.Find(id)
		}()
	}
	wg.Wait()
}
