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

import "sync"

// Manager tracks live sessions by opaque session id. It is backed by a
// sync.Map rather than a mutex-guarded map so Find never blocks behind a
// concurrent Register or Close.
type Manager struct {
	sessions sync.Map // sessionID string -> Session
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register associates sessionID with sess, replacing any prior session
// under the same id.
func (m *Manager) Register(sessionID string, sess Session) {
	m.sessions.Store(sessionID, sess)
}

// Find returns the session registered under sessionID, if any.
func (m *Manager) Find(sessionID string) (Session, bool) {
	v, ok := m.sessions.Load(sessionID)
	if !ok {
		return Session{}, false
	}
	return v.(Session), true
}

// Close removes sessionID. No-op if it is not registered.
func (m *Manager) Close(sessionID string) {
	m.sessions.Delete(sessionID)
}
