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

// Package eventbus is the synchronous, in-process fan-out every other
// component publishes domain events through: session creation outcomes,
// thing updates, and internal service faults.
package eventbus

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"

	"github.com/edgekit/deviceauth/api/types"
)

// Listener receives every event published after it subscribes.
type Listener func(types.Event)

// Bus is the publish/subscribe surface components depend on.
type Bus interface {
	Subscribe(l Listener) (unsubscribe func())
	Publish(evt types.Event)
}

// InProcessBus is a synchronous, panic-safe Bus: Publish calls every
// listener in the calling goroutine and recovers a listener's panic,
// converting it into a ServiceErrorEvent delivered to the remaining
// listeners. A ServiceErrorEvent listener that itself panics is recovered
// but not re-wrapped into another ServiceErrorEvent, so a broken error
// listener cannot drive the bus into an infinite publish loop.
type InProcessBus struct {
	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
	log       *logrus.Entry
}

// New returns an empty InProcessBus.
func New() *InProcessBus {
	return &InProcessBus{
		listeners: map[int]Listener{},
		log:       logrus.WithField(trace.Component, "eventbus"),
	}
}

// Subscribe registers l and returns a function that removes it.
func (b *InProcessBus) Subscribe(l Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Publish delivers evt to every current subscriber, in subscription order.
func (b *InProcessBus) Publish(evt types.Event) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	snapshot := make(map[int]Listener, len(b.listeners))
	for id, l := range b.listeners {
		snapshot[id] = l
	}
	b.mu.RUnlock()

	_, isErrorEvent := evt.(types.ServiceErrorEvent)

	for _, id := range ids {
		l := snapshot[id]
		b.deliver(l, evt, isErrorEvent)
	}
}

func (b *InProcessBus) deliver(l Listener, evt types.Event, isErrorEvent bool) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("recovered", r).Warn("event listener panicked")
			if isErrorEvent {
				// A ServiceErrorEvent listener panicking would otherwise
				// recurse: swallow it here instead of republishing.
				return
			}
			b.Publish(types.ServiceErrorEvent{
				Message: "event listener panicked",
				Err:     panicToError(r),
			})
		}
	}()
	l(evt)
}

func panicToError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicValue{r}
}

type panicValue struct{ v interface{} }

func (p *panicValue) Error() string { return fmt.Sprintf("%v", p.v) }
