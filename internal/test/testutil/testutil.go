// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package testutil provides test doubles for the ledger collaborators and
// helpers for waiting on event bus deliveries.
package testutil

import (
	"testing"
	"time"

	"github.com/blinklabs-io/nevo/event"
)

// RequireEvent waits for an event on ch and returns its payload as T. The
// test fails if the timeout expires or the payload has another type
func RequireEvent[T any](
	t *testing.T,
	ch <-chan event.Event,
	timeout time.Duration,
	msg string,
) T {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatalf("event channel closed: %s", msg)
		}
		data, ok := evt.Data.(T)
		if !ok {
			var zero T
			t.Fatalf("%s: event data is %T, expected %T", msg, evt.Data, zero)
		}
		return data
	case <-time.After(timeout):
		t.Fatalf("timeout waiting for event: %s", msg)
	}
	var zero T
	return zero // unreachable
}

// RequireNoEvent verifies that nothing is delivered on ch for duration
func RequireNoEvent(
	t *testing.T,
	ch <-chan event.Event,
	duration time.Duration,
	msg string,
) {
	t.Helper()
	select {
	case evt := <-ch:
		t.Fatalf(
			"unexpected %s event: %v: %s",
			evt.Type,
			evt.Data,
			msg,
		)
	case <-time.After(duration):
		// Expected: nothing received
	}
}
