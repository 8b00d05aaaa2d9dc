// Copyright 2025 Blink Labs Software
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

package event_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blinklabs-io/nevo/event"
)

const testEvtType event.EventType = "test.event"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "event channel closed unexpectedly")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return event.Event{}
}

func TestEventBusSingleSubscriber(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 999))
	evt := receive(t, subCh)
	assert.Equal(t, testEvtType, evt.Type)
	assert.Equal(t, 999, evt.Data)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1Ch := eb.Subscribe(testEvtType)
	_, sub2Ch := eb.Subscribe(testEvtType)
	_, otherCh := eb.Subscribe("other.event")
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "data"))
	assert.Equal(t, "data", receive(t, sub1Ch).Data)
	assert.Equal(t, "data", receive(t, sub2Ch).Data)
	select {
	case <-otherCh:
		t.Fatal("received event of another type")
	default:
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	_, ok := <-subCh
	assert.False(t, ok, "channel should be closed after Unsubscribe")
	// Unknown subscribers are ignored
	eb.Unsubscribe(testEvtType, subId)
}

func TestEventBusSubscribeFunc(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	var count atomic.Int32
	eb.SubscribeFunc(testEvtType, func(event.Event) {
		count.Add(1)
	})
	for range 3 {
		eb.Publish(testEvtType, event.NewEvent(testEvtType, nil))
	}
	require.Eventually(
		t,
		func() bool { return count.Load() == 3 },
		time.Second,
		10*time.Millisecond,
	)
}

func TestEventBusPublishAsync(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	require.True(
		t,
		eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, "async")),
	)
	assert.Equal(t, "async", receive(t, subCh).Data)
}

type failingSubscriber struct {
	closed atomic.Bool
	panic  bool
}

func (f *failingSubscriber) Deliver(event.Event) error {
	if f.panic {
		panic("boom")
	}
	return errors.New("delivery failed")
}

func (f *failingSubscriber) Close() {
	f.closed.Store(true)
}

func TestEventBusFailingSubscriberRemoved(t *testing.T) {
	registry := prometheus.NewRegistry()
	eb := event.NewEventBus(registry, nil)
	defer eb.Stop()
	failing := &failingSubscriber{}
	panicking := &failingSubscriber{panic: true}
	eb.RegisterSubscriber(testEvtType, failing)
	eb.RegisterSubscriber(testEvtType, panicking)
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	assert.Equal(t, 1, receive(t, subCh).Data)
	assert.True(t, failing.closed.Load())
	assert.True(t, panicking.closed.Load())
	count, err := testutil.GatherAndCount(
		registry,
		"event_bus_delivery_errors_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.InDelta(
		t,
		1,
		testutil.ToFloat64(mustGaugeVec(t, registry)),
		0,
	)
}

// mustGaugeVec returns the channel subscriber gauge left after the failing
// subscribers were removed
func mustGaugeVec(t *testing.T, registry *prometheus.Registry) prometheus.Collector {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "event_bus_subscribers" {
			continue
		}
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "sum"})
		for _, m := range f.GetMetric() {
			gauge.Add(m.GetGauge().GetValue())
		}
		return gauge
	}
	t.Fatal("subscriber gauge not registered")
	return nil
}

func TestEventBusStop(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	_, subCh := eb.Subscribe(testEvtType)
	eb.Stop()
	_, ok := <-subCh
	assert.False(t, ok)
	assert.False(
		t,
		eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, nil)),
	)
	// Stopping twice is harmless
	eb.Stop()
}
