// Package feed fans order events out to live subscribers, one topic per tenant and per customer.
package feed

import (
	"context"
	"sync"

	"github.com/zenGate-Global/palmyra-storefront/domains/orders/be/service"
)

const subscriberBuffer = 16

// TenantTopic is the topic store admins follow.
func TenantTopic(tenantID string) string { return "orders:tenant:" + tenantID }

// CustomerTopic is the topic a customer follows.
func CustomerTopic(customerID string) string { return "orders:customer:" + customerID }

func topicsFor(e service.Event) []string {
	return []string{TenantTopic(e.TenantID), CustomerTopic(e.CustomerID)}
}

// Broker publishes order events and hands out subscriptions.
type Broker interface {
	Publish(ctx context.Context, event service.Event) error
	// Subscribe returns a channel of events for topic. The channel is closed after cancel is
	// called or ctx ends.
	Subscribe(ctx context.Context, topic string) (events <-chan service.Event, cancel func(), err error)
}

// Memory is an in-process Broker. Slow subscribers drop events instead of blocking publishers.
type Memory struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan service.Event
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[string]map[int]chan service.Event)}
}

func (m *Memory) Publish(_ context.Context, event service.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, topic := range topicsFor(event) {
		for _, ch := range m.subs[topic] {
			select {
			case ch <- event:
			default:
			}
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, topic string) (<-chan service.Event, func(), error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	ch := make(chan service.Event, subscriberBuffer)
	if m.subs[topic] == nil {
		m.subs[topic] = make(map[int]chan service.Event)
	}
	m.subs[topic][id] = ch
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[topic], id)
			if len(m.subs[topic]) == 0 {
				delete(m.subs, topic)
			}
			m.mu.Unlock()
			close(ch)
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}

// Subscribers reports the number of live subscriptions on topic.
func (m *Memory) Subscribers(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[topic])
}

var _ Broker = (*Memory)(nil)
