package source

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/medsift/adr-engine/pkg/natsutil"
)

// Document is the wire shape for documents arriving over NATS.
type Document struct {
	Text string `json:"text"`
}

// NATS serves documents published to a subject. Next blocks until a message
// arrives; after Close, buffered documents drain first and then Next reports
// ErrExhausted.
type NATS struct {
	sub  *nats.Subscription
	ch   chan string
	done chan struct{}
	once sync.Once
}

// NewNATS subscribes to subject on nc.
func NewNATS(nc *nats.Conn, subject string) (*NATS, error) {
	n := &NATS{
		ch:   make(chan string, 64),
		done: make(chan struct{}),
	}
	sub, err := natsutil.Subscribe(nc, subject, func(_ context.Context, doc Document) {
		select {
		case n.ch <- doc.Text:
		case <-n.done:
		}
	})
	if err != nil {
		return nil, err
	}
	n.sub = sub
	return n, nil
}

// Next implements Source.
func (n *NATS) Next(ctx context.Context) (string, error) {
	// Drain buffered documents before considering shutdown.
	select {
	case doc := <-n.ch:
		return doc, nil
	default:
	}

	select {
	case doc := <-n.ch:
		return doc, nil
	case <-n.done:
		return "", ErrExhausted
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close unsubscribes and marks the source exhausted.
func (n *NATS) Close() error {
	var err error
	n.once.Do(func() {
		err = n.sub.Unsubscribe()
		close(n.done)
	})
	return err
}
