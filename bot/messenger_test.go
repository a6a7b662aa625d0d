package bot

import (
	"context"
	"testing"
	"time"

	"notegate/core/telegram/sender"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

// A zero-value bot panics if any send closure actually executes, so these
// tests double as proof that dropped messages never reach the network.

func TestSendDroppedWhenQueueSaturated(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{QueueSize: 1, Workers: 1, MaxRetries: 0})
	defer d.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	ran := make(chan struct{}, 1)

	// Occupy the single worker, then fill the single queue slot.
	err := d.Enqueue(context.Background(), "block", "sendMessage", func() error {
		close(started)
		<-release
		return nil
	})
	assert.NoError(t, err)
	<-started
	err = d.Enqueue(context.Background(), "fill", "sendMessage", func() error {
		ran <- struct{}{}
		return nil
	})
	assert.NoError(t, err)

	m := NewMessenger(d)
	m.Bind(&tele.Bot{})

	done := make(chan struct{})
	go func() {
		m.SendText(context.Background(), 1, "overflow")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send must return immediately when the queue is full")
	}

	close(release)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued job was never executed")
	}
}

func TestSendDroppedAfterDispatcherClose(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{QueueSize: 1, Workers: 1})
	d.Close()

	m := NewMessenger(d)
	m.Bind(&tele.Bot{})

	assert.NotPanics(t, func() {
		m.SendText(context.Background(), 1, "late")
	})
}

func TestSendDroppedBeforeBind(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{QueueSize: 1, Workers: 1})
	defer d.Close()

	m := NewMessenger(d)
	assert.NotPanics(t, func() {
		m.SendText(context.Background(), 1, "too early")
	})
}
