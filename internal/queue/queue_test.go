package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	if err := q.Publish(ctx, Message{Type: "present", Body: []byte("evt-1")}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-msgs:
		if msg.Type != "present" || string(msg.Body) != "evt-1" {
			t.Fatalf("got %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("message never arrived")
	}
}

func TestPublishHonorsContext(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()
	if err := q.Publish(ctx, Message{Type: "present", Body: []byte("a")}); err != nil {
		t.Fatal(err)
	}

	// Queue full: a cancelled context must unblock the publisher.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := q.Publish(cancelled, Message{Type: "present", Body: []byte("b")}); err == nil {
		t.Fatal("publish on full queue with cancelled context succeeded")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	msg := deserialize(serialize(Message{Type: "present", Body: []byte("evt-42")}))
	if msg.Type != "present" || string(msg.Body) != "evt-42" {
		t.Fatalf("round trip gave %+v", msg)
	}
	if msg := deserialize("no-separator"); string(msg.Body) != "no-separator" {
		t.Fatalf("separator-free payload gave %+v", msg)
	}
}
