package bus

import (
	"context"
	"testing"

	"github.com/hazyhaar/goclode/internal/coreerr"
)

type widgetCreated struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required,min=1"`
}

var widgetCreatedEvent = Declare[widgetCreated]("widget.created")

func TestPublishDeliversToSubscribersInOrder(t *testing.T) {
	b := New()
	var got []string

	unsub1 := Subscribe(b, widgetCreatedEvent, func(ctx context.Context, e widgetCreated) {
		got = append(got, "first:"+e.ID)
	})
	defer unsub1()

	Subscribe(b, widgetCreatedEvent, func(ctx context.Context, e widgetCreated) {
		got = append(got, "second:"+e.ID)
	})

	if err := Publish(context.Background(), b, widgetCreatedEvent, widgetCreated{ID: "w1", Name: "gadget"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(got) != 2 || got[0] != "first:w1" || got[1] != "second:w1" {
		t.Fatalf("unexpected delivery order: %v", got)
	}
}

func TestPublishRejectsInvalidPayloadWithoutNotifyingSubscribers(t *testing.T) {
	b := New()
	called := false
	Subscribe(b, widgetCreatedEvent, func(ctx context.Context, e widgetCreated) {
		called = true
	})

	err := Publish(context.Background(), b, widgetCreatedEvent, widgetCreated{ID: "", Name: ""})
	if !coreerr.Is(err, coreerr.KindInvalid) {
		t.Fatalf("expected KindInvalid, got %v", err)
	}
	if called {
		t.Fatal("subscriber should not run when validation fails")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	calls := 0
	unsub := Subscribe(b, widgetCreatedEvent, func(ctx context.Context, e widgetCreated) {
		calls++
	})
	unsub()

	if err := Publish(context.Background(), b, widgetCreatedEvent, widgetCreated{ID: "w1", Name: "gadget"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no delivery after unsubscribe, got %d calls", calls)
	}
}

func TestIndependentBusesDoNotShareSubscriptions(t *testing.T) {
	a := New()
	b := New()
	calls := 0
	Subscribe(a, widgetCreatedEvent, func(ctx context.Context, e widgetCreated) {
		calls++
	})

	if err := Publish(context.Background(), b, widgetCreatedEvent, widgetCreated{ID: "w1", Name: "gadget"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected publish on b not to reach a's subscriber, got %d calls", calls)
	}
}
