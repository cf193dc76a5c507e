package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()

	var got []Kind
	bus.Subscribe(func(e Event) { got = append(got, e.EventKind()) })
	bus.Subscribe(func(e Event) { got = append(got, e.EventKind()) })

	bus.Publish(VoteCast{At: time.Now(), VoteID: uuid.New()})

	if len(got) != 2 {
		t.Fatalf("доставлено %d раз, ожидали 2", len(got))
	}
	for _, k := range got {
		if k != KindVoteCast {
			t.Errorf("kind = %q", k)
		}
	}
}

func TestBusSurvivesPanickingSubscriber(t *testing.T) {
	bus := NewBus()

	delivered := false
	bus.Subscribe(func(Event) { panic("подписчик упал") })
	bus.Subscribe(func(Event) { delivered = true })

	// Паника первого подписчика не должна помешать второму
	bus.Publish(PostClosed{At: time.Now(), PostID: uuid.New(), Reason: "ttl"})

	if !delivered {
		t.Error("второй подписчик не получил событие")
	}
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	bus.Publish(TTLWarning{At: time.Now(), PostID: uuid.New()})
}
