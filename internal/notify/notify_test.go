package notify

import "testing"

func TestHubFanOut(t *testing.T) {
	hub := NewHub()
	ch1, cancel1 := hub.Subscribe("u1")
	defer cancel1()
	ch2, cancel2 := hub.Subscribe("u1")
	defer cancel2()
	other, cancelOther := hub.Subscribe("u2")
	defer cancelOther()

	hub.Notify("u1", EventUploadStarted, map[string]any{"uploadId": "up-1"})

	for _, ch := range []<-chan Message{ch1, ch2} {
		select {
		case msg := <-ch:
			if msg.Event != EventUploadStarted || msg.Payload["uploadId"] != "up-1" {
				t.Errorf("msg = %+v", msg)
			}
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}

	select {
	case msg := <-other:
		t.Errorf("u2 received u1's event: %+v", msg)
	default:
	}
}

func TestHubNonBlockingWhenFull(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("u1")
	defer cancel()

	// Overflow the buffer; Notify must never block.
	for i := 0; i < subscriberBuffer*2; i++ {
		hub.Notify("u1", EventProcessingProgress, nil)
	}
}

func TestHubNotifyWithoutSubscribers(t *testing.T) {
	NewHub().Notify("nobody", EventUploadCompleted, nil)
}

func TestHubCancelIdempotent(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("u1")
	cancel()
	cancel()
	hub.Notify("u1", EventUploadCompleted, nil)
}
