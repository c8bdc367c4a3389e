package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"rent-monitor-service/internal/core/domain"
)

func newTestDigest(entries []domain.DigestEntry) (*SendDailyDigestUseCase, *mockDigestRepo, *mockSink) {
	digests := &mockDigestRepo{entries: entries, nextID: int64(len(entries))}
	sink := &mockSink{}
	uc := NewSendDailyDigestUseCase(digests, sink)
	uc.sleep = noSleep
	uc.now = func() time.Time { return time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC) }
	return uc, digests, sink
}

func digestEntry(id int64, recipientID, listingID string) domain.DigestEntry {
	return domain.DigestEntry{
		ID:          id,
		RecipientID: recipientID,
		ListingID:   listingID,
		Title:       "Квартира " + listingID,
		EventType:   domain.EventTypeNew,
		NewPrice:    500,
		AdLink:      "https://example.org/item/" + listingID,
	}
}

func TestDigestGroupsEntriesPerRecipient(t *testing.T) {
	uc, digests, sink := newTestDigest([]domain.DigestEntry{
		digestEntry(1, "chat-1", "a"),
		digestEntry(2, "chat-1", "b"),
		digestEntry(3, "chat-2", "c"),
	})

	delivered, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if delivered != 2 {
		t.Errorf("delivered = %d recipients, want 2", delivered)
	}
	if len(sink.sent) != 2 {
		t.Fatalf("sent %d messages, want one per recipient", len(sink.sent))
	}
	if len(digests.delivered) != 3 {
		t.Errorf("marked %d entries delivered, want 3", len(digests.delivered))
	}
}

func TestDigestMessageContainsEntries(t *testing.T) {
	uc, _, sink := newTestDigest([]domain.DigestEntry{
		digestEntry(1, "chat-1", "a"),
		digestEntry(2, "chat-1", "b"),
	})

	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sink.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sink.sent))
	}
	payload := sink.sent[0].payload
	for _, want := range []string{"Квартира a", "Квартира b"} {
		if !strings.Contains(payload, want) {
			t.Errorf("digest payload missing %q:\n%s", want, payload)
		}
	}
}

func TestDigestNoPendingEntries(t *testing.T) {
	uc, _, sink := newTestDigest(nil)

	delivered, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if delivered != 0 || len(sink.sent) != 0 {
		t.Errorf("delivered=%d sent=%d, want 0/0", delivered, len(sink.sent))
	}
}

func TestDigestFailedDeliveryKeepsEntriesPending(t *testing.T) {
	uc, digests, sink := newTestDigest([]domain.DigestEntry{digestEntry(1, "chat-1", "a")})
	sink.failures = 2
	sink.err = errors.New("telegram: 502")

	delivered, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if delivered != 0 {
		t.Errorf("delivered = %d, want 0", delivered)
	}
	// Недоставленные записи остаются в очереди до следующей сводки
	if len(digests.delivered) != 0 {
		t.Errorf("entries marked delivered after failed send: %v", digests.delivered)
	}
}

func TestDigestRetriesDeliveryOnce(t *testing.T) {
	uc, digests, sink := newTestDigest([]domain.DigestEntry{digestEntry(1, "chat-1", "a")})
	sink.failures = 1
	sink.err = errors.New("telegram: 502")

	delivered, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if delivered != 1 || len(digests.delivered) != 1 {
		t.Errorf("delivered=%d marked=%d, want retry to succeed", delivered, len(digests.delivered))
	}
}
