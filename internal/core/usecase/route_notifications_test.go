package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"rent-monitor-service/internal/core/domain"
)

func intPtr(v int) *int { return &v }

func newTestRouter(filters []domain.RecipientFilter) (*RouteNotificationsUseCase, *mockLedger, *mockDigestRepo, *mockSink) {
	ledger := newMockLedger()
	digests := &mockDigestRepo{}
	sink := &mockSink{}
	uc := NewRouteNotificationsUseCase(&mockFilterRepo{enabled: filters}, ledger, digests, sink)
	uc.sleep = noSleep
	uc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return uc, ledger, digests, sink
}

func anyFilter(recipientID string) domain.RecipientFilter {
	return domain.RecipientFilter{ID: 1, RecipientID: recipientID, Name: "all", Enabled: true}
}

func newEvent(id string, price int) domain.ListingEvent {
	return domain.ListingEvent{Type: domain.EventTypeNew, Record: rec(id, price), NewPrice: price}
}

func priceDropEvent(id string, oldPrice, newPrice int) domain.ListingEvent {
	return domain.ListingEvent{
		Type:     domain.EventTypePriceChange,
		Record:   rec(id, newPrice),
		OldPrice: oldPrice,
		NewPrice: newPrice,
	}
}

func TestRouteDeliversNewListingToMatchingRecipient(t *testing.T) {
	uc, _, _, sink := newTestRouter([]domain.RecipientFilter{anyFilter("chat-1")})

	emitted, err := uc.Route(context.Background(), []domain.ListingEvent{newEvent("a", 500)})
	if err != nil {
		t.Fatal(err)
	}
	if emitted != 1 || len(sink.sent) != 1 {
		t.Fatalf("emitted=%d sent=%d, want 1/1", emitted, len(sink.sent))
	}
	if sink.sent[0].recipientID != "chat-1" {
		t.Errorf("recipient = %s, want chat-1", sink.sent[0].recipientID)
	}
}

func TestRouteSkipsRecipientWhoseFiltersDoNotMatch(t *testing.T) {
	expensive := domain.RecipientFilter{
		ID:          2,
		RecipientID: "chat-2",
		Name:        "budget",
		MaxPrice:    intPtr(300),
		Enabled:     true,
	}
	uc, _, _, sink := newTestRouter([]domain.RecipientFilter{expensive})

	emitted, err := uc.Route(context.Background(), []domain.ListingEvent{newEvent("a", 500)})
	if err != nil {
		t.Fatal(err)
	}
	if emitted != 0 || len(sink.sent) != 0 {
		t.Errorf("emitted=%d sent=%d, want 0/0", emitted, len(sink.sent))
	}
}

func TestRoutePriceDropThreshold(t *testing.T) {
	cases := []struct {
		name     string
		oldPrice int
		newPrice int
		want     int
	}{
		{"drop of exactly 5 percent notifies", 1000, 950, 1},
		{"drop of 10 percent notifies", 1000, 900, 1},
		{"drop of 4.9 percent is ignored", 1000, 951, 0},
		{"price increase is ignored", 1000, 1100, 0},
		{"tiny fluctuation is ignored", 1000, 999, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc, _, _, sink := newTestRouter([]domain.RecipientFilter{anyFilter("chat-1")})
			event := priceDropEvent("a", tc.oldPrice, tc.newPrice)
			emitted, err := uc.Route(context.Background(), []domain.ListingEvent{event})
			if err != nil {
				t.Fatal(err)
			}
			if emitted != tc.want || len(sink.sent) != tc.want {
				t.Errorf("emitted=%d sent=%d, want %d", emitted, len(sink.sent), tc.want)
			}
		})
	}
}

func TestRouteIsIdempotentAcrossRepeatedDiffs(t *testing.T) {
	uc, _, _, sink := newTestRouter([]domain.RecipientFilter{anyFilter("chat-1")})
	events := []domain.ListingEvent{newEvent("a", 500)}

	for i := 0; i < 3; i++ {
		if _, err := uc.Route(context.Background(), events); err != nil {
			t.Fatal(err)
		}
	}
	// Тройка (получатель, объявление, тип) уходит ровно один раз
	if len(sink.sent) != 1 {
		t.Errorf("sent %d messages across repeated routes, want 1", len(sink.sent))
	}
}

func TestRouteSameListingDifferentEventTypesBothDelivered(t *testing.T) {
	uc, _, _, sink := newTestRouter([]domain.RecipientFilter{anyFilter("chat-1")})

	if _, err := uc.Route(context.Background(), []domain.ListingEvent{newEvent("a", 1000)}); err != nil {
		t.Fatal(err)
	}
	if _, err := uc.Route(context.Background(), []domain.ListingEvent{priceDropEvent("a", 1000, 900)}); err != nil {
		t.Fatal(err)
	}
	if len(sink.sent) != 2 {
		t.Errorf("sent %d messages, want 2 (new + price_change are distinct)", len(sink.sent))
	}
}

func TestRouteDefersToDigestWhenRateLimited(t *testing.T) {
	uc, ledger, digests, sink := newTestRouter([]domain.RecipientFilter{anyFilter("chat-1")})
	uc.limiter = newSlidingWindowLimiter(2, time.Hour)

	events := []domain.ListingEvent{
		newEvent("a", 100),
		newEvent("b", 200),
		newEvent("c", 300),
		newEvent("d", 400),
	}
	emitted, err := uc.Route(context.Background(), events)
	if err != nil {
		t.Fatal(err)
	}
	if emitted != 2 || len(sink.sent) != 2 {
		t.Fatalf("emitted=%d sent=%d, want 2 instant deliveries", emitted, len(sink.sent))
	}
	if len(digests.entries) != 2 {
		t.Fatalf("digest entries = %d, want 2 deferred", len(digests.entries))
	}
	// Отложенные тоже фиксируются в журнале: повторный прогон не дублирует
	for _, entry := range digests.entries {
		key := ledgerKey{"chat-1", entry.ListingID, domain.EventTypeNew}
		if !ledger.recorded[key] {
			t.Errorf("deferred listing %s not recorded in ledger", entry.ListingID)
		}
	}
}

func TestRouteRetriesDeliveryOnce(t *testing.T) {
	uc, _, _, sink := newTestRouter([]domain.RecipientFilter{anyFilter("chat-1")})
	sink.failures = 1
	sink.err = errors.New("telegram: 502")

	emitted, err := uc.Route(context.Background(), []domain.ListingEvent{newEvent("a", 500)})
	if err != nil {
		t.Fatal(err)
	}
	if emitted != 1 || len(sink.sent) != 1 {
		t.Errorf("emitted=%d sent=%d, want successful retry", emitted, len(sink.sent))
	}
}

func TestRouteFailedDeliveryLeavesLedgerClean(t *testing.T) {
	uc, ledger, _, sink := newTestRouter([]domain.RecipientFilter{anyFilter("chat-1")})
	sink.failures = 2 // первый вызов и повтор оба неудачны
	sink.err = errors.New("telegram: 502")

	emitted, err := uc.Route(context.Background(), []domain.ListingEvent{newEvent("a", 500)})
	if err != nil {
		t.Fatal(err)
	}
	if emitted != 0 {
		t.Errorf("emitted = %d, want 0", emitted)
	}
	// Без записи в журнале следующий прогон попробует доставить снова
	if ledger.recorded[ledgerKey{"chat-1", "a", domain.EventTypeNew}] {
		t.Error("failed delivery must not be recorded as notified")
	}
}

func TestRouteMultipleFiltersSingleDelivery(t *testing.T) {
	// Два пересекающихся фильтра одного получателя - одно сообщение
	cheap := domain.RecipientFilter{ID: 1, RecipientID: "chat-1", MaxPrice: intPtr(1000), Enabled: true}
	all := domain.RecipientFilter{ID: 2, RecipientID: "chat-1", Enabled: true}
	uc, _, _, sink := newTestRouter([]domain.RecipientFilter{cheap, all})

	if _, err := uc.Route(context.Background(), []domain.ListingEvent{newEvent("a", 500)}); err != nil {
		t.Fatal(err)
	}
	if len(sink.sent) != 1 {
		t.Errorf("sent %d messages, want 1 per recipient regardless of filter count", len(sink.sent))
	}
}
