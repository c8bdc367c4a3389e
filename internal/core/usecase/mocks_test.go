package usecase

import (
	"context"
	"time"

	"rent-monitor-service/internal/core/domain"
)

// Ручные моки портов для тестов ядра.

type fetchResponse struct {
	batch []domain.ListingRecord
	err   error
}

type mockFetcher struct {
	// pages[i] отдается на i-й вызов FetchPage независимо от номера страницы
	pages []fetchResponse
	calls int
}

func (m *mockFetcher) FetchPage(ctx context.Context, page int) ([]domain.ListingRecord, error) {
	if m.calls >= len(m.pages) {
		return nil, domain.ErrEmptyPage
	}
	resp := m.pages[m.calls]
	m.calls++
	return resp.batch, resp.err
}

type mockStorage struct {
	knownPrices map[string]int
	totalCount  int

	upserted     []domain.Listing
	observations []domain.PriceObservation
	removedCalls int
	removedSeen  map[string]struct{}
	removedRecs  []domain.ListingRecord

	upsertErrFor map[string]error
	knownErr     error
	countErr     error
}

func (m *mockStorage) GetKnownListingPrices(ctx context.Context) (map[string]int, error) {
	if m.knownErr != nil {
		return nil, m.knownErr
	}
	// Копия: движок мутирует карту внутри прогона
	cp := make(map[string]int, len(m.knownPrices))
	for k, v := range m.knownPrices {
		cp[k] = v
	}
	return cp, nil
}

func (m *mockStorage) GetTotalCount(ctx context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.totalCount, nil
}

func (m *mockStorage) UpsertListing(ctx context.Context, listing domain.Listing) error {
	if err, ok := m.upsertErrFor[listing.ID]; ok {
		return err
	}
	m.upserted = append(m.upserted, listing)
	return nil
}

func (m *mockStorage) AppendPriceObservation(ctx context.Context, obs domain.PriceObservation) error {
	m.observations = append(m.observations, obs)
	return nil
}

func (m *mockStorage) MarkUnseenRemoved(ctx context.Context, seenIDs map[string]struct{}, at time.Time) ([]domain.ListingRecord, error) {
	m.removedCalls++
	m.removedSeen = seenIDs
	return m.removedRecs, nil
}

func (m *mockStorage) MarkRemoved(ctx context.Context, listingID string, at time.Time) error {
	return nil
}

type mockRunRepo struct {
	saved []domain.ScrapeRunRecord
}

func (m *mockRunRepo) SaveRunRecord(ctx context.Context, record domain.ScrapeRunRecord) error {
	m.saved = append(m.saved, record)
	return nil
}

func (m *mockRunRepo) ListRecentRuns(ctx context.Context, limit int) ([]domain.ScrapeRunRecord, error) {
	return m.saved, nil
}

type mockEventsQueue struct {
	published []domain.ListingEvent
	err       error
}

func (m *mockEventsQueue) PublishListingEvent(ctx context.Context, event domain.ListingEvent) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, event)
	return nil
}

type mockRouter struct {
	routed [][]domain.ListingEvent
	err    error
}

func (m *mockRouter) Route(ctx context.Context, events []domain.ListingEvent) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.routed = append(m.routed, events)
	return len(events), nil
}

type mockFilterRepo struct {
	enabled []domain.RecipientFilter
	err     error
}

func (m *mockFilterRepo) ListEnabledFilters(ctx context.Context) ([]domain.RecipientFilter, error) {
	return m.enabled, m.err
}

func (m *mockFilterRepo) ListFilters(ctx context.Context, recipientID string) ([]domain.RecipientFilter, error) {
	return m.enabled, nil
}

func (m *mockFilterRepo) SaveFilter(ctx context.Context, filter domain.RecipientFilter) (int64, error) {
	return 1, nil
}

func (m *mockFilterRepo) DeleteFilter(ctx context.Context, filterID int64) error {
	return nil
}

type ledgerKey struct {
	recipient string
	listing   string
	eventType domain.EventType
}

type mockLedger struct {
	recorded map[ledgerKey]bool
	err      error
}

func newMockLedger() *mockLedger {
	return &mockLedger{recorded: make(map[ledgerKey]bool)}
}

func (m *mockLedger) HasNotified(ctx context.Context, recipientID, listingID string, eventType domain.EventType) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.recorded[ledgerKey{recipientID, listingID, eventType}], nil
}

func (m *mockLedger) RecordNotified(ctx context.Context, recipientID, listingID string, eventType domain.EventType, at time.Time) error {
	m.recorded[ledgerKey{recipientID, listingID, eventType}] = true
	return nil
}

type mockDigestRepo struct {
	entries   []domain.DigestEntry
	delivered []int64
	nextID    int64
}

func (m *mockDigestRepo) AddDigestEntry(ctx context.Context, entry domain.DigestEntry) error {
	m.nextID++
	entry.ID = m.nextID
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockDigestRepo) ListPendingDigestEntries(ctx context.Context) ([]domain.DigestEntry, error) {
	return m.entries, nil
}

func (m *mockDigestRepo) MarkDigestDelivered(ctx context.Context, entryIDs []int64, at time.Time) error {
	m.delivered = append(m.delivered, entryIDs...)
	return nil
}

type sentMessage struct {
	recipientID string
	payload     string
}

type mockSink struct {
	sent     []sentMessage
	failures int // первые failures вызовов Send вернут ошибку
	err      error
}

func (m *mockSink) Send(ctx context.Context, recipientID string, payload string) error {
	if m.failures > 0 {
		m.failures--
		return m.err
	}
	m.sent = append(m.sent, sentMessage{recipientID, payload})
	return nil
}

// noSleep подменяет реальные задержки в тестах.
func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}
