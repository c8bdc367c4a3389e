package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"rent-monitor-service/internal/core/domain"
)

func newTestMonitor(fetcher *mockFetcher, storage *mockStorage) (*MonitorListingsUseCase, *mockRunRepo, *mockEventsQueue, *mockRouter) {
	runRepo := &mockRunRepo{}
	events := &mockEventsQueue{}
	router := &mockRouter{}

	uc := NewMonitorListingsUseCase(fetcher, storage, runRepo, events, router, rand.New(rand.NewSource(42)))
	uc.sleep = noSleep
	uc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return uc, runRepo, events, router
}

func knownPage(ids ...string) []domain.ListingRecord {
	batch := make([]domain.ListingRecord, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, rec(id, 1000))
	}
	return batch
}

// makeKnownCatalog создает n известных ID с одинаковой ценой 1000.
func makeKnownCatalog(n int) (map[string]int, []string) {
	prices := make(map[string]int, n)
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("known-%03d", i)
		prices[id] = 1000
		ids = append(ids, id)
	}
	return prices, ids
}

func TestMonitorSelectsInitialModeOnSmallCatalog(t *testing.T) {
	fetcher := &mockFetcher{pages: []fetchResponse{
		{batch: []domain.ListingRecord{rec("n1", 500)}},
		{err: domain.ErrEmptyPage},
	}}
	storage := &mockStorage{totalCount: 100, knownPrices: map[string]int{}}
	uc, _, _, _ := newTestMonitor(fetcher, storage)

	record, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if record.Mode != domain.RunModeInitial {
		t.Errorf("mode = %s, want initial", record.Mode)
	}
	if record.StopReason != domain.StopReasonEmptyPage {
		t.Errorf("stop reason = %s, want empty_page", record.StopReason)
	}
}

func TestMonitorSelectsMonitoringModeOnLargeCatalog(t *testing.T) {
	fetcher := &mockFetcher{pages: []fetchResponse{{err: domain.ErrEmptyPage}}}
	storage := &mockStorage{totalCount: 6000, knownPrices: map[string]int{}}
	uc, _, _, _ := newTestMonitor(fetcher, storage)

	record, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if record.Mode != domain.RunModeMonitoring {
		t.Errorf("mode = %s, want monitoring", record.Mode)
	}
}

func TestMonitorSmartStopInMonitoringMode(t *testing.T) {
	prices, ids := makeKnownCatalog(120)

	// Три страницы по 20 известных записей доводят счетчик до 60 >= 50;
	// остановка на третьей странице (минимум страниц перед smart-stop)
	var pages []fetchResponse
	for p := 0; p < 6; p++ {
		pages = append(pages, fetchResponse{batch: knownPage(ids[p*20 : (p+1)*20]...)})
	}
	fetcher := &mockFetcher{pages: pages}
	storage := &mockStorage{totalCount: 6000, knownPrices: prices}
	uc, runRepo, _, _ := newTestMonitor(fetcher, storage)

	record, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if record.StopReason != domain.StopReasonSmartStop {
		t.Fatalf("stop reason = %s, want smart_stop", record.StopReason)
	}
	if record.PagesVisited != 3 {
		t.Errorf("pages visited = %d, want 3", record.PagesVisited)
	}
	if len(runRepo.saved) != 1 {
		t.Errorf("expected exactly one run record, got %d", len(runRepo.saved))
	}
}

func TestMonitorInitialModeIgnoresSmartStop(t *testing.T) {
	prices, ids := makeKnownCatalog(200)

	// Каталог маленький (режим initial), но все записи известны: умная
	// остановка должна игнорироваться, обход идет до пустой страницы
	var pages []fetchResponse
	for p := 0; p < 10; p++ {
		pages = append(pages, fetchResponse{batch: knownPage(ids[p*20 : (p+1)*20]...)})
	}
	pages = append(pages, fetchResponse{err: domain.ErrEmptyPage})
	fetcher := &mockFetcher{pages: pages}
	storage := &mockStorage{totalCount: 200, knownPrices: prices}
	uc, _, _, _ := newTestMonitor(fetcher, storage)

	record, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if record.StopReason != domain.StopReasonEmptyPage {
		t.Errorf("stop reason = %s, want empty_page (smart stop must be ignored)", record.StopReason)
	}
	if record.PagesVisited != 10 {
		t.Errorf("pages visited = %d, want 10", record.PagesVisited)
	}
}

func TestMonitorStopsOnExhaustedRetries(t *testing.T) {
	var pages []fetchResponse
	for i := 0; i < 20; i++ {
		pages = append(pages, fetchResponse{err: domain.ErrBlocked})
	}
	fetcher := &mockFetcher{pages: pages}
	storage := &mockStorage{totalCount: 6000, knownPrices: map[string]int{}}
	uc, _, _, _ := newTestMonitor(fetcher, storage)

	record, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if record.StopReason != domain.StopReasonErrorCeiling {
		t.Errorf("stop reason = %s, want error_ceiling", record.StopReason)
	}
	if record.ListingsSeen != 0 {
		t.Errorf("listings seen = %d, want 0", record.ListingsSeen)
	}
}

func TestMonitorTransientGetsOneImmediateRetry(t *testing.T) {
	fetcher := &mockFetcher{pages: []fetchResponse{
		{err: domain.ErrTransient},
		{batch: []domain.ListingRecord{rec("n1", 700)}}, // повтор удался
		{err: domain.ErrEmptyPage},
	}}
	storage := &mockStorage{totalCount: 6000, knownPrices: map[string]int{}}
	uc, _, _, _ := newTestMonitor(fetcher, storage)

	record, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if record.ListingsSeen != 1 || record.NewCount != 1 {
		t.Errorf("seen=%d new=%d, want 1/1", record.ListingsSeen, record.NewCount)
	}
}

func TestMonitorTransientTwiceSkipsPageAndContinues(t *testing.T) {
	fetcher := &mockFetcher{pages: []fetchResponse{
		{err: domain.ErrTransient},
		{err: domain.ErrTransient}, // повтор тоже неудачен - страница пропускается
		{batch: []domain.ListingRecord{rec("n1", 700)}},
		{err: domain.ErrEmptyPage},
	}}
	storage := &mockStorage{totalCount: 6000, knownPrices: map[string]int{}}
	uc, _, _, _ := newTestMonitor(fetcher, storage)

	record, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if record.StopReason != domain.StopReasonEmptyPage {
		t.Errorf("stop reason = %s, want empty_page", record.StopReason)
	}
	if record.NewCount != 1 {
		t.Errorf("new count = %d, want 1 (run must continue past skipped page)", record.NewCount)
	}
}

func TestMonitorRemovalSweepRunsOnLargeRun(t *testing.T) {
	// 25 страниц по 40 новых записей = 1000 >= минимума для снятия
	var pages []fetchResponse
	for p := 0; p < 25; p++ {
		var batch []domain.ListingRecord
		for i := 0; i < 40; i++ {
			batch = append(batch, rec(fmt.Sprintf("fresh-%d-%d", p, i), 900))
		}
		pages = append(pages, fetchResponse{batch: batch})
	}
	pages = append(pages, fetchResponse{err: domain.ErrEmptyPage})
	fetcher := &mockFetcher{pages: pages}
	storage := &mockStorage{
		totalCount:  6000,
		knownPrices: map[string]int{},
		removedRecs: []domain.ListingRecord{
			rec("gone-1", 3000), rec("gone-2", 4500), rec("gone-3", 5200),
		},
	}
	uc, _, events, _ := newTestMonitor(fetcher, storage)

	record, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if storage.removedCalls != 1 {
		t.Fatalf("removal sweep calls = %d, want 1", storage.removedCalls)
	}
	if len(storage.removedSeen) != 1000 {
		t.Errorf("sweep received %d seen ids, want 1000", len(storage.removedSeen))
	}
	if record.RemovedCount != 3 {
		t.Errorf("removed count = %d, want 3", record.RemovedCount)
	}

	// По каждой снятой записи публикуется событие removed
	removedIDs := map[string]bool{}
	for _, e := range events.published {
		if e.Type == domain.EventTypeRemoved {
			removedIDs[e.Record.ID] = true
		}
	}
	for _, id := range []string{"gone-1", "gone-2", "gone-3"} {
		if !removedIDs[id] {
			t.Errorf("no removed event published for %s", id)
		}
	}
}

func TestMonitorRemovalSkippedOnShortRun(t *testing.T) {
	prices, ids := makeKnownCatalog(120)
	var pages []fetchResponse
	for p := 0; p < 6; p++ {
		pages = append(pages, fetchResponse{batch: knownPage(ids[p*20 : (p+1)*20]...)})
	}
	fetcher := &mockFetcher{pages: pages}
	storage := &mockStorage{totalCount: 6000, knownPrices: prices}
	uc, _, _, _ := newTestMonitor(fetcher, storage)

	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Прогон увидел всего 60 объявлений - снятие пропускается
	if storage.removedCalls != 0 {
		t.Errorf("removal sweep must not run on a short run, got %d calls", storage.removedCalls)
	}
}

func TestMonitorPersistenceFailureDoesNotAbortRun(t *testing.T) {
	fetcher := &mockFetcher{pages: []fetchResponse{
		{batch: []domain.ListingRecord{rec("bad", 100), rec("good", 200)}},
		{err: domain.ErrEmptyPage},
	}}
	storage := &mockStorage{
		totalCount:   6000,
		knownPrices:  map[string]int{},
		upsertErrFor: map[string]error{"bad": errors.New("constraint violation")},
	}
	uc, _, _, _ := newTestMonitor(fetcher, storage)

	record, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if record.StopReason != domain.StopReasonEmptyPage {
		t.Errorf("stop reason = %s, want empty_page", record.StopReason)
	}
	if len(storage.upserted) != 1 || storage.upserted[0].ID != "good" {
		t.Errorf("expected listing 'good' persisted despite failure of 'bad', got %+v", storage.upserted)
	}
}

func TestMonitorPublishesEventsAndRoutes(t *testing.T) {
	fetcher := &mockFetcher{pages: []fetchResponse{
		{batch: []domain.ListingRecord{rec("n1", 500), rec("kn", 90)}},
		{err: domain.ErrEmptyPage},
	}}
	storage := &mockStorage{totalCount: 6000, knownPrices: map[string]int{"kn": 100}}
	uc, _, events, router := newTestMonitor(fetcher, storage)

	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(events.published) != 2 {
		t.Fatalf("published %d events, want 2", len(events.published))
	}
	typesSeen := map[domain.EventType]bool{}
	for _, e := range events.published {
		typesSeen[e.Type] = true
	}
	if !typesSeen[domain.EventTypeNew] || !typesSeen[domain.EventTypePriceChange] {
		t.Errorf("expected one new and one price_change event, got %+v", events.published)
	}
	if len(router.routed) != 1 || len(router.routed[0]) != 2 {
		t.Errorf("router received %+v, want one call with 2 events", router.routed)
	}
}

func TestMonitorPageCeilingInMonitoringMode(t *testing.T) {
	// Бесконечный поток новых записей: остановка по потолку страниц
	var pages []fetchResponse
	for p := 0; p < 100; p++ {
		pages = append(pages, fetchResponse{batch: []domain.ListingRecord{rec(fmt.Sprintf("p%d", p), 100)}})
	}
	fetcher := &mockFetcher{pages: pages}
	storage := &mockStorage{totalCount: 6000, knownPrices: map[string]int{}}
	uc, _, _, _ := newTestMonitor(fetcher, storage)

	record, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if record.StopReason != domain.StopReasonPageCeiling {
		t.Errorf("stop reason = %s, want page_ceiling", record.StopReason)
	}
	if record.PagesVisited != 60 {
		t.Errorf("pages visited = %d, want 60", record.PagesVisited)
	}
}
