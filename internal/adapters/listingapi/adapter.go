package listingapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"rent-monitor-service/internal/core/domain"
	"rent-monitor-service/internal/core/port"
)

const (
	requestTimeout  = 30 * time.Second
	maxResponseSize = 10 << 20 // 10 MiB

	// Маркер страницы-заглушки антибота: источник отдает ее с кодом 200
	blockPageMarker = "Are you for real"
)

// Источник банит однообразные клиенты, поэтому User-Agent меняется на каждый запрос
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
}

// ListingAPIAdapter отвечает за все взаимодействия с JSON-фидом источника.
// Классифицирует ответы источника в доменные ошибки, по которым цикл
// мониторинга управляет задержками и повторами.
type ListingAPIAdapter struct {
	client  *http.Client
	baseURL string
	logger  port.LoggerPort

	mu  sync.Mutex // rand.Rand не потокобезопасен
	rng *rand.Rand
}

// NewListingAPIAdapter - конструктор
func NewListingAPIAdapter(baseURL string, rng *rand.Rand, logger port.LoggerPort) (*ListingAPIAdapter, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("listingapi: baseURL cannot be empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("listingapi: invalid baseURL %q: %w", baseURL, err)
	}
	return &ListingAPIAdapter{
		client:  &http.Client{Timeout: requestTimeout},
		baseURL: baseURL,
		logger:  logger,
		rng:     rng,
	}, nil
}

// FetchPage загружает одну страницу фида и отдает записи источника.
// Пустая страница означает конец фида и возвращается как domain.ErrEmptyPage.
func (a *ListingAPIAdapter) FetchPage(ctx context.Context, page int) ([]domain.ListingRecord, error) {
	pageURL, err := a.buildPageURL(page)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("listingapi: build request for page %d: %w", page, err)
	}
	a.setHeaders(req)

	resp, err := a.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("listingapi: page %d timed out: %w", page, domain.ErrTransient)
		}
		return nil, fmt.Errorf("listingapi: page %d request failed: %v: %w", page, err, domain.ErrTransient)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("listingapi: page %d read body: %v: %w", page, err, domain.ErrTransient)
	}

	if err := classifyResponse(resp, body); err != nil {
		return nil, fmt.Errorf("listingapi: page %d: %w", page, err)
	}

	records, dropped, err := a.decodePage(body)
	if err != nil {
		return nil, fmt.Errorf("listingapi: page %d: %v: %w", page, err, domain.ErrTransient)
	}
	if dropped > 0 {
		a.logger.Warn("Dropped feed items that failed schema validation", port.Fields{
			"page":    page,
			"dropped": dropped,
		})
	}
	if len(records) == 0 {
		return nil, domain.ErrEmptyPage
	}
	return records, nil
}

// classifyResponse переводит статус ответа в доменную ошибку.
func classifyResponse(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case resp.StatusCode == http.StatusForbidden:
		return domain.ErrBlocked
	case resp.StatusCode >= 500:
		return fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrTransient)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d: %w", resp.StatusCode, domain.ErrTransient)
	}

	// Антибот отвечает кодом 200 с HTML-заглушкой вместо JSON
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") || strings.Contains(string(body), blockPageMarker) {
		return domain.ErrBlocked
	}
	return nil
}

func (a *ListingAPIAdapter) buildPageURL(page int) (string, error) {
	if page <= 1 {
		return a.baseURL, nil
	}
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return "", fmt.Errorf("listingapi: parse baseURL: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *ListingAPIAdapter) setHeaders(req *http.Request) {
	a.mu.Lock()
	ua := userAgents[a.rng.Intn(len(userAgents))]
	a.mu.Unlock()

	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "he-IL,he;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Connection", "keep-alive")
}
