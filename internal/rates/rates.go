// Package rates fetches exchange rates against the base currency.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/notify"
)

// DefaultURL serves a table of foreign units per one base unit.
const DefaultURL = "https://api.exchangerate-api.com/v4/latest/" + model.BaseCurrency

// Currencies are the foreign currencies kept in the table.
var Currencies = []string{"EUR", "USD", "UAH"}

var ErrUnknownCurrency = errors.New("unknown currency")

const fetchTimeout = 15 * time.Second

// Sink receives a refreshed table.
type Sink interface {
	SetRates(model.Rates) error
}

// Service refreshes the rate table. Concurrent refreshes share one request, and
// a failed refresh leaves the previous table in place.
type Service struct {
	client   *http.Client
	url      string
	sink     Sink
	notifier notify.Notifier
	logger   *slog.Logger
	group    singleflight.Group

	mu        sync.RWMutex
	lastFetch time.Time
}

func NewService(url string, sink Sink, notifier notify.Notifier, logger *slog.Logger) *Service {
	if url == "" {
		url = DefaultURL
	}
	return &Service{
		client:   &http.Client{Timeout: 10 * time.Second},
		url:      url,
		sink:     sink,
		notifier: notifier,
		logger:   logger.With("component", "rates"),
	}
}

// LastUpdate is when the table was last refreshed; zero if never.
func (s *Service) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFetch
}

// Refresh fetches a new table. The shared request is detached from ctx, so a
// caller that gives up returns early without failing the others.
func (s *Service) Refresh(ctx context.Context) (model.Rates, error) {
	ch := s.group.DoChan("rates", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		rates, err := s.fetch(fctx)
		if err == nil {
			err = s.sink.SetRates(rates)
		}
		if err != nil {
			s.logger.Warn("refresh exchange rates", "error", err)
			s.notifier.Notify(model.NotifyError, "Could not update exchange rates")
			return nil, err
		}
		s.mu.Lock()
		s.lastFetch = time.Now()
		s.mu.Unlock()
		s.notifier.Notify(model.NotifySuccess, "Exchange rates updated")
		return rates, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(model.Rates), nil
	}
}

type apiResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// fetch reads foreign-per-base quotes and inverts them into base units per
// foreign unit.
func (s *Service) fetch(ctx context.Context) (model.Rates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build rates request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rates API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates API returned status %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode rates response: %w", err)
	}

	rates := model.Rates{model.BaseCurrency: decimal.NewFromInt(1)}
	for _, code := range Currencies {
		quote, ok := apiResp.Rates[code]
		if !ok || !quote.IsPositive() {
			return nil, fmt.Errorf("rates response: missing %s", code)
		}
		rates[code] = decimal.NewFromInt(1).Div(quote)
	}
	return rates, nil
}

// Convert expresses amount of currency from in the base currency.
func Convert(rates model.Rates, amount decimal.Decimal, from string) (decimal.Decimal, error) {
	rate, ok := rates[strings.ToUpper(from)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, from)
	}
	return amount.Mul(rate), nil
}
