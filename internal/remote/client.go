package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/famfund/internal/model"
)

var (
	_ Gateway      = (*Client)(nil)
	_ AtomicWriter = (*Client)(nil)
)

const (
	maxRetryDelay = 30 * time.Second
	readLimit     = 4 << 20
)

// Client talks to a famfund-cloud server.
type Client struct {
	baseURL    string
	client     *http.Client
	logger     *slog.Logger
	retryDelay time.Duration
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		retryDelay: time.Second,
	}
}

func familyPath(code string, parts ...string) string {
	p := "/api/families/" + url.PathEscape(strings.ToUpper(strings.TrimSpace(code)))
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// do sends body as JSON and decodes the envelope's data into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env Result[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode response (status %d): %v", ErrUnavailable, resp.StatusCode, err)
	}
	if !env.Success {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, env.Error)
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", ErrExists, env.Error)
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %s", ErrUnavailable, env.Error)
		default:
			return fmt.Errorf("remote %s %s: %s", method, path, env.Error)
		}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

func (c *Client) CreateFamily(ctx context.Context, code, name, createdBy string, balances model.Balances) (*model.Family, error) {
	req := struct {
		Code      string         `json:"familyCode"`
		Name      string         `json:"familyName"`
		CreatedBy string         `json:"createdBy"`
		Balances  model.Balances `json:"balances"`
	}{code, name, createdBy, balances}

	var f model.Family
	if err := c.do(ctx, http.MethodPost, "/api/families", req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) GetFamily(ctx context.Context, code string) (*model.Family, error) {
	var f model.Family
	if err := c.do(ctx, http.MethodGet, familyPath(code), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) JoinFamily(ctx context.Context, code, member string) (*model.Family, error) {
	var f model.Family
	if err := c.do(ctx, http.MethodPost, familyPath(code, "members"), map[string]string{"name": member}, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) UpdateBalances(ctx context.Context, code string, balances model.Balances) error {
	return c.do(ctx, http.MethodPut, familyPath(code, "balances"), map[string]any{"balances": balances}, nil)
}

func (c *Client) AddTransaction(ctx context.Context, code string, tx model.Transaction) (model.Transaction, error) {
	var out model.Transaction
	err := c.do(ctx, http.MethodPost, familyPath(code, "transactions"), map[string]any{"transaction": tx}, &out)
	return out, err
}

func (c *Client) RecordTransaction(ctx context.Context, code string, tx model.Transaction, balances model.Balances) (model.Transaction, error) {
	var out model.Transaction
	err := c.do(ctx, http.MethodPost, familyPath(code, "transactions"), map[string]any{"transaction": tx, "balances": balances}, &out)
	return out, err
}

func (c *Client) UpdateTransaction(ctx context.Context, code, id string, upd TransactionUpdate) error {
	return c.do(ctx, http.MethodPatch, familyPath(code, "transactions", id), upd, nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, code, id string) error {
	return c.do(ctx, http.MethodDelete, familyPath(code, "transactions", id), nil, nil)
}

func (c *Client) RemoveTransaction(ctx context.Context, code, id string, balances model.Balances) error {
	return c.do(ctx, http.MethodDelete, familyPath(code, "transactions", id), map[string]any{"balances": balances}, nil)
}

func (c *Client) ListTransactions(ctx context.Context, code string) ([]model.Transaction, error) {
	var txs []model.Transaction
	err := c.do(ctx, http.MethodGet, familyPath(code, "transactions"), nil, &txs)
	return txs, err
}

func (c *Client) AddGoal(ctx context.Context, code string, g model.Goal) (model.Goal, error) {
	var out model.Goal
	err := c.do(ctx, http.MethodPost, familyPath(code, "goals"), g, &out)
	return out, err
}

func (c *Client) UpdateGoal(ctx context.Context, code, id string, upd GoalUpdate) error {
	return c.do(ctx, http.MethodPatch, familyPath(code, "goals", id), upd, nil)
}

func (c *Client) DeleteGoal(ctx context.Context, code, id string) error {
	return c.do(ctx, http.MethodDelete, familyPath(code, "goals", id), nil, nil)
}

func (c *Client) ListGoals(ctx context.Context, code string) ([]model.Goal, error) {
	var goals []model.Goal
	err := c.do(ctx, http.MethodGet, familyPath(code, "goals"), nil, &goals)
	return goals, err
}

func (c *Client) SubscribeFamily(code string, fn func(Result[*model.Family])) (Subscription, error) {
	return subscribe(c, code, StreamFamily, fn)
}

func (c *Client) SubscribeTransactions(code string, fn func(Result[[]model.Transaction])) (Subscription, error) {
	return subscribe(c, code, StreamTransactions, fn)
}

func (c *Client) SubscribeGoals(code string, fn func(Result[[]model.Goal])) (Subscription, error) {
	return subscribe(c, code, StreamGoals, fn)
}

func (c *Client) streamURL(code string, stream Stream) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String() + "/ws" + strings.TrimPrefix(familyPath(code, string(stream)), "/api"), nil
}

// subscribe keeps a websocket open for the stream, redialing with backoff until
// the subscription is cancelled. A failure is reported to fn once per outage.
func subscribe[T any](c *Client, code string, stream Stream, fn func(Result[T])) (Subscription, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("subscribe: family code required")
	}
	target, err := c.streamURL(code, stream)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger := c.logger.With("stream", stream, "family", code)

	go func() {
		delay := c.retryDelay
		failing := false
		for {
			err := c.readStream(ctx, target, func(data []byte) {
				failing = false
				delay = c.retryDelay
				var res Result[T]
				if err := json.Unmarshal(data, &res); err != nil {
					res = Result[T]{Error: fmt.Sprintf("decode snapshot: %v", err)}
				}
				if ctx.Err() == nil {
					fn(res)
				}
			})
			if ctx.Err() != nil {
				return
			}
			if !failing {
				failing = true
				logger.Warn("subscription interrupted", "error", err)
				fn(Result[T]{Error: fmt.Sprintf("%v: %v", ErrUnavailable, err)})
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = min(delay*2, maxRetryDelay)
		}
	}()

	return NewSubscription(cancel), nil
}

func (c *Client) readStream(ctx context.Context, target string, onMessage func([]byte)) error {
	conn, _, err := ws.Dial(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				conn.Close(ws.StatusNormalClosure, "")
			}
			return err
		}
		onMessage(data)
	}
}
