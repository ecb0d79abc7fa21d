package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/vanderheijden86/kgview/pkg/model"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultRateLimit caps requests per second to the data API.
	DefaultRateLimit = 5.0
)

// ErrUnauthorized is returned when the API rejects the credentials.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response from the data API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: HTTP %d: %s", e.StatusCode, e.Message)
}

// HTTP is a rate-limited client for the kgview data API.
type HTTP struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	loads      singleflight.Group
}

// HTTPOption configures an HTTP source.
type HTTPOption func(*HTTP)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) HTTPOption {
	return func(h *HTTP) { h.token = token }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(h *HTTP) { h.httpClient = hc }
}

// WithRateLimit sets the request rate in requests per second.
func WithRateLimit(perSecond float64) HTTPOption {
	return func(h *HTTP) { h.limiter = rate.NewLimiter(rate.Limit(perSecond), 1) }
}

// NewHTTP creates a client for the API rooted at baseURL.
func NewHTTP(baseURL string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTP) Describe() string { return "api " + h.baseURL }

// Load fetches the graph. Concurrent calls share one request, which runs
// detached from any single caller's cancellation and is bounded by the
// client timeout. Each caller still returns as soon as its own ctx is done.
func (h *HTTP) Load(ctx context.Context) (model.Dataset, error) {
	shared := context.WithoutCancel(ctx)
	ch := h.loads.DoChan("graph", func() (any, error) {
		var ds model.Dataset
		err := h.do(shared, http.MethodGet, "/api/graph", nil, &ds)
		return ds, err
	})
	select {
	case <-ctx.Done():
		return model.Dataset{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.Dataset{}, res.Err
		}
		return res.Val.(model.Dataset).Clone(), nil
	}
}

func (h *HTTP) UpdateEntity(ctx context.Context, id string, patch model.EntityPatch) (model.Entity, error) {
	var out model.Entity
	err := h.do(ctx, http.MethodPatch, "/api/entities/"+url.PathEscape(id), patch, &out)
	return out, err
}

func (h *HTTP) DeleteEntity(ctx context.Context, id string) error {
	return h.do(ctx, http.MethodDelete, "/api/entities/"+url.PathEscape(id), nil, nil)
}

func (h *HTTP) DeleteEntities(ctx context.Context, ids []string) (int, error) {
	var out struct {
		Deleted int `json:"deleted"`
	}
	req := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}
	err := h.do(ctx, http.MethodPost, "/api/entities/delete", req, &out)
	return out.Deleted, err
}

func (h *HTTP) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	return req, nil
}

// do sends one request and decodes a JSON response into out when non-nil.
func (h *HTTP) do(ctx context.Context, method, path string, body, out any) error {
	if err := h.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	req, err := h.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// checkHTTPErrors maps error statuses onto the package's sentinel errors.
func checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	_ = json.Unmarshal(data, &body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", resp.Request.URL.Path, ErrNotFound)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
}

// Subscribe opens the server's change stream. A value is sent on the
// returned channel for every "changed" event; the channel is closed when ctx
// ends or the stream breaks.
func (h *HTTP) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	req, err := h.newRequest(ctx, http.MethodGet, "/api/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream is long-lived; the client timeout would cut it.
	hc := *h.httpClient
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opening event stream: %w", err)
	}
	if err := checkHTTPErrors(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		event := ""
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case line == "":
				if event == "changed" {
					select {
					case ch <- struct{}{}:
					default: // a reload is already pending
					}
				}
				event = ""
			}
		}
	}()
	return ch, nil
}
