package netgear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"lte-sms-manager/internal/domain"
	"lte-sms-manager/internal/modem"
)

const (
	defaultTimeout = 10 * time.Second
	okRedirect     = "/success.json"
	errRedirect    = "/error.json"
)

var tokenPattern = regexp.MustCompile(`name="token"\s+value="([^"]*)"`)

// errRejected is returned when the modem redirects a form post to errRedirect.
var errRejected = errors.New("modem rejected the request")

// HTTPStatusError captures non-2xx responses from the modem web API.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("netgear: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client talks to the web API of a Netgear LTE modem (LM1200, LB1120, ...).
// It satisfies modem.Device.
type Client struct {
	baseURL    string
	password   string
	httpClient *http.Client

	mu       sync.Mutex
	token    string
	loggedIn bool
}

type Option func(*Client)

func WithPassword(password string) Option {
	return func(c *Client) {
		c.password = password
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 && c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a client for the modem at host, which may be a bare
// address or a full base URL.
func NewClient(host string, opts ...Option) (*Client, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("netgear: host must not be empty")
	}
	base := host
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("netgear: invalid host %q: %w", host, err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("netgear: create cookie jar: %w", err)
	}
	c := &Client{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout, Jar: jar},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListSMS returns the raw inbox records from /api/model.json.
func (c *Client) ListSMS(ctx context.Context) ([]domain.Record, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	raw, err := c.get(ctx, "/api/model.json?internalapi=1")
	if err != nil {
		return nil, fmt.Errorf("netgear: fetch model: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var model map[string]any
	if err := dec.Decode(&model); err != nil {
		return nil, fmt.Errorf("netgear: decode model: %w", err)
	}

	sms, ok := model["sms"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("netgear: model has no sms section: %w", modem.ErrCapabilityMissing)
	}
	rawMsgs, present := sms["msgs"]
	if !present {
		return nil, fmt.Errorf("netgear: model has no sms.msgs list: %w", modem.ErrCapabilityMissing)
	}
	msgs, _ := rawMsgs.([]any)

	records := make([]domain.Record, 0, len(msgs))
	for _, item := range msgs {
		records = append(records, toRecord(item))
	}
	return records, nil
}

// DeleteSMS removes one message from the modem inbox.
func (c *Client) DeleteSMS(ctx context.Context, id int) error {
	err := c.deleteOnce(ctx, id)
	if errors.Is(err, errRejected) {
		// The modem also rejects a stale token after a reboot or session
		// expiry, so start a fresh session and try once more.
		c.resetSession()
		err = c.deleteOnce(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("netgear: delete sms %d: %w", id, err)
	}
	return nil
}

func (c *Client) deleteOnce(ctx context.Context, id int) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	form := url.Values{
		"sms.deleteId": {strconv.Itoa(id)},
		"token":        {token},
		"ok_redirect":  {okRedirect},
		"err_redirect": {errRedirect},
	}
	return c.postForm(ctx, form)
}

func (c *Client) resetSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.loggedIn = false
}

// ensureSession scrapes the session token and, when a password is set,
// logs in. The session is reused until resetSession drops it.
func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" {
		page, err := c.get(ctx, "/index.html")
		if err != nil {
			return fmt.Errorf("netgear: load index: %w", err)
		}
		m := tokenPattern.FindSubmatch(page)
		if m == nil {
			return fmt.Errorf("netgear: no session token on index page: %w", modem.ErrCapabilityMissing)
		}
		c.token = string(m[1])
	}

	if c.password == "" || c.loggedIn {
		return nil
	}
	form := url.Values{
		"session.password": {c.password},
		"token":            {c.token},
		"ok_redirect":      {okRedirect},
		"err_redirect":     {errRedirect},
	}
	if err := c.postForm(ctx, form); err != nil {
		c.token = ""
		return fmt.Errorf("netgear: login: %w", err)
	}
	c.loggedIn = true
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	return readBody(res, c.baseURL+path)
}

// postForm submits to /Forms/config. The modem answers with a redirect to
// either okRedirect or errRedirect.
func (c *Client) postForm(ctx context.Context, form url.Values) error {
	target := c.baseURL + "/Forms/config"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	if _, err := readBody(res, target); err != nil {
		return err
	}
	if res.Request != nil && res.Request.URL.Path == errRedirect {
		return errRejected
	}
	return nil
}

func readBody(res *http.Response, target string) ([]byte, error) {
	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s not found: %w", target, modem.ErrCapabilityMissing)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        target,
			Body:       string(buf),
		}
	}
	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

// toRecord maps a model.json message to the field names of domain.Record.
// Fields are copied as-is; validation is left to domain.NewMessage.
func toRecord(item any) domain.Record {
	obj, ok := item.(map[string]any)
	if !ok {
		return nil
	}
	rec := domain.Record{}
	copyField(rec, "id", obj, "id")
	copyField(rec, "sender", obj, "sender")
	copyField(rec, "message", obj, "text")
	copyField(rec, "timestamp", obj, "receivedTime")
	return rec
}

func copyField(dst domain.Record, dstKey string, src map[string]any, srcKey string) {
	if v, ok := src[srcKey]; ok {
		dst[dstKey] = v
	}
}

var _ modem.Device = (*Client)(nil)
