package utils

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/102.0.5005.72 Safari/537.36"

type SessionConfig struct {
	UserAgent   string
	Timeout     time.Duration
	InsecureTLS bool
}

// API is a single HTTP session. Each API owns its own transport, so
// connections are never shared between two sessions.
type API struct {
	client    *http.Client
	transport *http.Transport
	baseURL   string
	userAgent string
}

func NewAPI(baseURL string, cfg SessionConfig) *API {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &API{
		client:    &http.Client{Transport: transport, Timeout: cfg.Timeout},
		transport: transport,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
	}
}

// Close drops the idle connections of this session.
func (a *API) Close() {
	a.transport.CloseIdleConnections()
}

func (a *API) resolve(path string, params url.Values) string {
	u := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		u = a.baseURL + path
	}
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// GetBytes fetches the body at path, failing with a TransportError on any
// status other than 200. Absolute URLs bypass the base URL.
func (a *API) GetBytes(ctx context.Context, path string, params url.Values) ([]byte, error) {
	target := a.resolve(path, params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{URL: target, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Results json.RawMessage `json:"results"`
}

// Get fetches a JSON envelope and decodes its results into v. A code other
// than 200 inside the envelope is an ApplicationError.
func (a *API) Get(ctx context.Context, path string, params url.Values, v any) error {
	body, err := a.GetBytes(ctx, path, params)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if env.Code != http.StatusOK {
		return &ApplicationError{URL: a.resolve(path, params), Code: env.Code, Message: env.Message}
	}
	if v == nil {
		return nil
	}
	return json.Unmarshal(env.Results, v)
}

func (a *API) GetDocument(ctx context.Context, path string, params url.Values) (*goquery.Document, error) {
	body, err := a.GetBytes(ctx, path, params)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}
