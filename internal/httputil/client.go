// Package httputil provides a security-hardened HTTP client and input sanitization utilities.
package httputil

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strings"
	"time"
)

const (
	userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/121.0"

	// maxBodySize caps every response body read through this package.
	maxBodySize = 10 * 1024 * 1024
)

// StatusError is returned when a response carries a status code the
// caller did not accept. Body holds the (truncated) response payload so
// callers can surface service error messages.
type StatusError struct {
	Code int
	URL  string
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// NewClient creates a hardened HTTP client with secure defaults and a
// cookie jar. A zero timeout selects 30 seconds.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Timeout: timeout,
		Jar:     jar,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			DisableCompression:  false,
			MaxIdleConnsPerHost: 5,
		},
	}
}

// Request describes a single outbound call.
type Request struct {
	URL    string
	Query  url.Values
	Header http.Header
	Form   url.Values // non-nil switches the request to a form POST

	// Accept lists non-2xx status codes whose body is still returned
	// to the caller (the service answers 403 with a JSON error body).
	Accept []int
}

// Do performs the request and returns the response body.
func Do(ctx context.Context, client *http.Client, r Request) ([]byte, error) {
	if err := ValidateURL(r.URL); err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	target := r.URL
	if len(r.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + r.Query.Encode()
	}

	method := http.MethodGet
	var body io.Reader
	if r.Form != nil {
		method = http.MethodPost
		body = strings.NewReader(r.Form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if r.Form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode/100 != 2 && !slices.Contains(r.Accept, resp.StatusCode) {
		return nil, &StatusError{Code: resp.StatusCode, URL: r.URL, Body: data}
	}

	return data, nil
}

// Get performs a GET request and returns the raw body.
func Get(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	return Do(ctx, client, Request{URL: rawURL})
}

// GetPage performs a GET request and returns the body as a string.
func GetPage(ctx context.Context, client *http.Client, rawURL string) (string, error) {
	data, err := Do(ctx, client, Request{URL: rawURL})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Cookie returns the value of the named cookie the client's jar holds
// for rawURL, or "" when there is none.
func Cookie(client *http.Client, rawURL, name string) string {
	if client.Jar == nil {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
