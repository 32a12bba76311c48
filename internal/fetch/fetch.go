// Package fetch issues a batch of HTTP requests concurrently and returns one
// result per URL, in input order, without letting one failure abort the batch.
package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/apex/log"
	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/sync/errgroup"
)

// ErrUnsupportedMethod is returned before any request is sent.
var ErrUnsupportedMethod = errors.New("unsupported method")

const defaultTimeout = 30 * time.Second

// Options are shared by every request in a batch.
type Options struct {
	Headers http.Header
	Query   url.Values
	// Body is sent with every POST. Ignored when JSON is set.
	Body []byte
	// JSON is encoded once and sent with every POST.
	JSON               any
	InsecureSkipVerify bool
}

// request is one prepared request in a batch.
type request struct {
	Method  string
	URL     string
	Options Options
}

// Fetcher runs batches. It holds no connections between batches.
type Fetcher struct {
	logger      log.Interface
	timeout     time.Duration
	concurrency int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithConcurrency bounds in-flight requests. Zero means unbounded.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) { f.concurrency = n }
}

func New(logger log.Interface, opts ...Option) *Fetcher {
	f := &Fetcher{
		logger:  logger,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll sends method to every URL and returns len(urls) results in order.
// The only error is validation, raised before any request is issued.
func (f *Fetcher) FetchAll(ctx context.Context, method string, urls []string, opts Options) ([]Result, error) {
	switch method {
	case http.MethodGet, http.MethodPost:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}

	var body []byte
	if method == http.MethodPost {
		body = opts.Body
		if opts.JSON != nil {
			encoded, err := json.Marshal(opts.JSON)
			if err != nil {
				return nil, fmt.Errorf("encoding JSON body: %w", err)
			}
			body = encoded
		}
	}

	results := make([]Result, len(urls))
	if len(urls) == 0 {
		return results, nil
	}

	client, closeIdle := f.session(opts.InsecureSkipVerify)
	defer closeIdle()

	var g errgroup.Group
	if f.concurrency > 0 {
		g.SetLimit(f.concurrency)
	}
	for i, u := range urls {
		req := request{Method: method, URL: u, Options: opts}
		g.Go(func() error {
			results[i] = f.do(ctx, client, req, body)
			f.logger.WithFields(log.Fields{
				"url":    u,
				"kind":   results[i].Kind,
				"status": results[i].StatusCode,
			}).Debug("fetched")
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// session builds the pooled client shared by one batch and a func that
// releases its connections.
func (f *Fetcher) session(insecure bool) (*http.Client, func()) {
	transport := cleanhttp.DefaultPooledTransport()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // caller opt-in
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   f.timeout,
	}
	return client, transport.CloseIdleConnections
}

func (f *Fetcher) do(ctx context.Context, client *http.Client, r request, body []byte) Result {
	target, err := withQuery(r.URL, r.Options.Query)
	if err != nil {
		return transportError(r.URL, err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, target, reader)
	if err != nil {
		return transportError(r.URL, err)
	}
	for k, vs := range r.Options.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.Options.JSON != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return transportError(r.URL, err)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return Result{
			URL:        r.URL,
			Kind:       KindHTTPError,
			StatusCode: resp.StatusCode,
			Body:       string(data),
			Err:        readErr,
		}
	}
	if readErr != nil {
		return transportError(r.URL, fmt.Errorf("reading body: %w", readErr))
	}
	return Result{
		URL:        r.URL,
		Kind:       KindSuccess,
		StatusCode: resp.StatusCode,
		Body:       string(data),
	}
}

func withQuery(raw string, query url.Values) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid URL %q", raw)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
