package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tasnim.dev/aws-sweep/internal/fetch"
	"tasnim.dev/aws-sweep/internal/report"
)

type fetchFlags struct {
	method      string
	headers     []string
	query       []string
	data        string
	file        string
	concurrency int
	timeout     time.Duration
	insecure    bool
	failOnError bool
}

func newFetchCmd(opts *rootOptions) *cobra.Command {
	var f fetchFlags

	cmd := &cobra.Command{
		Use:   "fetch [url...]",
		Short: "Fetch many URLs concurrently and report each result",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls, err := collectURLs(args, f.file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			reqOpts, err := f.requestOptions()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("insecure") {
				reqOpts.InsecureSkipVerify = opts.cfg.Fetch.InsecureSkipVerify
			}

			timeout := f.timeout
			if !cmd.Flags().Changed("timeout") {
				timeout = opts.cfg.FetchTimeout()
			}
			concurrency := f.concurrency
			if !cmd.Flags().Changed("concurrency") && opts.cfg.Fetch.Concurrency > 0 {
				concurrency = opts.cfg.Fetch.Concurrency
			}

			fetcher := fetch.New(opts.logger,
				fetch.WithTimeout(timeout),
				fetch.WithConcurrency(concurrency),
			)
			results, err := fetcher.FetchAll(cmd.Context(), f.method, urls, reqOpts)
			if err != nil {
				return err
			}
			if err := report.FetchResults(cmd.OutOrStdout(), results); err != nil {
				return err
			}

			if f.failOnError {
				for _, r := range results {
					if !r.OK() {
						return fmt.Errorf("%s: %s", r.URL, r.Kind)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.method, "method", "X", http.MethodGet, "HTTP method (GET or POST)")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "request header as 'Name: value' (repeatable)")
	cmd.Flags().StringArrayVarP(&f.query, "query", "q", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "JSON request body")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "read URLs from file, one per line ('-' for stdin)")
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "c", 0, "maximum requests in flight (0 means unlimited)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "per-request timeout")
	cmd.Flags().BoolVarP(&f.insecure, "insecure", "k", false, "skip TLS certificate verification")
	cmd.Flags().BoolVar(&f.failOnError, "fail", false, "exit non-zero if any request did not return 200")

	return cmd
}

func (f *fetchFlags) requestOptions() (fetch.Options, error) {
	headers, err := parseHeaders(f.headers)
	if err != nil {
		return fetch.Options{}, err
	}
	query, err := parseQuery(f.query)
	if err != nil {
		return fetch.Options{}, err
	}
	opts := fetch.Options{
		Headers:            headers,
		Query:              query,
		InsecureSkipVerify: f.insecure,
	}
	if f.data != "" {
		var payload any
		if err := json.Unmarshal([]byte(f.data), &payload); err != nil {
			return fetch.Options{}, fmt.Errorf("--data is not valid JSON: %w", err)
		}
		opts.JSON = payload
	}
	return opts, nil
}

func parseHeaders(raw []string) (http.Header, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(http.Header, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Name: value'", h)
		}
		headers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return headers, nil
}

func parseQuery(raw []string) (url.Values, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	query := make(url.Values, len(raw))
	for _, q := range raw {
		key, value, ok := strings.Cut(q, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid query parameter %q, want key=value", q)
		}
		query.Add(key, value)
	}
	return query, nil
}

// collectURLs merges positional URLs with those read from file. Blank lines
// and lines starting with '#' are ignored.
func collectURLs(args []string, file string, stdin io.Reader) ([]string, error) {
	urls := append([]string(nil), args...)
	if file == "" {
		return urls, nil
	}

	var r io.Reader = stdin
	if file != "-" {
		fh, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("opening URL list: %w", err)
		}
		defer fh.Close()
		r = fh
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading URL list: %w", err)
	}
	return urls, nil
}
