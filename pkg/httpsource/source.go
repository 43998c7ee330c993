// Package httpsource provides a paged source backed by an HTTP endpoint that
// serves JSON arrays page by page.
package httpsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PagesHeader carries the total page count of an endpoint.
const PagesHeader = "X-Pages"

// Config holds the source configuration.
type Config struct {
	// URL of the paged endpoint. Existing query parameters are kept.
	URL string

	// Query parameter names for the page number and the page size.
	PageParam string
	SizeParam string

	// User-Agent header (required)
	UserAgent string

	// Timeout per request, ignored when HTTPClient is set
	Timeout time.Duration

	Retry RetryConfig

	// HTTPClient overrides the client built from Timeout
	HTTPClient *http.Client
}

// DefaultConfig returns a configuration for url with default parameters.
func DefaultConfig(url, userAgent string) Config {
	return Config{
		URL:       url,
		PageParam: "page",
		SizeParam: "page_size",
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Source fetches pages of T from an HTTP endpoint. It is safe for
// concurrent use.
type Source[T any] struct {
	base       *url.URL
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger

	// pages is the last X-Pages value seen, 0 while unknown.
	pages atomic.Int64
}

// New creates a new HTTP paged source.
func New[T any](cfg Config) (*Source[T], error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse url: %v", ErrInvalidConfig, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: url scheme must be http or https (got %q)", ErrInvalidConfig, base.Scheme)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("%w: user-agent is required", ErrInvalidConfig)
	}
	if cfg.PageParam == "" || cfg.SizeParam == "" || cfg.PageParam == cfg.SizeParam {
		return nil, fmt.Errorf("%w: page and size parameters must be distinct and non-empty", ErrInvalidConfig)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Source[T]{
		base:       base,
		httpClient: httpClient,
		config:     cfg,
		logger: log.With().
			Str("component", "http-source").
			Str("host", base.Host).
			Str("path", base.Path).
			Logger(),
	}, nil
}

// FetchPage requests one page. A 404 answers an empty page, as does any page
// beyond a page count announced in X-Pages, without issuing a request.
func (s *Source[T]) FetchPage(ctx context.Context, pageNumber, pageSize int) ([]T, error) {
	if pages := s.pages.Load(); pages > 0 && int64(pageNumber) > pages {
		httpSkippedTotal.Inc()
		s.logger.Debug().
			Int("page", pageNumber).
			Int64("pages", pages).
			Msg("Page beyond announced page count")
		return nil, nil
	}

	pageURL := s.pageURL(pageNumber, pageSize)

	var items []T
	var errClass ErrorClass
	err := retryWithBackoff(ctx, s.config.Retry, func() error {
		var reqErr error
		items, errClass, reqErr = s.fetchOnce(ctx, pageURL, pageNumber)
		return reqErr
	}, func(error) ErrorClass {
		return errClass
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// fetchOnce performs a single request and classifies its failure.
func (s *Source[T]) fetchOnce(ctx context.Context, pageURL string, pageNumber int) ([]T, ErrorClass, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", acceptEncoding)

	startTime := time.Now()
	resp, err := s.httpClient.Do(req)
	httpRequestDuration.Observe(time.Since(startTime).Seconds())
	if err != nil {
		httpRequestsTotal.WithLabelValues("network_error").Inc()
		if ctx.Err() != nil {
			// cancelled by the caller, another attempt cannot succeed
			return nil, "", err
		}
		s.logger.Error().Err(err).Int("page", pageNumber).Msg("HTTP request failed")
		return nil, ErrorClassNetwork, err
	}
	defer resp.Body.Close()

	httpRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		s.logger.Debug().Int("page", pageNumber).Msg("Page not found, treating as end")
		return nil, "", nil
	case resp.StatusCode >= 400:
		errClass := classifyStatus(resp.StatusCode)
		s.logger.Warn().
			Int("page", pageNumber).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Page request error")
		return nil, errClass, &HTTPError{
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	case resp.StatusCode == http.StatusNoContent:
		return nil, "", nil
	}

	s.rememberPages(resp.Header.Get(PagesHeader))

	body, release, err := decodedBody(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, ErrorClassDecode, &HTTPError{
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "decode body",
			Err:        err,
		}
	}
	defer release()

	var items []T
	if err := json.NewDecoder(body).Decode(&items); err != nil {
		if ctx.Err() != nil {
			return nil, "", err
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return nil, ErrorClassDecode, &HTTPError{
				URL:        pageURL,
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassDecode,
				Message:    "decode page",
				Err:        err,
			}
		}
		// truncated or interrupted body
		return nil, ErrorClassNetwork, fmt.Errorf("read page %d: %w", pageNumber, err)
	}

	s.logger.Debug().
		Int("page", pageNumber).
		Int("items", len(items)).
		Msg("Page fetched")

	return items, "", nil
}

func (s *Source[T]) rememberPages(header string) {
	if header == "" {
		return
	}
	pages, err := strconv.ParseInt(header, 10, 64)
	if err != nil || pages < 1 {
		s.logger.Debug().Str("value", header).Msg("Ignoring invalid page count header")
		return
	}
	s.pages.Store(pages)
}

func (s *Source[T]) pageURL(pageNumber, pageSize int) string {
	u := *s.base
	q := u.Query()
	q.Set(s.config.PageParam, strconv.Itoa(pageNumber))
	q.Set(s.config.SizeParam, strconv.Itoa(pageSize))
	u.RawQuery = q.Encode()
	return u.String()
}

// Pages returns the page count announced by the endpoint, 0 while unknown.
func (s *Source[T]) Pages() int {
	return int(s.pages.Load())
}

// Close releases idle connections.
func (s *Source[T]) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}
