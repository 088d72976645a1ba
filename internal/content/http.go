package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"pkt.systems/pslog"
	"pkt.systems/qult/schema"
)

const maxFragmentBytes = 1 << 20

// HTTPConfig configures an HTTP source.
type HTTPConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Sanitize bool
	Client   *http.Client
	Now      func() time.Time
}

// HTTPSource fetches fragments from {base}/{id}.html.
type HTTPSource struct {
	base   *url.URL
	client *http.Client
	policy *bluemonday.Policy
	now    func() time.Time
}

// NewHTTP validates cfg and returns an HTTP source.
func NewHTTP(cfg HTTPConfig) (*HTTPSource, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("content.base_url is required for the http source")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("content.base_url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("content.base_url must be http or https, got %q", base.Scheme)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	src := &HTTPSource{base: base, client: client, now: cfg.Now}
	if src.now == nil {
		src.now = time.Now
	}
	if cfg.Sanitize {
		src.policy = fragmentPolicy()
	}
	return src, nil
}

// Fetch implements core.ContentSource. A 404 maps to schema.ErrNotFound, any other
// non-2xx status to schema.ErrFetch.
func (s *HTTPSource) Fetch(ctx context.Context, id string) (string, error) {
	if !ValidID(id) {
		return "", fmt.Errorf("fragment %q: %w", id, schema.ErrNotFound)
	}
	target := s.base.JoinPath(FileName(id))
	query := target.Query()
	query.Set("t", strconv.FormatInt(s.now().UnixMilli(), 10))
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrFetch, err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "text/html")

	log := pslog.Ctx(ctx).With("fragment", id)
	resp, err := s.client.Do(req)
	if err != nil {
		log.Warn("content fetch failed", "error", err)
		return "", fmt.Errorf("%w: %v", schema.ErrFetch, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("fragment %q: %w", id, schema.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		log.Warn("content fetch failed", "status", resp.StatusCode)
		return "", fmt.Errorf("%w: fragment %q: status %d", schema.ErrFetch, id, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFragmentBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read fragment %q: %v", schema.ErrFetch, id, err)
	}
	if len(data) > maxFragmentBytes {
		log.Warn("content fetch failed", "reason", "fragment too large", "limit", maxFragmentBytes)
		return "", fmt.Errorf("%w: fragment %q exceeds %d bytes", schema.ErrFetch, id, maxFragmentBytes)
	}
	body := string(data)
	if s.policy != nil {
		body = s.policy.Sanitize(body)
	}
	log.Debug("content fetched", "bytes", len(body))
	return body, nil
}

// fragmentPolicy allows user-generated-content markup plus the class attributes
// the shell styles rely on.
func fragmentPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Globally()
	policy.AllowElements("figure", "figcaption", "kbd", "hr")
	policy.AllowAttrs("loading").OnElements("img")
	return policy
}
