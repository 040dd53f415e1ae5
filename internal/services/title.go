package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"hackergrows/internal/config"
	"hackergrows/internal/utils"

	"github.com/PuerkitoBio/goquery"
)

// TitleFetcher reads the <title> of a submitted page. Lookups are bounded
// by a short timeout and never fail the caller: any problem yields the
// fallback.
type TitleFetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	cache     *utils.TTLCache[string]
}

func NewTitleFetcher(cfg config.TitleConfig) (*TitleFetcher, error) {
	f := &TitleFetcher{
		client:    &http.Client{},
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
	}
	if cfg.CacheSize > 0 {
		cache, err := utils.NewTTLCache[string](cfg.CacheSize, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("title cache: %w", err)
		}
		f.cache = cache
	}
	return f, nil
}

// Title returns the page title of rawURL, or fallback when the page cannot
// be fetched, is not 200, or has no usable title.
func (f *TitleFetcher) Title(ctx context.Context, rawURL, fallback string) string {
	if f.cache != nil {
		if title, ok := f.cache.Get(rawURL); ok {
			titleFetches.WithLabelValues("cached").Inc()
			return title
		}
	}

	title, err := f.fetch(ctx, rawURL)
	if err != nil {
		titleFetches.WithLabelValues("failed").Inc()
		log.Printf("title lookup %s: %v", rawURL, err)
		return fallback
	}
	if title == "" {
		titleFetches.WithLabelValues("empty").Inc()
		return fallback
	}

	titleFetches.WithLabelValues("ok").Inc()
	if f.cache != nil {
		f.cache.Set(rawURL, title)
	}
	return title
}

func (f *TitleFetcher) fetch(ctx context.Context, rawURL string) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return utils.FirstTitle(doc), nil
}
