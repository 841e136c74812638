package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/gocolly/colly/v2"
)

// Extractor turns one rule into records.
type Extractor interface {
	Extract(ctx context.Context, rule Rule) ([]Record, error)
}

const (
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	requestTimeout = 30 * time.Second
	requestDelay   = 2 * time.Second
	renderTimeout  = 60 * time.Second
)

// ─── Static pages (colly) ───────────────────────────────────────────────────

// StaticExtractor fetches plain HTML pages with colly.
type StaticExtractor struct{}

func (StaticExtractor) Extract(ctx context.Context, rule Rule) ([]Record, error) {
	c := colly.NewCollector(colly.UserAgent(userAgent))
	c.SetRequestTimeout(requestTimeout)
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: requestDelay}); err != nil {
		return nil, fmt.Errorf("colly limit: %w", err)
	}

	var (
		out     []Record
		lastErr error
	)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
		slog.Debug("ingest fetch", "rule", rule.Name, "url", r.URL.String())
	})
	c.OnError(func(r *colly.Response, err error) {
		slog.Warn("ingest fetch failed", "rule", rule.Name, "url", r.Request.URL.String(), "status", r.StatusCode, "err", err)
		lastErr = err
	})
	c.OnHTML("html", func(e *colly.HTMLElement) {
		out = append(out, RecordsFromSelection(e.DOM, rule, e.Request.AbsoluteURL)...)
	})

	for _, u := range rule.URLs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if err := c.Visit(u); err != nil {
			slog.Warn("ingest visit failed", "rule", rule.Name, "url", u, "err", err)
			lastErr = err
		}
	}
	c.Wait()

	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.Name, lastErr)
	}
	return out, nil
}

// ─── Rendered pages (chromedp) ──────────────────────────────────────────────

// RenderedExtractor loads pages in headless Chrome before parsing them, for
// sources that build their listings client-side.
type RenderedExtractor struct{}

func (RenderedExtractor) Extract(ctx context.Context, rule Rule) ([]Record, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if p := os.Getenv("CHROME_PATH"); p != "" {
		opts = append(opts, chromedp.ExecPath(p))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var (
		out     []Record
		lastErr error
	)
	for _, u := range rule.URLs {
		html, err := render(browserCtx, u, rule.Item)
		if err != nil {
			slog.Warn("ingest render failed", "rule", rule.Name, "url", u, "err", err)
			lastErr = err
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			continue
		}
		recs, err := ParseHTML(html, rule, u)
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, recs...)
	}

	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.Name, lastErr)
	}
	return out, nil
}

func render(ctx context.Context, pageURL, waitFor string) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(tctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady(waitFor, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

// ─── Routing ────────────────────────────────────────────────────────────────

// Router sends rules that need rendering to Rendered and the rest to Static.
type Router struct {
	Static   Extractor
	Rendered Extractor
}

// NewRouter returns the production extractor.
func NewRouter() *Router {
	return &Router{Static: StaticExtractor{}, Rendered: RenderedExtractor{}}
}

func (r *Router) Extract(ctx context.Context, rule Rule) ([]Record, error) {
	if rule.Render {
		return r.Rendered.Extract(ctx, rule)
	}
	return r.Static.Extract(ctx, rule)
}

// ─── Parsing (goquery) ──────────────────────────────────────────────────────

// ParseHTML applies rule to a full HTML document fetched from pageURL.
func ParseHTML(html string, rule Rule, pageURL string) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, _ := url.Parse(pageURL)
	resolve := func(href string) string {
		if base == nil {
			return href
		}
		ref, err := url.Parse(href)
		if err != nil {
			return href
		}
		return base.ResolveReference(ref).String()
	}
	return RecordsFromSelection(doc.Selection, rule, resolve), nil
}

// RecordsFromSelection extracts one record per rule.Item match under root.
// Items without a title are dropped.
func RecordsFromSelection(root *goquery.Selection, rule Rule, resolve func(string) string) []Record {
	var out []Record
	root.Find(rule.Item).Each(func(_ int, item *goquery.Selection) {
		if rec, ok := recordFromSelection(item, rule, resolve); ok {
			out = append(out, rec)
		}
	})
	return out
}

func recordFromSelection(item *goquery.Selection, rule Rule, resolve func(string) string) (Record, bool) {
	f := rule.Fields
	rec := Record{
		Source:      rule.Name,
		Kind:        rule.Kind,
		Title:       strings.TrimPrefix(text(item, f.Title), "Title:"),
		Company:     text(item, f.Company),
		Location:    text(item, f.Location),
		Department:  text(item, f.Department),
		SalaryText:  text(item, f.Salary),
		Description: text(item, f.Description),
		Authors:     texts(item, f.Authors),
		Published:   normalizeDate(text(item, f.Date)),
		Tags:        texts(item, f.Tags),
	}
	rec.Title = strings.TrimSpace(rec.Title)
	if rec.Company == "" {
		rec.Company = rule.Company
	}
	if f.Link != "" {
		if href, ok := item.Find(f.Link).First().Attr("href"); ok && href != "" {
			rec.URL = resolve(strings.TrimSpace(href))
		}
	}
	if rec.Title == "" {
		return Record{}, false
	}
	if rule.Kind == KindJob && rec.Company == "" {
		return Record{}, false
	}
	return rec, true
}

var spaces = regexp.MustCompile(`\s+`)

func text(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(spaces.ReplaceAllString(item.Find(selector).First().Text(), " "))
}

func texts(item *goquery.Selection, selector string) []string {
	if selector == "" {
		return nil
	}
	var out []string
	item.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(spaces.ReplaceAllString(s.Text(), " ")); t != "" {
			out = append(out, t)
		}
	})
	return out
}

var dateLayouts = []string{"2006-01-02", "2 January 2006", "January 2, 2006", "Jan 2, 2006", "2 Jan 2006", "2006/01/02", "January 2006", "2006"}

// normalizeDate returns s as YYYY-MM-DD, or "" when no layout matches.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
