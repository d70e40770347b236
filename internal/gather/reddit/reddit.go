// Package reddit gathers YOLO posts from a subreddit search. Image posts are
// run through OCR; every other post contributes its title.
package reddit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"yolotrader/internal/domain"
	"yolotrader/internal/gather"
	"yolotrader/internal/ocr"
)

var _ gather.Gatherer = (*Gatherer)(nil)

// imageSuffixes marks submissions whose URL is a screenshot.
var imageSuffixes = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}

// Config controls the search and credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string

	Subreddit  string // default "wallstreetbets"
	Query      string // default `flair:"YOLO"`
	Sort       string // default "new"
	TimeFilter string // default "month"
	Limit      int    // max submissions; default 1000
	PageSize   int    // listing page size, max 100

	RequestsPerMinute int   // API pacing; default 60
	Workers           int   // concurrent image downloads; default 4
	MaxImageBytes     int64 // default 10 MiB

	AuthURL   string
	OAuthURL  string
	PublicURL string
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = "yolotrader/1.0"
	}
	if c.Subreddit == "" {
		c.Subreddit = "wallstreetbets"
	}
	if c.Query == "" {
		c.Query = `flair:"YOLO"`
	}
	if c.Sort == "" {
		c.Sort = "new"
	}
	if c.TimeFilter == "" {
		c.TimeFilter = "month"
	}
	if c.Limit <= 0 {
		c.Limit = 1000
	}
	if c.PageSize <= 0 || c.PageSize > 100 {
		c.PageSize = 100
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 60
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = 10 << 20
	}
	if c.AuthURL == "" {
		c.AuthURL = defaultAuthURL
	}
	if c.OAuthURL == "" {
		c.OAuthURL = defaultOAuthURL
	}
	if c.PublicURL == "" {
		c.PublicURL = defaultPublicURL
	}
	return c
}

// Gatherer searches a subreddit and turns each submission into a RawItem.
type Gatherer struct {
	cfg     Config
	client  *client
	ocr     ocr.Reader
	limiter *rate.Limiter
	log     *slog.Logger
}

// New creates a Gatherer. hc may be nil for a default client.
func New(cfg Config, reader ocr.Reader, hc *http.Client) *Gatherer {
	cfg = cfg.withDefaults()
	return &Gatherer{
		cfg:     cfg,
		client:  newClient(cfg, hc),
		ocr:     reader,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1),
		log:     slog.Default().With("gatherer", "reddit", "subreddit", cfg.Subreddit),
	}
}

// Name returns the gatherer identifier.
func (g *Gatherer) Name() string { return "reddit" }

// Gather pages through the search listing and converts the submissions.
// Search failures abort; per-submission failures are logged and skipped.
func (g *Gatherer) Gather(ctx context.Context) ([]domain.RawItem, error) {
	subs, err := g.collect(ctx)
	if err != nil {
		return nil, err
	}
	g.log.Info("search complete", "submissions", len(subs), "authenticated", g.client.authenticated())

	slots := make([]*domain.RawItem, len(subs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Workers)
	for i, s := range subs {
		eg.Go(func() error {
			item, ok := g.convert(ctx, s)
			if ok {
				slots[i] = &item
			}
			return ctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	items := make([]domain.RawItem, 0, len(subs))
	for _, it := range slots {
		if it != nil {
			items = append(items, *it)
		}
	}
	return items, nil
}

// collect follows the listing's after cursor until the limit is reached or
// the listing runs out.
func (g *Gatherer) collect(ctx context.Context) ([]submission, error) {
	var (
		subs  []submission
		after string
		page  int
	)
	for len(subs) < g.cfg.Limit {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		n := min(g.cfg.PageSize, g.cfg.Limit-len(subs))
		l, err := g.client.search(ctx, after, n)
		if err != nil {
			return nil, fmt.Errorf("searching r/%s page %d: %w", g.cfg.Subreddit, page, err)
		}
		page++
		for _, ch := range l.Data.Children {
			if ch.Kind != "" && ch.Kind != "t3" {
				continue
			}
			subs = append(subs, ch.Data)
			if len(subs) == g.cfg.Limit {
				break
			}
		}
		g.log.Debug("fetched page", "page", page, "children", len(l.Data.Children), "after", l.Data.After)
		if l.Data.After == "" || len(l.Data.Children) == 0 {
			break
		}
		after = l.Data.After
	}
	return subs, nil
}

// convert turns a submission into a RawItem. Image posts are downloaded and
// OCR'd; a failure there drops the submission.
func (g *Gatherer) convert(ctx context.Context, s submission) (domain.RawItem, bool) {
	if !isImageURL(s.URL) {
		return domain.RawItem{Text: s.Title, CapturedAt: s.createdAt(), IsTitle: true}, true
	}
	if g.ocr == nil {
		g.log.Warn("no OCR reader configured, skipping image", "id", s.ID, "url", s.URL)
		return domain.RawItem{}, false
	}

	img, err := g.client.download(ctx, s.URL, g.cfg.MaxImageBytes)
	if err != nil {
		g.log.Warn("image download failed", "id", s.ID, "url", s.URL, "error", err)
		return domain.RawItem{}, false
	}
	text, err := g.ocr.Text(ctx, img)
	if err != nil {
		g.log.Warn("ocr failed", "id", s.ID, "url", s.URL, "error", err)
		return domain.RawItem{}, false
	}
	return domain.RawItem{Text: text, CapturedAt: s.createdAt(), IsTitle: false}, true
}

// isImageURL reports whether the URL path ends in a known image suffix.
func isImageURL(raw string) bool {
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.ToLower(path)
	for _, suf := range imageSuffixes {
		if strings.HasSuffix(path, suf) {
			return true
		}
	}
	return false
}
