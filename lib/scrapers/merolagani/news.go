package merolagani

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"nepsemarket-backend/lib/browser"
	"nepsemarket-backend/lib/htmlutil"
)

const (
	newsListURL          = "https://merolagani.com/NewsList.aspx"
	newsListSelector     = "#ctl00_ContentPlaceHolder1_NewsList1_divNews"
	newsBodySelector     = "#ctl00_ContentPlaceHolder1_NewsDetail1_divNewsContent"
	newsDateSelector     = "span.news-date"
	newsImageMetaName    = "meta[property='og:image']"
	newsListItemSelector = "div.media"
)

// NewsItem is one listing entry before the detail pass.
type NewsItem struct {
	Title string
	URL   string
	Date  string
}

type NewsDriver struct {
	session browser.Session
	http    *resty.Client
}

// NewNewsDriver takes both a browser session (the news list is rendered
// client side) and an http client (article bodies are static pages).
func NewNewsDriver(session browser.Session, http *resty.Client) *NewsDriver {
	return &NewsDriver{session: session, http: http}
}

// Fetch runs the two-phase news scrape: the listing pass yields
// (title, url, coarse date) tuples newest-first; for every item not
// excluded by skip, the detail pass fetches the article body and a more
// precise timestamp. A false return from emit stops the scrape.
func (d *NewsDriver) Fetch(ctx context.Context, skip func(url string) bool, emit func(map[string]string) bool) error {
	ctx, span := tracer.Start(ctx, "NewsDriver.Fetch")
	defer span.End()

	err := d.session.Open(ctx, newsListURL)
	if err != nil {
		return err
	}
	d.session.DismissDialog(ctx)

	err = d.session.WaitVisible(ctx, newsListSelector)
	if err != nil {
		slog.WarnContext(ctx, "news list never appeared", "err", err)
		return nil
	}

	items, err := d.listItems(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to parse news list", "err", err)
		return nil
	}

	for _, item := range items {
		if item.URL == "" || item.Title == "" {
			continue
		}
		if skip(item.URL) {
			slog.DebugContext(ctx, "news item already stored", "url", item.URL)
			continue
		}

		rec := map[string]string{
			"URL":   item.URL,
			"Title": item.Title,
			"Date":  item.Date,
		}
		d.fetchDetail(ctx, item.URL, rec)

		if !emit(rec) {
			return nil
		}
	}
	return nil
}

func (d *NewsDriver) listItems(ctx context.Context) ([]NewsItem, error) {
	html, err := d.session.OuterHTML(ctx, newsListSelector)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var items []NewsItem
	doc.Find(newsListItemSelector).Each(func(_ int, media *goquery.Selection) {
		anchors := htmlutil.GetAnchors(ctx, media.Find("a.media-title"))
		if len(anchors) == 0 {
			return
		}
		items = append(items, NewsItem{
			Title: anchors[0].Name,
			URL:   absoluteURL(anchors[0].Href),
			Date:  htmlutil.CleanText(media.Find("div.media-label").Text()),
		})
	})
	return items, nil
}

// fetchDetail back-fills body, image and a precise timestamp into rec.
// Any failure leaves the listing stub as is; the item is still stored.
func (d *NewsDriver) fetchDetail(ctx context.Context, url string, rec map[string]string) {
	res, err := d.http.R().SetContext(ctx).Get(url)
	if err != nil || res.IsError() {
		slog.WarnContext(ctx, "failed to fetch news detail", "url", url, "err", err)
		return
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		slog.WarnContext(ctx, "failed to parse news detail", "url", url, "err", err)
		return
	}

	paragraphs := htmlutil.GetParagraphs(doc.Find(newsBodySelector))
	if len(paragraphs) > 0 {
		rec["Body"] = strings.Join(paragraphs, "\n\n")
	}
	if img, ok := doc.Find(newsImageMetaName).Attr("content"); ok {
		rec["Image"] = img
	}
	if date := htmlutil.CleanText(doc.Find(newsDateSelector).First().Text()); date != "" {
		rec["Date"] = date
	}
}

func absoluteURL(href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return "https://merolagani.com/" + strings.TrimPrefix(href, "/")
}
