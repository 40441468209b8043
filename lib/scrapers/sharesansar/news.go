package sharesansar

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"nepsemarket-backend/lib/browser"
	"nepsemarket-backend/lib/htmlutil"
)

const (
	newsListURL      = "https://www.sharesansar.com/category/latest"
	newsListSelector = "div.featured-news-list"

	newsBodySelector  = "#newsdetail-content"
	newsTitleSelector = "h1.detail-title"
	newsDateSelector  = "span.text-org"
	newsImageSelector = "meta[property='og:image']"

	// Interstitial ads cover the article on first load. Both close
	// affordances seen in the wild, tried best effort.
	adCloseSelector = "a#dismiss-button, div.ad-close, span.close-ads"
)

type NewsDriver struct {
	session browser.Session
}

func NewNewsDriver(session browser.Session) *NewsDriver {
	return &NewsDriver{session: session}
}

// Fetch lists articles newest-first, then navigates to each one not
// excluded by skip and scrapes its body in place. Articles here sit
// behind interstitial ads, so the detail phase stays in the browser
// rather than going through a plain http client.
func (d *NewsDriver) Fetch(ctx context.Context, skip func(url string) bool, emit func(rec map[string]string) bool) error {
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

type newsItem struct {
	Title string
	URL   string
	Date  string
}

func (d *NewsDriver) listItems(ctx context.Context) ([]newsItem, error) {
	html, err := d.session.OuterHTML(ctx, newsListSelector)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var items []newsItem
	doc.Find("div.featured-news-item").Each(func(_ int, item *goquery.Selection) {
		link := item.Find("div.featured-news-title a").First()
		href, _ := link.Attr("href")
		items = append(items, newsItem{
			Title: htmlutil.CleanText(link.Text()),
			URL:   href,
			Date:  htmlutil.CleanText(item.Find("div.featured-news-date").Text()),
		})
	})
	return items, nil
}

// fetchDetail navigates to the article, closes whatever interstitial is
// covering it and back-fills rec. Failures leave the listing stub as is.
func (d *NewsDriver) fetchDetail(ctx context.Context, url string, rec map[string]string) {
	err := d.session.Open(ctx, url)
	if err != nil {
		slog.WarnContext(ctx, "failed to open news detail", "url", url, "err", err)
		return
	}
	d.session.DismissDialog(ctx)
	d.closeInterstitial(ctx)

	err = d.session.WaitVisible(ctx, newsBodySelector)
	if err != nil {
		slog.WarnContext(ctx, "news body never appeared", "url", url, "err", err)
		return
	}
	html, err := d.session.OuterHTML(ctx, "html")
	if err != nil {
		slog.WarnContext(ctx, "failed to read news detail", "url", url, "err", err)
		return
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		slog.WarnContext(ctx, "failed to parse news detail", "url", url, "err", err)
		return
	}

	paragraphs := htmlutil.GetParagraphs(doc.Find(newsBodySelector))
	if len(paragraphs) > 0 {
		rec["Body"] = strings.Join(paragraphs, "\n\n")
	}
	if img, ok := doc.Find(newsImageSelector).Attr("content"); ok {
		rec["Image"] = img
	}
	if date := htmlutil.CleanText(doc.Find(newsDateSelector).First().Text()); date != "" {
		rec["Date"] = date
	}
}

func (d *NewsDriver) closeInterstitial(ctx context.Context) {
	err := d.session.Click(ctx, adCloseSelector)
	if err != nil && !browser.IsTimeout(err) {
		slog.DebugContext(ctx, "interstitial close failed", "err", err)
	}
}
