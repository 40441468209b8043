// Package tms drives a broker's TMS (trading management system)
// terminal. Login requires a captcha the caller must solve out of band,
// so the client exposes an explicit state machine instead of a single
// login call: Anonymous, CaptchaPending after OpenLogin, Authenticated
// or LoginFailed after SubmitLogin.
package tms

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"nepsemarket-backend/lib/browser"
)

var tracer = otel.Tracer("nepsemarket.lib.scrapers.tms")

const (
	loginURL = "https://tms%d.nepsetms.com.np/login"

	usernameSelector     = "input[placeholder='Client Code/ User Name']"
	passwordSelector     = "input[placeholder='Password']"
	captchaInputSelector = "#captchaEnter"
	captchaImageSelector = "img.captcha-image"
	captchaReloadSel     = "i.fa-refresh"
	loginSubmitSelector  = "input[type='submit']"

	// Every authenticated page URL carries this fragment.
	dashboardMarker = "dashboard"

	errorScreenshotPath = "scrape_error.png"
)

type State int

const (
	Anonymous State = iota
	CaptchaPending
	Authenticated
	LoginFailed
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case CaptchaPending:
		return "captcha_pending"
	case Authenticated:
		return "authenticated"
	case LoginFailed:
		return "login_failed"
	}
	return "unknown"
}

// OrderSide is the direction of a trade.
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// OrderOutcome classifies the toast the terminal shows after an order
// submission. Unknown means the toast never appeared or said something
// we do not recognize; the order may or may not have gone through.
type OrderOutcome int

const (
	OrderOutcomeUnknown OrderOutcome = iota
	OrderAccepted
	OrderInvalidQuantity
	OrderPriceOutOfRange
)

func (o OrderOutcome) String() string {
	switch o {
	case OrderAccepted:
		return "accepted"
	case OrderInvalidQuantity:
		return "invalid_quantity"
	case OrderPriceOutOfRange:
		return "price_out_of_range"
	}
	return "unknown"
}

// DashboardStats is the summary block on the landing page.
type DashboardStats struct {
	Exchange    string
	MarketState string
	Index       string
}

// Collateral is the user's fund position.
type Collateral struct {
	Total    string
	Utilized string
	Balance  string
}

// DepthLevel is one side of one row of the market depth table.
type DepthLevel struct {
	Orders   string
	Quantity string
	Price    string
}

// MarketDepth is the order book snapshot for one symbol.
type MarketDepth struct {
	Symbol          string
	LastTradedPrice string
	Buys            []DepthLevel
	Sells           []DepthLevel
}

type Client struct {
	session browser.Session
	broker  int
	state   State
}

func NewClient(session browser.Session, broker int) *Client {
	return &Client{session: session, broker: broker}
}

func (c *Client) State() State { return c.state }

// OpenLogin navigates to the broker's login page and moves the client
// to CaptchaPending. This is the only step whose failure is an error;
// everything after degrades to warnings and empty data.
func (c *Client) OpenLogin(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Client.OpenLogin")
	defer span.End()
	span.SetAttributes(attribute.Int("broker", c.broker))

	err := c.session.Open(ctx, fmt.Sprintf(loginURL, c.broker))
	if err != nil {
		return err
	}
	err = c.session.WaitVisible(ctx, captchaImageSelector)
	if err != nil {
		return fmt.Errorf("login form never appeared: %w", err)
	}
	c.state = CaptchaPending
	return nil
}

// CaptchaImage returns the current captcha as a base64 PNG.
func (c *Client) CaptchaImage(ctx context.Context) (string, error) {
	png, err := c.session.ElementScreenshot(ctx, captchaImageSelector)
	if err != nil {
		return "", fmt.Errorf("failed to capture captcha: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// RefreshCaptcha asks the terminal for a new captcha and returns it.
func (c *Client) RefreshCaptcha(ctx context.Context) (string, error) {
	err := c.session.Click(ctx, captchaReloadSel)
	if err != nil {
		slog.WarnContext(ctx, "captcha reload click failed", "err", err)
	}
	return c.CaptchaImage(ctx)
}

// SubmitLogin fills the form and submits it. Landing on a dashboard
// URL is the success signal; anything else is LoginFailed and the
// caller may retry with RefreshCaptcha.
func (c *Client) SubmitLogin(ctx context.Context, username, password, captcha string) (State, error) {
	ctx, span := tracer.Start(ctx, "Client.SubmitLogin")
	defer span.End()

	if c.state != CaptchaPending && c.state != LoginFailed {
		return c.state, fmt.Errorf("cannot submit login in state %v", c.state)
	}

	steps := []struct {
		selector, value string
	}{
		{usernameSelector, username},
		{passwordSelector, password},
		{captchaInputSelector, captcha},
	}
	for _, s := range steps {
		if err := c.session.SendKeys(ctx, s.selector, s.value); err != nil {
			c.state = LoginFailed
			slog.WarnContext(ctx, "login form fill failed", "selector", s.selector, "err", err)
			return c.state, nil
		}
	}
	if err := c.session.Click(ctx, loginSubmitSelector); err != nil {
		c.state = LoginFailed
		slog.WarnContext(ctx, "login submit failed", "err", err)
		return c.state, nil
	}

	if c.onDashboard(ctx) {
		c.state = Authenticated
	} else {
		c.state = LoginFailed
		slog.WarnContext(ctx, "login rejected", "broker", c.broker, "user", username)
	}
	return c.state, nil
}

func (c *Client) onDashboard(ctx context.Context) bool {
	// The terminal redirects client side; the bounded wait inside
	// WaitVisible doubles as the settle delay.
	_ = c.session.WaitVisible(ctx, "app-dashboard, .dashboard__wrap")
	loc, err := c.session.Location(ctx)
	if err != nil {
		return false
	}
	return strings.Contains(loc, dashboardMarker)
}

// DashboardStats scrapes the landing-page summary. Requires
// Authenticated; failures return zero values after dumping a
// screenshot for later diagnosis.
func (c *Client) DashboardStats(ctx context.Context) (DashboardStats, error) {
	ctx, span := tracer.Start(ctx, "Client.DashboardStats")
	defer span.End()

	if c.state != Authenticated {
		return DashboardStats{}, fmt.Errorf("not authenticated (state %v)", c.state)
	}

	var stats DashboardStats
	var err error
	stats.Exchange, err = c.text(ctx, "span.exchange__name")
	if err != nil {
		c.dumpScreenshot(ctx, "dashboard stats")
		return stats, nil
	}
	stats.MarketState, _ = c.text(ctx, "span.market__status")
	stats.Index, _ = c.text(ctx, "div.index__value")
	return stats, nil
}

// Collateral scrapes the fund position widget.
func (c *Client) Collateral(ctx context.Context) (Collateral, error) {
	ctx, span := tracer.Start(ctx, "Client.Collateral")
	defer span.End()

	if c.state != Authenticated {
		return Collateral{}, fmt.Errorf("not authenticated (state %v)", c.state)
	}

	rows, err := c.session.TableRows(ctx, "table.collateral__table")
	if err != nil || len(rows) == 0 {
		c.dumpScreenshot(ctx, "collateral")
		return Collateral{}, nil
	}

	var col Collateral
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		label := strings.ToLower(row[0])
		switch {
		case strings.Contains(label, "utilized"):
			col.Utilized = row[1]
		case strings.Contains(label, "balance"):
			col.Balance = row[1]
		case strings.Contains(label, "total"):
			col.Total = row[1]
		}
	}
	return col, nil
}

// MarketDepth opens the order management view for symbol and reads the
// order book. Partial data is returned as is.
func (c *Client) MarketDepth(ctx context.Context, symbol string) (MarketDepth, error) {
	ctx, span := tracer.Start(ctx, "Client.MarketDepth")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	depth := MarketDepth{Symbol: symbol}
	if c.state != Authenticated {
		return depth, fmt.Errorf("not authenticated (state %v)", c.state)
	}

	if !c.openOrderForm(ctx, symbol) {
		c.dumpScreenshot(ctx, "market depth")
		return depth, nil
	}

	depth.LastTradedPrice, _ = c.text(ctx, "span.ltp__value")

	rows, err := c.session.TableRows(ctx, "table.market__depth")
	if err != nil {
		c.dumpScreenshot(ctx, "market depth")
		return depth, nil
	}
	// Each row carries both book sides: buy orders/qty/price then
	// price/qty/orders for sells.
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		depth.Buys = append(depth.Buys, DepthLevel{
			Orders: row[0], Quantity: row[1], Price: row[2],
		})
		depth.Sells = append(depth.Sells, DepthLevel{
			Price: row[3], Quantity: row[4], Orders: row[5],
		})
	}
	return depth, nil
}

// PlaceOrder submits a limit order and classifies the resulting toast.
// Fire and forget: no retry, no amendment, and an unrecognized or
// missing toast is reported as OrderOutcomeUnknown rather than retried.
func (c *Client) PlaceOrder(ctx context.Context, symbol string, side OrderSide, quantity, price decimal.Decimal) (OrderOutcome, error) {
	ctx, span := tracer.Start(ctx, "Client.PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("symbol", symbol),
		attribute.String("side", string(side)),
		attribute.String("quantity", quantity.String()),
		attribute.String("price", price.String()),
	)

	if c.state != Authenticated {
		return OrderOutcomeUnknown, fmt.Errorf("not authenticated (state %v)", c.state)
	}

	if !c.openOrderForm(ctx, symbol) {
		c.dumpScreenshot(ctx, "order form")
		return OrderOutcomeUnknown, nil
	}

	// Last traded price at submission time, for the audit trail.
	ltp, _ := c.text(ctx, "span.ltp__value")
	slog.InfoContext(ctx, "placing order",
		"symbol", symbol, "side", side,
		"quantity", quantity.String(), "price", price.String(), "ltp", ltp)

	if err := c.session.SendKeys(ctx, "input[name='quantity']", quantity.String()); err != nil {
		c.dumpScreenshot(ctx, "order form")
		return OrderOutcomeUnknown, nil
	}
	if err := c.session.SendKeys(ctx, "input[name='price']", price.String()); err != nil {
		c.dumpScreenshot(ctx, "order form")
		return OrderOutcomeUnknown, nil
	}

	submit := "button.btn__buy"
	if side == Sell {
		submit = "button.btn__sell"
	}
	if err := c.session.Click(ctx, submit); err != nil {
		c.dumpScreenshot(ctx, "order submit")
		return OrderOutcomeUnknown, nil
	}

	return c.classifyToast(ctx), nil
}

func (c *Client) openOrderForm(ctx context.Context, symbol string) bool {
	err := c.session.Click(ctx, "a.order__mgmt--link")
	if err != nil {
		slog.WarnContext(ctx, "could not open order management", "err", err)
		return false
	}
	err = c.session.SendKeys(ctx, "input.symbol__search", symbol+"\n")
	if err != nil {
		slog.WarnContext(ctx, "could not search symbol", "symbol", symbol, "err", err)
		return false
	}
	err = c.session.WaitVisible(ctx, "div.order__entry")
	if err != nil {
		slog.WarnContext(ctx, "order entry never appeared", "symbol", symbol, "err", err)
		return false
	}
	return true
}

// classifyToast waits (bounded by the session step timeout) for the
// post-order toast and maps its text to an outcome.
func (c *Client) classifyToast(ctx context.Context) OrderOutcome {
	err := c.session.WaitVisible(ctx, "div.toast-message")
	if err != nil {
		slog.WarnContext(ctx, "order toast never appeared", "err", err)
		return OrderOutcomeUnknown
	}
	text, err := c.session.Text(ctx, "div.toast-message")
	if err != nil {
		return OrderOutcomeUnknown
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "success"), strings.Contains(lower, "placed"):
		return OrderAccepted
	case strings.Contains(lower, "quantity"):
		return OrderInvalidQuantity
	case strings.Contains(lower, "price"), strings.Contains(lower, "range"):
		return OrderPriceOutOfRange
	}
	slog.WarnContext(ctx, "unrecognized order toast", "text", text)
	return OrderOutcomeUnknown
}

func (c *Client) text(ctx context.Context, selector string) (string, error) {
	text, err := c.session.Text(ctx, selector)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// dumpScreenshot records the page for diagnosis when an extraction
// fails. Best effort.
func (c *Client) dumpScreenshot(ctx context.Context, what string) {
	slog.WarnContext(ctx, "scrape failed, capturing screenshot",
		"what", what, "path", errorScreenshotPath)
	if err := c.session.Screenshot(ctx, errorScreenshotPath); err != nil {
		slog.WarnContext(ctx, "screenshot failed", "err", err)
	}
}
