// Package trading manages live TMS terminal sessions. Login needs a
// human in the loop for the captcha, so the service hands out opaque
// session handles: StartSession returns a handle plus the captcha to
// solve, SubmitCaptcha finishes the login, and the handle then scopes
// order placement until it is closed or expires. Every handle owns a
// real browser process; the janitor makes sure expiry closes it.
package trading

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"nepsemarket-backend/lib/browser"
	"nepsemarket-backend/lib/scrapers/tms"
)

var tracer = otel.Tracer("nepsemarket.services.trading")

var (
	ErrSessionNotFound = errors.New("trading: session not found or expired")
	ErrNotReady        = errors.New("trading: session not authenticated")
)

// SessionFactory opens a fresh browser session for one handle.
type SessionFactory func(ctx context.Context) (browser.Session, error)

const (
	defaultTTL      = 15 * time.Minute
	janitorInterval = time.Minute
	tokenLength     = 32
)

// LoginResult is SubmitCaptcha's outcome. On success Dashboard and
// Collateral are populated; on failure FreshCaptcha carries a new
// challenge for the retry.
type LoginResult struct {
	State        tms.State
	Dashboard    tms.DashboardStats
	Collateral   tms.Collateral
	FreshCaptcha string
}

type liveSession struct {
	client   *tms.Client
	session  browser.Session
	username string
	password string
	expires  time.Time
}

type Service struct {
	newSession SessionFactory
	ttl        time.Duration

	mu       sync.Mutex
	sessions map[string]*liveSession
}

// NewService starts the expiry janitor; it stops when ctx is canceled.
func NewService(ctx context.Context, newSession SessionFactory) *Service {
	s := &Service{
		newSession: newSession,
		ttl:        defaultTTL,
		sessions:   map[string]*liveSession{},
	}
	go s.janitor(ctx)
	return s
}

// StartSession opens the broker's login page and returns a handle plus
// the captcha image (base64 PNG) the caller must solve. The browser is
// closed on every failure path; a successful return transfers its
// ownership to the handle.
func (s *Service) StartSession(ctx context.Context, broker int, username, password string) (handle, captcha string, err error) {
	ctx, span := tracer.Start(ctx, "StartSession")
	defer span.End()
	span.SetAttributes(attribute.Int("broker", broker))

	session, err := s.newSession(ctx)
	if err != nil {
		return "", "", err
	}

	client := tms.NewClient(session, broker)
	err = client.OpenLogin(ctx)
	if err != nil {
		session.Close()
		return "", "", err
	}
	captcha, err = client.CaptchaImage(ctx)
	if err != nil {
		session.Close()
		return "", "", err
	}

	handle, err = generateBase64Token(tokenLength)
	if err != nil {
		session.Close()
		return "", "", err
	}

	s.mu.Lock()
	s.sessions[handle] = &liveSession{
		client:   client,
		session:  session,
		username: username,
		password: password,
		expires:  time.Now().Add(s.ttl),
	}
	s.mu.Unlock()

	slog.InfoContext(ctx, "trading session started", "broker", broker, "user", username)
	return handle, captcha, nil
}

// SubmitCaptcha completes the login for handle. A rejected login keeps
// the handle alive and returns a fresh captcha so the caller can retry.
func (s *Service) SubmitCaptcha(ctx context.Context, handle, captcha string) (LoginResult, error) {
	ctx, span := tracer.Start(ctx, "SubmitCaptcha")
	defer span.End()

	live, err := s.lookup(handle)
	if err != nil {
		return LoginResult{}, err
	}

	state, err := live.client.SubmitLogin(ctx, live.username, live.password, captcha)
	if err != nil {
		return LoginResult{}, err
	}

	result := LoginResult{State: state}
	if state == tms.Authenticated {
		result.Dashboard, _ = live.client.DashboardStats(ctx)
		result.Collateral, _ = live.client.Collateral(ctx)
		return result, nil
	}

	fresh, err := live.client.RefreshCaptcha(ctx)
	if err != nil {
		slog.WarnContext(ctx, "could not refresh captcha after failed login", "err", err)
		return result, nil
	}
	result.FreshCaptcha = fresh
	return result, nil
}

// PlaceOrder submits a limit order through handle's terminal.
func (s *Service) PlaceOrder(ctx context.Context, handle, symbol string, side tms.OrderSide, quantity, price decimal.Decimal) (tms.OrderOutcome, error) {
	ctx, span := tracer.Start(ctx, "PlaceOrder")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("side", string(side)))

	live, err := s.lookup(handle)
	if err != nil {
		return tms.OrderOutcomeUnknown, err
	}
	if live.client.State() != tms.Authenticated {
		return tms.OrderOutcomeUnknown, ErrNotReady
	}
	return live.client.PlaceOrder(ctx, symbol, side, quantity, price)
}

// MarketDepth reads the order book for symbol through handle's
// terminal.
func (s *Service) MarketDepth(ctx context.Context, handle, symbol string) (tms.MarketDepth, error) {
	live, err := s.lookup(handle)
	if err != nil {
		return tms.MarketDepth{}, err
	}
	if live.client.State() != tms.Authenticated {
		return tms.MarketDepth{}, ErrNotReady
	}
	return live.client.MarketDepth(ctx, symbol)
}

// CloseSession tears down the handle and its browser. Closing an
// unknown handle is not an error.
func (s *Service) CloseSession(handle string) {
	s.mu.Lock()
	live, ok := s.sessions[handle]
	delete(s.sessions, handle)
	s.mu.Unlock()

	if ok {
		live.session.Close()
	}
}

// lookup returns the live session and bumps its expiry.
func (s *Service) lookup(handle string) (*liveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live, ok := s.sessions[handle]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if time.Now().After(live.expires) {
		delete(s.sessions, handle)
		live.session.Close()
		return nil, ErrSessionNotFound
	}
	live.expires = time.Now().Add(s.ttl)
	return live, nil
}

func (s *Service) janitor(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case <-ticker.C:
			s.closeExpired()
		}
	}
}

func (s *Service) closeExpired() {
	now := time.Now()

	s.mu.Lock()
	var expired []*liveSession
	for handle, live := range s.sessions {
		if now.After(live.expires) {
			expired = append(expired, live)
			delete(s.sessions, handle)
		}
	}
	s.mu.Unlock()

	for _, live := range expired {
		live.session.Close()
	}
	if len(expired) > 0 {
		slog.Info("closed expired trading sessions", "count", len(expired))
	}
}

func (s *Service) closeAll() {
	s.mu.Lock()
	all := make([]*liveSession, 0, len(s.sessions))
	for handle, live := range s.sessions {
		all = append(all, live)
		delete(s.sessions, handle)
	}
	s.mu.Unlock()

	for _, live := range all {
		live.session.Close()
	}
}

func generateRandomBytes(length int) ([]byte, error) {
	token := make([]byte, length)
	_, err := rand.Read(token)
	if err != nil {
		return nil, err
	}
	return token, nil
}

func generateBase64Token(length int) (string, error) {
	bytes, err := generateRandomBytes(length)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
