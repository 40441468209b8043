package trading

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"nepsemarket-backend/lib/browser"
	"nepsemarket-backend/lib/browser/browsertest"
	"nepsemarket-backend/lib/scrapers/tms"
	"nepsemarket-backend/lib/telemetry"
)

const (
	loginSubmitSelector = "input[type='submit']"
	dashboardURL        = "https://tms54.nepsetms.com.np/tms/me/dashboard"
)

// fakeFactory hands out scripted sessions and remembers them so tests
// can check they were closed.
type fakeFactory struct {
	created []*browsertest.Fake
	// login controls whether submitted logins land on the dashboard
	login bool
}

func (f *fakeFactory) new(ctx context.Context) (browser.Session, error) {
	fake := browsertest.New()
	fake.OnClick = func(selector string) {
		if selector == loginSubmitSelector && f.login {
			fake.Current = dashboardURL
		}
	}
	f.created = append(f.created, fake)
	return fake, nil
}

func setup(t *testing.T) (*Service, *fakeFactory) {
	cleanup := telemetry.SetupForTesting(t, "test:trading")
	t.Cleanup(cleanup)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	factory := &fakeFactory{login: true}
	return NewService(ctx, factory.new), factory
}

func TestSessionLifecycle(t *testing.T) {
	service, factory := setup(t)
	ctx := context.Background()

	handle, captcha, err := service.StartSession(ctx, 54, "C123", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, handle)
	require.NotEmpty(t, captcha)

	result, err := service.SubmitCaptcha(ctx, handle, "abc")
	require.NoError(t, err)
	require.Equal(t, tms.Authenticated, result.State)

	fake := factory.created[0]
	fake.Texts["div.toast-message"] = "Order placed successfully"
	outcome, err := service.PlaceOrder(ctx, handle, "NABIL", tms.Buy,
		decimal.NewFromInt(10), decimal.NewFromFloat(880.5))
	require.NoError(t, err)
	require.Equal(t, tms.OrderAccepted, outcome)

	service.CloseSession(handle)
	require.Equal(t, 1, fake.CloseCount)

	_, err = service.SubmitCaptcha(ctx, handle, "abc")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFailedLoginReturnsFreshCaptcha(t *testing.T) {
	service, factory := setup(t)
	factory.login = false
	ctx := context.Background()

	handle, _, err := service.StartSession(ctx, 54, "C123", "wrongpass")
	require.NoError(t, err)

	result, err := service.SubmitCaptcha(ctx, handle, "abc")
	require.NoError(t, err)
	require.Equal(t, tms.LoginFailed, result.State)
	require.NotEmpty(t, result.FreshCaptcha)

	// the handle survives the failed attempt
	factory.login = true
	result, err = service.SubmitCaptcha(ctx, handle, "abc")
	require.NoError(t, err)
	require.Equal(t, tms.Authenticated, result.State)
}

func TestPlaceOrderBeforeLogin(t *testing.T) {
	service, _ := setup(t)
	ctx := context.Background()

	handle, _, err := service.StartSession(ctx, 54, "C123", "hunter2")
	require.NoError(t, err)

	_, err = service.PlaceOrder(ctx, handle, "NABIL", tms.Buy,
		decimal.NewFromInt(10), decimal.NewFromInt(880))
	require.ErrorIs(t, err, ErrNotReady)
}

func TestUnknownHandle(t *testing.T) {
	service, _ := setup(t)

	_, err := service.SubmitCaptcha(context.Background(), "nope", "abc")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExpiredSessionClosesBrowser(t *testing.T) {
	service, factory := setup(t)
	ctx := context.Background()

	handle, _, err := service.StartSession(ctx, 54, "C123", "hunter2")
	require.NoError(t, err)

	service.mu.Lock()
	service.sessions[handle].expires = time.Now().Add(-time.Minute)
	service.mu.Unlock()

	_, err = service.SubmitCaptcha(ctx, handle, "abc")
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.Equal(t, 1, factory.created[0].CloseCount)
}

func TestJanitorClosesEverythingOnShutdown(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:trading")
	t.Cleanup(cleanup)

	ctx, cancel := context.WithCancel(context.Background())
	factory := &fakeFactory{login: true}
	service := NewService(ctx, factory.new)

	_, _, err := service.StartSession(context.Background(), 54, "C123", "hunter2")
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool {
		return factory.created[0].CloseCount == 1
	}, time.Second, 10*time.Millisecond)
}
