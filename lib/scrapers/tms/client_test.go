package tms

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"nepsemarket-backend/lib/browser/browsertest"
	"nepsemarket-backend/lib/telemetry"
)

const dashboardURL = "https://tms54.nepsetms.com.np/tms/me/dashboard"

func TestLoginStateMachine(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:tms")
	defer cleanup()

	fake := browsertest.New()
	client := NewClient(fake, 54)
	require.Equal(t, Anonymous, client.State())

	err := client.OpenLogin(context.Background())
	require.NoError(t, err)
	require.Equal(t, CaptchaPending, client.State())
	require.Equal(t, []string{"https://tms54.nepsetms.com.np/login"}, fake.OpenedURLs)

	captcha, err := client.CaptchaImage(context.Background())
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(captcha)
	require.NoError(t, err)
	require.NotEmpty(t, decoded)

	// wrong captcha: the page stays on the login URL
	state, err := client.SubmitLogin(context.Background(), "C123", "hunter2", "wrong")
	require.NoError(t, err)
	require.Equal(t, LoginFailed, state)

	// retry lands on the dashboard
	fake.OnClick = func(selector string) {
		if selector == loginSubmitSelector {
			fake.Current = dashboardURL
		}
	}
	state, err = client.SubmitLogin(context.Background(), "C123", "hunter2", "right")
	require.NoError(t, err)
	require.Equal(t, Authenticated, state)

	require.Equal(t, "C123", fake.Keyed[usernameSelector])
	require.Equal(t, "right", fake.Keyed[captchaInputSelector])
}

func TestSubmitLoginRequiresCaptchaPending(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:tms")
	defer cleanup()

	client := NewClient(browsertest.New(), 54)
	_, err := client.SubmitLogin(context.Background(), "C123", "hunter2", "abc")
	require.Error(t, err)
}

func authenticated(t *testing.T) (*Client, *browsertest.Fake) {
	t.Helper()

	fake := browsertest.New()
	client := NewClient(fake, 54)
	require.NoError(t, client.OpenLogin(context.Background()))
	fake.OnClick = func(selector string) {
		if selector == loginSubmitSelector {
			fake.Current = dashboardURL
		}
	}
	state, err := client.SubmitLogin(context.Background(), "C123", "hunter2", "ok")
	require.NoError(t, err)
	require.Equal(t, Authenticated, state)
	fake.OnClick = nil
	return client, fake
}

func TestPlaceOrderOutcomes(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:tms")
	defer cleanup()

	cases := []struct {
		toast string
		want  OrderOutcome
	}{
		{"Order placed successfully", OrderAccepted},
		{"Invalid quantity entered", OrderInvalidQuantity},
		{"Price is out of range", OrderPriceOutOfRange},
		{"Something odd happened", OrderOutcomeUnknown},
	}
	for _, tc := range cases {
		client, fake := authenticated(t)
		fake.Texts["div.toast-message"] = tc.toast

		outcome, err := client.PlaceOrder(context.Background(), "NABIL", Buy,
			decimal.NewFromInt(10), decimal.NewFromFloat(880.5))
		require.NoError(t, err)
		require.Equal(t, tc.want, outcome, tc.toast)
	}
}

func TestPlaceOrderFillsForm(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:tms")
	defer cleanup()

	client, fake := authenticated(t)
	fake.Texts["div.toast-message"] = "Order placed successfully"

	_, err := client.PlaceOrder(context.Background(), "NABIL", Sell,
		decimal.NewFromInt(25), decimal.NewFromFloat(901.10))
	require.NoError(t, err)

	require.Equal(t, "25", fake.Keyed["input[name='quantity']"])
	require.Equal(t, "901.1", fake.Keyed["input[name='price']"])
	require.Contains(t, fake.Clicked, "button.btn__sell")
	require.NotContains(t, fake.Clicked, "button.btn__buy")
}

func TestPlaceOrderRequiresAuth(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:tms")
	defer cleanup()

	client := NewClient(browsertest.New(), 54)
	_, err := client.PlaceOrder(context.Background(), "NABIL", Buy,
		decimal.NewFromInt(10), decimal.NewFromInt(880))
	require.Error(t, err)
}

func TestScrapeFailureCapturesScreenshot(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:tms")
	defer cleanup()

	client, fake := authenticated(t)
	fake.TimeoutOn["table.collateral__table"] = true

	col, err := client.Collateral(context.Background())
	require.NoError(t, err)
	require.Zero(t, col)
	require.Equal(t, []string{errorScreenshotPath}, fake.Screenshots)
}

func TestMarketDepth(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:tms")
	defer cleanup()

	client, fake := authenticated(t)
	fake.Texts["span.ltp__value"] = "880.50"
	fake.Rows["table.market__depth"] = [][]string{
		{"3", "500", "880", "881", "200", "2"},
		{"1", "100", "879", "882", "700", "5"},
	}

	depth, err := client.MarketDepth(context.Background(), "NABIL")
	require.NoError(t, err)
	require.Equal(t, "880.50", depth.LastTradedPrice)
	require.Len(t, depth.Buys, 2)
	require.Len(t, depth.Sells, 2)
	require.Equal(t, "880", depth.Buys[0].Price)
	require.Equal(t, "881", depth.Sells[0].Price)
}
