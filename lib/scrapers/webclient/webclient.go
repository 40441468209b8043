// Package webclient builds the resty client used for plain-HTTP fetches
// (news article bodies). Browser automation is deliberately avoided for
// those: article pages render fine without javascript and a shared HTTP
// client is far cheaper than a Chrome tab per article.
package webclient

import (
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	fakeua "github.com/EDDYCJY/fake-useragent"
	"github.com/go-resty/resty/v2"

	"nepsemarket-backend/lib/telemetry"
)

func New() *resty.Client {
	client := resty.New()
	client.SetHeader("user-agent", fakeua.Chrome())
	client.SetTimeout(time.Second * 30)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	telemetry.InstrumentResty(client, "nepsemarket.lib.scrapers.webclient")

	return client
}
