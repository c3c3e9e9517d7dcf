// Package relay re-posts verified Shopify webhooks to a second bridge tier,
// trusting it with the service secret instead of the original signature.
package relay

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dropsaas/shopify-bridge/pkg/config"
	"github.com/dropsaas/shopify-bridge/pkg/shopify"
)

// Delivery is the verified webhook being forwarded. Body must be the raw
// request bytes.
type Delivery struct {
	Topic      string
	ShopDomain string
	WebhookID  string
	APIVersion string
	Body       []byte
}

type Response struct {
	StatusCode int
	Body       string
	Elapsed    time.Duration
}

// OK reports a 2xx answer from the downstream tier.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type Forwarder struct {
	client        *resty.Client
	targetURL     string
	serviceSecret string
}

func NewForwarder(cfg config.RelayConfig, serviceSecret string) (*Forwarder, error) {
	target := strings.TrimSpace(cfg.TargetURL)
	if target == "" {
		return nil, fmt.Errorf("relay target url is required")
	}
	if strings.TrimSpace(serviceSecret) == "" {
		return nil, fmt.Errorf("service secret is required to relay webhooks")
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || (resp != nil && resp.StatusCode() >= http.StatusInternalServerError)
		})
	return &Forwarder{client: client, targetURL: target, serviceSecret: serviceSecret}, nil
}

// Forward posts the delivery downstream. A non-2xx answer is returned as an
// error together with the response.
func (f *Forwarder) Forward(ctx context.Context, d Delivery) (Response, error) {
	if len(d.Body) == 0 {
		return Response{}, fmt.Errorf("relay body is empty")
	}
	req := f.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(shopify.HeaderAuthorization, shopify.BearerHeader(f.serviceSecret)).
		SetHeader(shopify.HeaderTopic, d.Topic).
		SetHeader(shopify.HeaderShopDomain, d.ShopDomain).
		SetBody(d.Body)
	if d.WebhookID != "" {
		req.SetHeader(shopify.HeaderWebhookID, d.WebhookID)
	}
	if d.APIVersion != "" {
		req.SetHeader(shopify.HeaderAPIVersion, d.APIVersion)
	}

	resp, err := req.Post(f.targetURL)
	if err != nil {
		return Response{}, fmt.Errorf("relay webhook: %w", err)
	}
	out := Response{
		StatusCode: resp.StatusCode(),
		Body:       truncate(resp.String(), 512),
		Elapsed:    resp.Time(),
	}
	if !out.OK() {
		return out, fmt.Errorf("relay target answered %d", out.StatusCode)
	}
	return out, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
