package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dropsaas/shopify-bridge/api/responses"
	"github.com/dropsaas/shopify-bridge/internal/relay"
	shopifywebhook "github.com/dropsaas/shopify-bridge/internal/webhooks/shopify"
	"github.com/dropsaas/shopify-bridge/pkg/enums"
	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
	"github.com/dropsaas/shopify-bridge/pkg/logger"
	"github.com/dropsaas/shopify-bridge/pkg/metrics"
	"github.com/dropsaas/shopify-bridge/pkg/shopify"
)

const defaultMaxBodyBytes int64 = 1 << 20

type ShopifyWebhookService interface {
	HandleEvent(ctx context.Context, event shopifywebhook.Event) (shopifywebhook.Result, error)
}

type deliveryAuthenticator interface {
	Authenticate(body []byte, hmacHeader, authorization string) (shopify.AuthMethod, error)
	VerifyHMAC(body []byte, header string) bool
}

type relayForwarder interface {
	Forward(ctx context.Context, d relay.Delivery) (relay.Response, error)
}

type outcomeBody struct {
	Outcome enums.WebhookOutcome `json:"outcome"`
	Detail  string               `json:"detail,omitempty"`
}

// delivery is the parsed envelope of one inbound webhook request.
type delivery struct {
	topic      string
	shop       string
	webhookID  string
	apiVersion string
	hmac       string
	authz      string
	body       []byte
}

func readDelivery(w http.ResponseWriter, r *http.Request, maxBody int64) (delivery, error) {
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return delivery{}, pkgerrors.Wrap(pkgerrors.CodePayloadTooLarge, err, "webhook body too large")
		}
		return delivery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}

	d := delivery{
		topic:      strings.TrimSpace(r.Header.Get(shopify.HeaderTopic)),
		shop:       shopify.NormalizeShopDomain(r.Header.Get(shopify.HeaderShopDomain)),
		webhookID:  strings.TrimSpace(r.Header.Get(shopify.HeaderWebhookID)),
		apiVersion: strings.TrimSpace(r.Header.Get(shopify.HeaderAPIVersion)),
		hmac:       strings.TrimSpace(r.Header.Get(shopify.HeaderHmac)),
		authz:      strings.TrimSpace(r.Header.Get(shopify.HeaderAuthorization)),
		body:       body,
	}
	if d.topic == "" {
		return d, pkgerrors.New(pkgerrors.CodeValidation, "missing "+shopify.HeaderTopic+" header")
	}
	if d.shop == "" {
		return d, pkgerrors.New(pkgerrors.CodeValidation, "missing "+shopify.HeaderShopDomain+" header")
	}
	return d, nil
}

// ShopifyWebhook receives Shopify deliveries and relayed deliveries from
// another bridge tier.
func ShopifyWebhook(svc ShopifyWebhookService, verifier deliveryAuthenticator, stats *metrics.WebhookMetrics, maxBody int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()

		if svc == nil || verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		d, err := readDelivery(w, r, maxBody)
		if logg != nil {
			ctx = logg.WithWebhook(ctx, d.topic, d.shop, d.webhookID)
		}
		if err != nil {
			stats.Observe(metrics.TopicUnauthenticated, string(enums.OutcomeRejected), time.Since(start))
			responses.WriteError(ctx, logg, w, err)
			return
		}

		method, err := verifier.Authenticate(d.body, d.hmac, d.authz)
		if err != nil {
			stats.Observe(metrics.TopicUnauthenticated, string(enums.OutcomeRejected), time.Since(start))
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid webhook signature"))
			return
		}
		if logg != nil {
			ctx = logg.WithField(ctx, "auth_method", string(method))
		}

		if len(d.body) == 0 {
			stats.Observe(d.topic, string(enums.OutcomeRejected), time.Since(start))
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "empty webhook body"))
			return
		}

		result, err := svc.HandleEvent(ctx, shopifywebhook.Event{
			Topic:      d.topic,
			ShopDomain: d.shop,
			WebhookID:  d.webhookID,
			APIVersion: d.apiVersion,
			Payload:    d.body,
			ReceivedAt: start.UTC(),
		})
		if err != nil {
			outcome := enums.OutcomeFailed
			if pkgerrors.Is(err, pkgerrors.CodeValidation) {
				outcome = enums.OutcomeRejected
			}
			stats.Observe(d.topic, string(outcome), time.Since(start))
			responses.WriteError(ctx, logg, w, err)
			return
		}

		stats.Observe(d.topic, string(result.Outcome), time.Since(start))
		responses.WriteSuccess(w, outcomeBody{Outcome: result.Outcome, Detail: result.Detail})
	}
}

// ShopifyRelay verifies a Shopify delivery and forwards it to the downstream
// tier. Once verified it always answers 200 so Shopify does not retry
// against this tier.
func ShopifyRelay(forwarder relayForwarder, verifier deliveryAuthenticator, stats *metrics.WebhookMetrics, maxBody int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if forwarder == nil || verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "relay unavailable"))
			return
		}

		d, err := readDelivery(w, r, maxBody)
		if logg != nil {
			ctx = logg.WithWebhook(ctx, d.topic, d.shop, d.webhookID)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if !verifier.VerifyHMAC(d.body, d.hmac) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}
		if len(d.body) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "empty webhook body"))
			return
		}

		resp, err := forwarder.Forward(ctx, relay.Delivery{
			Topic:      d.topic,
			ShopDomain: d.shop,
			WebhookID:  d.webhookID,
			APIVersion: d.apiVersion,
			Body:       d.body,
		})
		stats.IncRelay(err == nil)
		if err != nil {
			if logg != nil {
				logCtx := logg.WithFields(ctx, map[string]any{
					"downstream_status": resp.StatusCode,
					"elapsed_ms":        resp.Elapsed.Milliseconds(),
				})
				logg.Error(logCtx, "webhook.relay_failed", err)
			}
			responses.WriteSuccess(w, outcomeBody{Outcome: enums.OutcomeRelayed, Detail: "downstream failed"})
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "downstream_status", resp.StatusCode), "webhook.relayed")
		}
		responses.WriteSuccess(w, outcomeBody{Outcome: enums.OutcomeRelayed})
	}
}
