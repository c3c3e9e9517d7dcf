package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropsaas/shopify-bridge/pkg/config"
	"github.com/dropsaas/shopify-bridge/pkg/shopify"
)

func TestForwardSendsRawBodyWithBearer(t *testing.T) {
	body := []byte(`{"id": 820982911946154508, "total_price": "10.00"}`)
	var got []byte
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		headers = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	fwd, err := NewForwarder(config.RelayConfig{TargetURL: server.URL, Timeout: time.Second}, "internal-secret")
	require.NoError(t, err)

	resp, err := fwd.Forward(context.Background(), Delivery{
		Topic:      "orders/create",
		ShopDomain: "acme.myshopify.com",
		WebhookID:  "wh-1",
		Body:       body,
	})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, body, got)
	assert.Equal(t, "Bearer internal-secret", headers.Get(shopify.HeaderAuthorization))
	assert.Equal(t, "orders/create", headers.Get(shopify.HeaderTopic))
	assert.Equal(t, "acme.myshopify.com", headers.Get(shopify.HeaderShopDomain))
	assert.Equal(t, "wh-1", headers.Get(shopify.HeaderWebhookID))
	assert.Empty(t, headers.Get(shopify.HeaderHmac))

	verifier := shopify.NewVerifier("unused", "internal-secret")
	method, err := verifier.Authenticate(got, "", headers.Get(shopify.HeaderAuthorization))
	require.NoError(t, err)
	assert.Equal(t, shopify.AuthBearer, method)
}

func TestForwardRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fwd, err := NewForwarder(config.RelayConfig{TargetURL: server.URL, Timeout: time.Second, RetryCount: 2}, "s")
	require.NoError(t, err)

	resp, err := fwd.Forward(context.Background(), Delivery{Topic: "products/update", ShopDomain: "acme.myshopify.com", Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestForwardReportsClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	fwd, err := NewForwarder(config.RelayConfig{TargetURL: server.URL, Timeout: time.Second, RetryCount: 3}, "s")
	require.NoError(t, err)

	resp, err := fwd.Forward(context.Background(), Delivery{Topic: "orders/create", ShopDomain: "acme.myshopify.com", Body: []byte(`{}`)})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNewForwarderValidates(t *testing.T) {
	_, err := NewForwarder(config.RelayConfig{}, "s")
	assert.Error(t, err)
	_, err = NewForwarder(config.RelayConfig{TargetURL: "http://localhost"}, "")
	assert.Error(t, err)
}
