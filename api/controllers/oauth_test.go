package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropsaas/shopify-bridge/internal/auth"
	pkgerrors "github.com/dropsaas/shopify-bridge/pkg/errors"
)

type fakeInstallService struct {
	begunWith   string
	beginTarget string
	beginErr    error
	completed   *url.URL
	result      *auth.InstallResult
	completeErr error
}

func (f *fakeInstallService) Begin(_ context.Context, shop string) (string, error) {
	f.begunWith = shop
	return f.beginTarget, f.beginErr
}

func (f *fakeInstallService) Complete(_ context.Context, callback *url.URL) (*auth.InstallResult, error) {
	f.completed = callback
	return f.result, f.completeErr
}

func TestOAuthInstallRedirects(t *testing.T) {
	svc := &fakeInstallService{beginTarget: "https://acme.myshopify.com/admin/oauth/authorize?client_id=key"}

	rec := httptest.NewRecorder()
	OAuthInstall(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/install?shop=Acme.myshopify.com", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, svc.beginTarget, rec.Header().Get("Location"))
	assert.Equal(t, "acme.myshopify.com", svc.begunWith)
}

func TestOAuthInstallRejectsInvalidShop(t *testing.T) {
	svc := &fakeInstallService{}

	rec := httptest.NewRecorder()
	OAuthInstall(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/install?shop=acme.example.com", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.begunWith)
}

func TestOAuthCallbackRedirectsIntoAdmin(t *testing.T) {
	svc := &fakeInstallService{result: &auth.InstallResult{
		Shop:        "acme.myshopify.com",
		RedirectURL: "https://acme.myshopify.com/admin/apps/key",
	}}

	rec := httptest.NewRecorder()
	OAuthCallback(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?shop=acme.myshopify.com&code=abc&state=s1&hmac=x", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://acme.myshopify.com/admin/apps/key", rec.Header().Get("Location"))
	require.NotNil(t, svc.completed)
	assert.Equal(t, "abc", svc.completed.Query().Get("code"))
}

func TestOAuthCallbackMapsUnauthorized(t *testing.T) {
	svc := &fakeInstallService{completeErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid oauth state")}

	rec := httptest.NewRecorder()
	OAuthCallback(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?shop=acme.myshopify.com", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
