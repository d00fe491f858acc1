package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/checkout-gateway/internal/checkout"
	"github.com/akylbek/payment-system/checkout-gateway/internal/gateway"
	"github.com/akylbek/payment-system/checkout-gateway/internal/handlers"
	"github.com/akylbek/payment-system/checkout-gateway/internal/render"
	"github.com/akylbek/payment-system/checkout-gateway/internal/session"
)

func TestRouter(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store := session.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil, time.Hour)
	gw := gateway.New(gateway.Config{Mode: gateway.HostedRedirect, HostedURL: "https://gateway.test/hosted/"}, nil)
	controller := checkout.NewController(checkout.Config{}, gw, nil, render.NewRenderer("https://shop.test/"), nil, nil)
	r := NewRouter(handlers.NewCheckoutHandler(controller), store, 3600)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/checkout/messages", http.StatusOK},
		{http.MethodPut, ProcessPath, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
