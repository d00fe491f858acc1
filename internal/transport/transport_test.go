package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStrategy struct {
	name      string
	available bool
	body      []byte
	err       error
	calls     int
}

func (f *fakeStrategy) Name() string    { return f.name }
func (f *fakeStrategy) Available() bool { return f.available }
func (f *fakeStrategy) Post(context.Context, string, string, string) ([]byte, error) {
	f.calls++
	return f.body, f.err
}

func form(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v
}

func gatewayServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientSendUsesFirstAvailableStrategy(t *testing.T) {
	primary := &fakeStrategy{name: "http", available: false}
	fallback := &fakeStrategy{name: "stream", available: true, body: []byte("responseCode=0&responseMessage=AUTHCODE%3A123")}

	fields, err := NewClient(primary, fallback).Send(context.Background(), "https://gateway.test/direct/", form("amount", "100"), "agent")
	require.NoError(t, err)

	assert.Equal(t, 0, primary.calls)
	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, map[string]string{"responseCode": "0", "responseMessage": "AUTHCODE:123"}, fields)
}

func TestClientSendDoesNotFallBackOnError(t *testing.T) {
	primary := &fakeStrategy{name: "http", available: true, err: errors.New("connection refused")}
	fallback := &fakeStrategy{name: "stream", available: true, body: []byte("responseCode=0")}

	_, err := NewClient(primary, fallback).Send(context.Background(), "https://gateway.test/direct/", form(), "agent")

	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "http", terr.Strategy)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestClientSendNoTransportAvailable(t *testing.T) {
	client := NewClient(&fakeStrategy{name: "http"}, &StreamStrategy{Enabled: false})

	_, err := client.Send(context.Background(), "https://gateway.test/direct/", form(), "agent")
	assert.ErrorIs(t, err, ErrNoTransportAvailable)
}

func TestClientSendEmptyResponse(t *testing.T) {
	client := NewClient(&fakeStrategy{name: "http", available: true})

	_, err := client.Send(context.Background(), "https://gateway.test/direct/", form(), "agent")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestHTTPStrategyPost(t *testing.T) {
	srv := gatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "Mozilla/5.0 (Test)", r.UserAgent())
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "100856", r.PostForm.Get("merchantID"))
		io.WriteString(w, "responseCode=5&responseMessage=Card+declined")
	})

	client := NewClient(DefaultStrategies(time.Second, false)...)
	fields, err := client.Send(context.Background(), srv.URL, form("merchantID", "100856"), "Mozilla/5.0 (Test)")
	require.NoError(t, err)
	assert.Equal(t, "5", fields["responseCode"])
	assert.Equal(t, "Card declined", fields["responseMessage"])
}

func TestHTTPStrategyNon2xx(t *testing.T) {
	srv := gatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := NewClient(DefaultStrategies(time.Second, true)...).Send(context.Background(), srv.URL, form(), "agent")

	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "http", terr.Strategy)
	assert.Contains(t, terr.Error(), "502")
}

func TestStreamStrategyPost(t *testing.T) {
	srv := gatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Mozilla/5.0 (Test)", r.UserAgent())
		assert.NoError(t, r.ParseForm())
		io.WriteString(w, "responseCode=0&responseMessage=OK&amount="+r.PostForm.Get("amount"))
	})

	client := NewClient(NewHTTPStrategy(nil), &StreamStrategy{Enabled: true})
	fields, err := client.Send(context.Background(), srv.URL, form("amount", "4999"), "Mozilla/5.0 (Test)")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"responseCode": "0", "responseMessage": "OK", "amount": "4999"}, fields)
}

func TestStreamStrategyTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := gatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	s := &StreamStrategy{Enabled: true, Timeout: 100 * time.Millisecond}
	start := time.Now()
	_, err := s.Post(context.Background(), srv.URL, "", "agent")

	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestStreamStrategyUnsupportedScheme(t *testing.T) {
	s := &StreamStrategy{Enabled: true}
	_, err := s.Post(context.Background(), "ftp://gateway.test/", "", "agent")

	var terr *Error
	assert.ErrorAs(t, err, &terr)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]string
	}{
		{
			name: "well formed",
			body: "responseCode=0&responseMessage=AUTHCODE%3A+01234",
			want: map[string]string{"responseCode": "0", "responseMessage": "AUTHCODE: 01234"},
		},
		{
			name: "bad escape kept verbatim",
			body: "responseCode=0&note=100%zz",
			want: map[string]string{"responseCode": "0", "note": "100%zz"},
		},
		{
			name: "empty pairs and keys skipped",
			body: "&&=orphan&responseCode=65802&flag",
			want: map[string]string{"responseCode": "65802", "flag": ""},
		},
		{
			name: "last value wins",
			body: "a=1&a=2",
			want: map[string]string{"a": "2"},
		},
		{
			name: "bracketed keys stay flat",
			body: "threeDSRequest%5Bcreq%5D=abc",
			want: map[string]string{"threeDSRequest[creq]": "abc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.body))
		})
	}
}
