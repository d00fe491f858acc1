package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// StreamTimeout bounds the whole fallback exchange.
const StreamTimeout = 5 * time.Second

// StreamStrategy is the fallback transport. It writes a single HTTP/1.1
// request straight onto a TCP or TLS connection and reads the reply under a
// fixed deadline.
type StreamStrategy struct {
	Enabled bool
	// Timeout overrides StreamTimeout when non-zero.
	Timeout time.Duration
	// TLSConfig is used for https endpoints; nil means defaults.
	TLSConfig *tls.Config
}

func (s *StreamStrategy) Name() string { return "stream" }

func (s *StreamStrategy) Available() bool { return s != nil && s.Enabled }

func (s *StreamStrategy) Post(ctx context.Context, endpoint, body, userAgent string) ([]byte, error) {
	timeout := s.Timeout
	if timeout == 0 {
		timeout = StreamTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &Error{Strategy: s.Name(), Detail: "failed to send request", Err: err}
	}

	conn, err := s.dial(ctx, u)
	if err != nil {
		return nil, &Error{Strategy: s.Name(), Detail: "failed to send request", Err: err}
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, &Error{Strategy: s.Name(), Detail: "failed to send request", Err: err}
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, &Error{Strategy: s.Name(), Detail: "failed to send request", Err: err}
	}
	req.Close = true
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	if err := req.Write(conn); err != nil {
		return nil, &Error{Strategy: s.Name(), Detail: "failed to send request", Err: err}
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		return nil, &Error{Strategy: s.Name(), Detail: "failed to read response", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Strategy: s.Name(), Detail: fmt.Sprintf("unexpected status %s", resp.Status)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Strategy: s.Name(), Detail: "failed to read response", Err: err}
	}
	return data, nil
}

func (s *StreamStrategy) dial(ctx context.Context, u *url.URL) (net.Conn, error) {
	host := u.Hostname()
	port := u.Port()

	switch u.Scheme {
	case "http":
		if port == "" {
			port = "80"
		}
		var d net.Dialer
		return d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	case "https":
		if port == "" {
			port = "443"
		}
		cfg := s.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{}
		}
		if cfg.ServerName == "" {
			cfg = cfg.Clone()
			cfg.ServerName = host
		}
		d := tls.Dialer{Config: cfg}
		return d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}
