// Package render picks how the checkout endpoint answers the browser.
//
// AJAX callers and pages framed by the embedded payment form cannot be moved
// by an HTTP redirect: the redirect only navigates the XHR or the iframe. For
// those the response is a script that navigates the top-level window.
package render

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/akylbek/payment-system/checkout-gateway/internal/gateway"
)

type CallerKind int

const (
	Browser CallerKind = iota + 1
	Ajax
)

func (k CallerKind) String() string {
	if k == Ajax {
		return "ajax"
	}
	return "browser"
}

// CallerKindOf classifies a request by its X-Requested-With header.
func CallerKindOf(header http.Header) CallerKind {
	if strings.EqualFold(header.Get("X-Requested-With"), "XMLHttpRequest") {
		return Ajax
	}
	return Browser
}

// Response is a framework-neutral HTTP response.
type Response struct {
	Status      int
	ContentType string
	Body        string
	// Location is set for redirects.
	Location string
}

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

type Renderer struct {
	baseURL string
}

func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/") + "/"}
}

// URL resolves a store path against the base URL.
func (r *Renderer) URL(path string) string {
	return r.baseURL + strings.TrimLeft(path, "/")
}

// Render sends the caller to path. data is the gateway response that led
// here, or nil.
func (r *Renderer) Render(caller CallerKind, mode gateway.IntegrationMode, path string, data map[string]string) Response {
	switch {
	case caller == Ajax && failed(data):
		return r.topFrameRedirect(path)
	case caller == Ajax:
		body, _ := json.Marshal(struct {
			Success bool   `json:"success"`
			Path    string `json:"path"`
		}{Success: true, Path: path})
		return Response{Status: http.StatusOK, ContentType: contentTypeJSON, Body: string(body)}
	case mode == gateway.HostedEmbedded:
		return r.topFrameRedirect(path)
	default:
		return Response{Status: http.StatusFound, Location: r.URL(path)}
	}
}

// HTML returns body verbatim as a page.
func HTML(body string) Response {
	return Response{Status: http.StatusOK, ContentType: contentTypeHTML, Body: body}
}

func (r *Renderer) topFrameRedirect(path string) Response {
	body := `<script>window.top.location.href = "` + template.JSEscapeString(r.URL(path)) + `";</script>`
	return HTML(body)
}

func failed(data map[string]string) bool {
	raw, ok := data["responseCode"]
	if !ok {
		return false
	}
	raw = strings.TrimSpace(raw)
	code, err := strconv.Atoi(raw)
	if err != nil {
		return raw != ""
	}
	return code != 0
}
