package gateway

import (
	"net/url"
	"strings"
)

// Request is an ordered set of form fields sent to the gateway. Fields are
// encoded in the order they were first set.
type Request struct {
	keys   []string
	values map[string]string
}

func NewRequest() *Request {
	return &Request{values: make(map[string]string)}
}

func (r *Request) Set(key, value string) *Request {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
	return r
}

func (r *Request) Get(key string) string {
	return r.values[key]
}

func (r *Request) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Fields returns a copy of the request as a plain map.
func (r *Request) Fields() map[string]string {
	fields := make(map[string]string, len(r.values))
	for k, v := range r.values {
		fields[k] = v
	}
	return fields
}

func (r *Request) Encode() string {
	var b strings.Builder
	for i, k := range r.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(r.values[k]))
	}
	return b.String()
}
