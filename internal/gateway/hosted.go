package gateway

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/akylbek/payment-system/checkout-gateway/internal/models"
)

const frameName = "paymentgateway-frame"

type formField struct {
	Name  string
	Value string
}

type formPage struct {
	Mode   string
	Action string
	Target string
	Fields []formField
}

var formTemplate = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Payment</title></head>
<body>
{{- if eq .Mode "hosted_modal"}}
<div class="paymentgateway-modal" style="position:fixed;inset:0;background:rgba(0,0,0,.6);display:flex;align-items:center;justify-content:center">
<iframe name="{{.Target}}" style="width:100%;max-width:600px;height:90vh;border:0;background:#fff"></iframe>
</div>
{{- else if eq .Mode "hosted_embedded"}}
<iframe name="{{.Target}}" style="width:100%;min-height:640px;border:0"></iframe>
{{- end}}
<form id="paymentgateway-form" action="{{.Action}}" method="post"{{if .Target}} target="{{.Target}}"{{end}}>
{{- range .Fields}}
<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{- end}}
<noscript><button type="submit">Continue to payment</button></noscript>
</form>
<script>document.getElementById("paymentgateway-form").submit();</script>
</body>
</html>
`))

// HostedForm renders the page that hands the customer over to the gateway's
// hosted payment form for order. Nothing is sent to the gateway from here.
func (g *Gateway) HostedForm(order *models.Order) (string, error) {
	if order == nil {
		return "", ErrNoOrder
	}
	if !g.cfg.Mode.Hosted() {
		return "", fmt.Errorf("hosted form requested in %s mode", g.cfg.Mode)
	}

	req := g.saleRequest(order)
	req.Set("redirectURL", g.cfg.ReturnURL)
	if g.cfg.FormResponsive {
		req.Set("formResponsive", "Y")
	}
	g.sign(req)

	page := formPage{Mode: g.cfg.Mode.String(), Action: g.cfg.HostedURL}
	if g.cfg.Mode != HostedRedirect {
		page.Target = frameName
	}
	for _, k := range req.Keys() {
		page.Fields = append(page.Fields, formField{Name: k, Value: req.Get(k)})
	}

	return render(page)
}

const continuationPrefix = "threeDSRequest["

// Continuation renders the page that relays the customer to the gateway's
// intermediate step (the 3-D Secure access control server) with the
// threeDSRequest[...] fields as posted values.
func (g *Gateway) Continuation(fields map[string]string) (string, error) {
	action := strings.TrimSpace(fields["threeDSURL"])
	if action == "" {
		return "", fmt.Errorf("continuation requested without threeDSURL")
	}

	var names []string
	for k := range fields {
		if strings.HasPrefix(k, continuationPrefix) && strings.HasSuffix(k, "]") {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	page := formPage{Mode: "continuation", Action: action}
	for _, k := range names {
		page.Fields = append(page.Fields, formField{
			Name:  strings.TrimSuffix(strings.TrimPrefix(k, continuationPrefix), "]"),
			Value: fields[k],
		})
	}

	return render(page)
}

func render(page formPage) (string, error) {
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, page); err != nil {
		return "", err
	}
	return buf.String(), nil
}
