package dispatch

import (
	"fmt"
	"html/template"
	"strings"
)

// TemplateData is what every notification template renders with.
type TemplateData struct {
	RecipientName string
	OrderRef      string
	Subject       string
	CTA           string
}

var bodyLines = map[string]string{
	"order_created_buyer":    "We received your order {{.OrderRef}}. You can pay for it from your orders page.",
	"order_created_seller":   "Order {{.OrderRef}} is waiting for payment. We will let you know once it is paid.",
	"order_paid_buyer":       "Your payment for order {{.OrderRef}} has been confirmed.",
	"order_paid_seller":      "Order {{.OrderRef}} has been paid. Please start preparing it for shipment.",
	"payment_failed_buyer":   "Your payment for order {{.OrderRef}} was not successful. No money has been taken.",
	"order_shipped_buyer":    "Order {{.OrderRef}} is on its way.",
	"order_delivered_buyer":  "Order {{.OrderRef}} has been marked delivered. Please confirm you received it.",
	"order_completed_buyer":  "Order {{.OrderRef}} is complete. Thanks for shopping with us.",
	"order_completed_seller": "The buyer confirmed delivery of order {{.OrderRef}}. Your funds have been released.",
	"order_cancelled_buyer":  "Order {{.OrderRef}} has been cancelled.",
	"order_cancelled_seller": "Order {{.OrderRef}} has been cancelled.",
}

const layout = `<html><body>
<p>Hi {{.RecipientName}},</p>
<p>{{.Body}}</p>
{{if .CTA}}<p><strong>{{.CTA}}</strong></p>{{end}}
</body></html>`

var (
	layoutTmpl = template.Must(template.New("layout").Parse(layout))
	bodyTmpls  = func() map[string]*template.Template {
		out := make(map[string]*template.Template, len(bodyLines))
		for name, line := range bodyLines {
			out[name] = template.Must(template.New(name).Parse(line))
		}
		return out
	}()
)

// RenderEmail produces the HTML and plain-text bodies for a template.
func RenderEmail(name string, data TemplateData) (html string, text string, err error) {
	bodyTmpl, ok := bodyTmpls[name]
	if !ok {
		return "", "", fmt.Errorf("unknown notification template %q", name)
	}
	var body strings.Builder
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return "", "", err
	}

	var page strings.Builder
	err = layoutTmpl.Execute(&page, struct {
		RecipientName string
		Body          template.HTML
		CTA           string
	}{
		RecipientName: data.RecipientName,
		Body:          template.HTML(body.String()),
		CTA:           data.CTA,
	})
	if err != nil {
		return "", "", err
	}

	text = fmt.Sprintf("Hi %s,\n\n%s\n", data.RecipientName, body.String())
	return page.String(), text, nil
}
