package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

type Kind string

const (
	KindWelcome           Kind = "welcome"
	KindPasswordReset     Kind = "password_reset"
	KindPasswordChanged   Kind = "password_changed"
	KindOrderConfirmation Kind = "order_confirmation"
	KindOrderStatus       Kind = "order_status"
)

type LineItem struct {
	Name     string
	Quantity int
	Price    float64
}

// Data carries the fields the templates read. Unused fields are ignored per kind.
type Data struct {
	Name           string
	Email          string
	ResetLink      string
	ResetTTL       string
	OrderID        string
	TotalAmount    float64
	Items          []LineItem
	Status         string
	TrackingNumber string
}

const layout = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">{{template "body" .}}<br><p>Best regards,<br>The Team</p></div>`

var bodies = map[Kind]struct {
	subject string
	body    string
}{
	KindWelcome: {
		subject: "Welcome to Our Platform!",
		body: `<h2>Welcome to Our Platform, {{.Name}}!</h2>
<p>Your account has been created with the email <strong>{{.Email}}</strong>.</p>
<p>You can now log in and start exploring.</p>`,
	},
	KindPasswordReset: {
		subject: "Password Reset Request",
		body: `<h2>Password Reset Request</h2>
<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. Use the link below to proceed:</p>
<p><a href="{{.ResetLink}}">Reset Password</a></p>
<p>This link will expire in {{.ResetTTL}}.</p>
<p>If you didn't request a password reset, please ignore this email.</p>`,
	},
	KindPasswordChanged: {
		subject: "Password Changed Successfully",
		body: `<h2>Password Changed Successfully</h2>
<p>Hi {{.Name}},</p>
<p>Your password has been changed. If you didn't make this change, contact support immediately.</p>`,
	},
	KindOrderConfirmation: {
		subject: "Order Confirmation",
		body: `<h2>Order Confirmation</h2>
<p>Hi {{.Name}},</p>
<p>Thank you for your order! <strong>Order ID:</strong> {{.OrderID}}</p>
<table style="width: 100%; border-collapse: collapse;">
<tr><th align="left">Product</th><th>Quantity</th><th align="right">Price</th></tr>
{{range .Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">${{printf "%.2f" .Price}}</td></tr>
{{end}}</table>
<p><strong>Total: ${{printf "%.2f" .TotalAmount}}</strong></p>`,
	},
	KindOrderStatus: {
		subject: "Order Status Update",
		body: `<h2>Order Status Update</h2>
<p>Hi {{.Name}},</p>
<p>Your order <strong>{{.OrderID}}</strong> is now <strong>{{.Status}}</strong>.</p>
{{if .TrackingNumber}}<p>Tracking number: <strong>{{.TrackingNumber}}</strong></p>{{end}}`,
	},
}

var templates = func() map[Kind]*template.Template {
	out := make(map[Kind]*template.Template, len(bodies))
	for kind, b := range bodies {
		t := template.Must(template.New(string(kind)).Parse(layout))
		out[kind] = template.Must(t.New("body").Parse(b.body))
	}
	return out
}()

// Render returns the subject and HTML body for kind.
func Render(kind Kind, data Data) (string, string, error) {
	t, ok := templates[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown notification kind %q", kind)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, string(kind), data); err != nil {
		return "", "", fmt.Errorf("failed to render %s email: %w", kind, err)
	}
	return bodies[kind].subject, buf.String(), nil
}
