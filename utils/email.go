package utils

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Mailer sends a single HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func (c EmailConfig) Configured() bool {
	return c.Host != "" && c.Port != "" && c.From != ""
}

// SMTPMailer delivers mail through net/smtp. An unconfigured mailer logs and
// drops messages.
type SMTPMailer struct {
	config EmailConfig
	logger *zap.Logger
}

func NewSMTPMailer(config EmailConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{config: config, logger: logger}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.config.Configured() {
		m.logger.Debug("smtp not configured, dropping email", zap.String("to", to), zap.String("subject", subject))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n",
		m.config.From, to, subject)
	msg := []byte(headers + htmlBody)

	var auth smtp.Auth
	if m.config.Username != "" && m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	addr := m.config.Host + ":" + m.config.Port
	if err := smtp.SendMail(addr, auth, m.config.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// SendAsync sends in a goroutine and logs failures.
func SendAsync(m Mailer, logger *zap.Logger, to, subject, body string) {
	if m == nil {
		return
	}
	go func() {
		if err := m.Send(context.Background(), to, subject, body); err != nil {
			logger.Warn("failed to send email", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		}
	}()
}

func firstName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "there"
	}
	return html.EscapeString(strings.Fields(name)[0])
}

func WelcomeEmail(name string) (subject, body string) {
	subject = "Welcome to ME Gift Packs!"
	body = fmt.Sprintf(`<h2>Welcome to ME Gift Packs, %s!</h2>
<p>Thank you for creating your account. You can now:</p>
<ul>
<li>Browse our corporate gift collections</li>
<li>Build a quote request with custom variants</li>
<li>Track your orders</li>
</ul>
<p>The ME Gift Packs Team</p>`, firstName(name))
	return subject, body
}

func PasswordResetOTPEmail(name, otp string, validMinutes int) (subject, body string) {
	subject = "Your password reset code - ME Gift Packs"
	body = fmt.Sprintf(`<h2>Password Reset Request</h2>
<p>Hi %s,</p>
<p>Use the code below to reset your password:</p>
<p style="font-size:28px;letter-spacing:6px;font-weight:bold;">%s</p>
<p>This code expires in %d minutes.</p>
<p>If you didn't request this, you can safely ignore this email.</p>
<p>The ME Gift Packs Team</p>`, firstName(name), otp, validMinutes)
	return subject, body
}

func OrderConfirmationEmail(name, orderNumber string, itemCount int, total decimal.Decimal) (subject, body string) {
	subject = fmt.Sprintf("Order Received - %s", orderNumber)
	body = fmt.Sprintf(`<h2>Thank you for your order!</h2>
<p>Hi %s,</p>
<p>Your order <strong>%s</strong> with %d item(s) has been received.</p>
<p>Order total: <strong>QAR %s</strong></p>
<p>Our team will contact you to confirm the details.</p>
<p>The ME Gift Packs Team</p>`, firstName(name), html.EscapeString(orderNumber), itemCount, total.StringFixed(2))
	return subject, body
}

func OrderStatusEmail(name, orderNumber, status string) (subject, body string) {
	subject = fmt.Sprintf("Order %s - Status Update", orderNumber)
	body = fmt.Sprintf(`<h2>Order Status Update</h2>
<p>Hi %s,</p>
<p>Your order <strong>%s</strong> status has been updated to: <strong>%s</strong></p>
<p>The ME Gift Packs Team</p>`, firstName(name), html.EscapeString(orderNumber), strings.ReplaceAll(status, "_", " "))
	return subject, body
}

func ContactNotificationEmail(name, email, phone, company, message string) (subject, body string) {
	subject = "New contact message from " + name
	body = fmt.Sprintf(`<h2>New Contact Message</h2>
<p><strong>Name:</strong> %s</p>
<p><strong>Email:</strong> %s</p>
<p><strong>Phone:</strong> %s</p>
<p><strong>Company:</strong> %s</p>
<p>%s</p>`,
		html.EscapeString(name), html.EscapeString(email), html.EscapeString(phone),
		html.EscapeString(company), strings.ReplaceAll(html.EscapeString(message), "\n", "<br>"))
	return subject, body
}

func NewOrderStaffEmail(orderNumber, customerEmail string, isGuest bool, itemCount int, total decimal.Decimal) (subject, body string) {
	kind := "Customer"
	if isGuest {
		kind = "Guest"
	}
	subject = "New order " + orderNumber
	body = fmt.Sprintf(`<h2>New Order</h2>
<p><strong>Order:</strong> %s</p>
<p><strong>%s:</strong> %s</p>
<p>%d item(s), total <strong>QAR %s</strong></p>`,
		html.EscapeString(orderNumber), kind, html.EscapeString(customerEmail), itemCount, total.StringFixed(2))
	return subject, body
}
