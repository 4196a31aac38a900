package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
)

const verificationSubject = "Verify Your HomeSell Pro Account"

var verificationTemplate = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Verify your email</title>
</head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background: #10b981; padding: 30px; border-radius: 10px; text-align: center;">
        <h1 style="color: white; margin: 0;">Welcome to HomeSell Pro!</h1>
    </div>
    <div style="padding: 30px; background: #f9fafb;">
        <h2 style="color: #374151;">Hi {{.Username}},</h2>
        <p>Thank you for creating your HomeSell Pro account! To complete your registration, please verify your email address by clicking the button below.</p>
        <p style="text-align: center; margin: 30px 0;">
            <a href="{{.Link}}" style="background: #10b981; color: white; padding: 15px 30px; text-decoration: none; border-radius: 8px;">Verify Email Address</a>
        </p>
        <p>If the button doesn't work, copy and paste this link into your browser:</p>
        <p style="word-break: break-all;">{{.Link}}</p>
        <p style="color: #9ca3af; font-size: 12px;">This verification link will expire in {{.ValidFor}}. If you didn't create this account, you can safely ignore this email.</p>
    </div>
    <p style="color: #9ca3af; font-size: 12px; text-align: center;">&copy; {{.Year}} HomeSell Pro</p>
</body>
</html>
`))

// Verification renders and sends the email-verification message.
type Verification struct {
	sender      Sender
	frontendURL string
	validFor    time.Duration
}

func NewVerification(sender Sender, frontendURL string, validFor time.Duration) *Verification {
	return &Verification{
		sender:      sender,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		validFor:    validFor,
	}
}

func (v *Verification) Link(token string) string {
	return v.frontendURL + "/verify-email?token=" + url.QueryEscape(token)
}

func (v *Verification) Render(username, token string, now time.Time) (string, error) {
	data := struct {
		Username string
		Link     string
		ValidFor string
		Year     int
	}{
		Username: username,
		Link:     v.Link(token),
		ValidFor: humanDuration(v.validFor),
		Year:     now.Year(),
	}
	var body bytes.Buffer
	if err := verificationTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return body.String(), nil
}

func (v *Verification) SendVerification(ctx context.Context, to, username, token string) error {
	body, err := v.Render(username, token, time.Now())
	if err != nil {
		return err
	}
	return v.sender.Send(ctx, to, verificationSubject, body)
}

func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}
