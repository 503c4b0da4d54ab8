package mailer

import (
	"html/template"
	"strings"
)

var invitationTmpl = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Join {{.TenantName}} on Isolate</title>
</head>
<body style="margin:0;padding:0;background:#0f0f0f;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;">
  <div style="max-width:600px;margin:40px auto;background:#ffffff;border-radius:16px;overflow:hidden;">
    <div style="background:#1a1a1a;padding:32px;text-align:center;">
      <h1 style="color:#ffffff;margin:0;font-size:28px;">Isolate</h1>
      <p style="color:#9ca3af;margin:8px 0 0 0;font-size:13px;">Secure Notes</p>
    </div>
    <div style="padding:40px 32px;">
      <h2 style="color:#1a1a1a;margin:0 0 12px 0;">You're Invited!</h2>
      <p style="color:#4b5563;line-height:1.6;">
        <strong>{{.SenderName}}</strong> has invited you to join
        <strong>{{.TenantName}}</strong> on Isolate. Start creating secure
        notes and collaborating with your team.
      </p>
      <div style="text-align:center;margin:32px 0;">
        <a href="{{.Link}}" style="display:inline-block;background:#1f2937;color:#ffffff;text-decoration:none;font-weight:600;padding:14px 28px;border-radius:10px;">
          Accept Invitation
        </a>
      </div>
      <p style="color:#6b7280;font-size:14px;">
        If the button above doesn't work, copy and paste this link into your
        browser:<br><span style="word-break:break-all;color:#3b82f6;">{{.Link}}</span>
      </p>
    </div>
    <div style="background:#f8fafc;padding:24px 32px;border-top:1px solid #e2e8f0;">
      <p style="color:#9ca3af;font-size:12px;margin:0;">
        If you didn't expect this invitation, you can safely ignore this
        email.
      </p>
    </div>
  </div>
</body>
</html>`))

func renderInvitation(email InvitationEmail) (string, error) {
	var b strings.Builder
	if err := invitationTmpl.Execute(&b, email); err != nil {
		return "", err
	}
	return b.String(), nil
}
