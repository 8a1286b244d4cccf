package deliver

import (
	"fmt"
	"html"

	"github.com/vctrpage/vctr/internal/email"
)

// issueEmail builds the per-recipient message for an issue. Content is
// individual because every recipient gets their own signed unsubscribe link.
func (d *Deliverer) issueEmail(to string, issue *Issue) email.Message {
	unsubURL := d.Signer.SignedURL(d.Config.Newsletter.BaseURL, to)

	cta := "Leer artículo completo"
	lead := "Lee el artículo completo:"
	if issue.External {
		cta = "Link"
		lead = "Enlace:"
	}

	title := html.EscapeString(issue.Article.Title)

	img := ""
	if issue.ImageURL != "" {
		img = fmt.Sprintf(`<p style="margin: 24px 0 0 0">
<img src="%s" alt="%s" style="display:block;width:100%%;height:200px;object-fit:cover;object-position:center;border-radius:6px" />
</p>`, issue.ImageURL, title)
	}

	body := fmt.Sprintf(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>%[1]s</title>
</head>
<body style="margin:0;padding:0;background:#f5f5f5;font-family: system-ui, -apple-system, Segoe UI, Roboto, Helvetica, Arial, sans-serif; line-height:1.5; color:#111;">
<table role="presentation" width="100%%" cellspacing="0" cellpadding="0" style="background:#f5f5f5;padding:24px 0;">
<tr><td align="center">
<table role="presentation" width="100%%" cellspacing="0" cellpadding="0" style="max-width:500px;background:#ffffff;border-radius:12px;overflow:hidden;border:1px solid #e5e5e5;">
<tr><td style="padding:24px;">
<h1 style="margin: 0;font-size:22px;line-height:1.3;color:#111827;">%[1]s</h1>
%[2]s
</td></tr>
<tr><td style="padding:0 24px 24px 24px;">
<p style="margin:0;"><a href="%[3]s" style="font-size:16px;background:#111;color:#fff;padding:8px 12px;border-radius:6px;text-decoration:none;display:inline-block;">%[4]s</a></p>
%[5]s
<p style="margin:24px 0 0 0;font-size:13px;color:#4b5563;"><a href="%[3]s" style="color:#111827;">%[3]s</a></p>
</td></tr>
<tr><td style="padding: 10px 0 34px 0; text-align: center">
<a href="%[6]s" aria-label="%[7]s" style="font-family:Georgia, 'Times New Roman', Times, serif;font-variant:small-caps;font-weight:400;font-size:32px;color:#111827;text-decoration:none;">%[7]s</a>
</td></tr>
</table>
<table role="presentation" width="100%%" cellspacing="0" cellpadding="0" style="background:#f5f5f5;padding-top:12px">
<tr><td align="center" style="padding: 0 24px 24px 24px">
<p style="margin:0;font-size:11px;color:#858c9a;text-align:center;">Recibes este email porque te suscribiste a %[8]s.</p>
<p style="margin:0;font-size:11px;color:#858c9a;text-align:center;">Puedes darte de baja <a href="%[9]s" style="color: #858c9a">aquí</a>.</p>
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`,
		title,
		issue.FirstParagraph,
		issue.URL,
		cta,
		img,
		d.Config.Site.Origin,
		html.EscapeString(d.Config.Site.OwnerName),
		html.EscapeString(d.Config.Site.SiteName),
		unsubURL,
	)

	text := fmt.Sprintf(`%s

%s
%s

Si no quieres recibir más emails, puedes darte de baja aquí:
%s
`, issue.Article.Title, lead, issue.URL, unsubURL)

	return email.Message{
		To:      to,
		Subject: issue.Subject,
		HTML:    body,
		Text:    text,
		Tags:    map[string]string{"list": "newsletter", "type": "issue"},
	}
}
