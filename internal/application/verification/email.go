package verification

import (
	"context"
	"log/slog"
	"strings"
)

// defaultTemplate renders the code e-mail when no template object is
// available in the bucket.
const defaultTemplate = `<html>
  <body style="font-family: Arial, sans-serif; color: #222;">
    <h2>Hello {{USER_NAME}},</h2>
    <p>Here is your verification code for <strong>{{COMMUNITY_NAME}}</strong>:</p>
    <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{CODE}}</p>
    <p>Enter it on the keypad to complete verification. The code expires in 10 minutes.</p>
    <p>If you did not request this, you can ignore this e-mail.</p>
  </body>
</html>`

func (s *service) renderEmail(ctx context.Context, displayName, communityName, code string) string {
	tmpl := defaultTemplate
	if s.deps.Templates != nil && s.deps.TemplateKey != "" {
		if fetched, err := s.deps.Templates.Get(ctx, s.deps.TemplateKey); err != nil {
			slog.Warn("email template unavailable, using built-in", "key", s.deps.TemplateKey, "err", err)
		} else {
			tmpl = fetched
		}
	}
	return strings.NewReplacer(
		"{{USER_NAME}}", displayName,
		"{{COMMUNITY_NAME}}", communityName,
		"{{CODE}}", code,
	).Replace(tmpl)
}
