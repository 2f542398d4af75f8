package actions

import (
	"context"
	"html/template"
	"strings"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/tracker"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

var emailBody = template.Must(template.New("email").Parse(`<html><body>
{{- if .Text }}<p>{{ .Text }}</p>{{ end }}
{{- if .Turns }}<table>
{{- range .Turns }}<tr><td><b>{{ .Role }}</b></td><td>{{ .Text }}</td></tr>{{ end }}
</table>{{ end }}
</body></html>`))

type emailTurn struct {
	Role string
	Text string
}

func (d *Deps) execEmail(ctx context.Context, inv *invocation) error {
	var cfg model.EmailActionConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	inv.failWith(cfg.FailureResponse)
	inv.dispatch = cfg.Dispatch

	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	html, err := d.emailHTML(ctx, tc, &cfg)
	if err != nil {
		return err
	}
	server, msg, reqLog, err := d.Requests.Email(ctx, tc, &cfg, html)
	if err != nil {
		return err
	}
	inv.log.URL = reqLog.URL
	inv.log.Request = reqLog.Body

	if d.Mailer == nil {
		return errx.Ef(errx.KindIntegrationFailure, "no mailer configured")
	}
	if err := d.Mailer.Send(ctx, *server, *msg); err != nil {
		return errx.E(errx.KindIntegrationFailure, "failed to send email", err)
	}
	inv.response = cfg.Response
	return nil
}

// emailHTML renders custom_text when configured, else the conversation.
func (d *Deps) emailHTML(ctx context.Context, tc *tracker.Context, cfg *model.EmailActionConfig) (string, error) {
	data := struct {
		Text  string
		Turns []emailTurn
	}{}
	if cfg.CustomText != nil {
		v, _, err := d.Params.Value(ctx, tc, *cfg.CustomText)
		if err != nil {
			return "", err
		}
		data.Text = httpx.Stringify(v)
	} else {
		for _, turn := range tc.ChatLog {
			for role, text := range turn {
				data.Turns = append(data.Turns, emailTurn{Role: role, Text: httpx.Stringify(text)})
			}
		}
	}
	var b strings.Builder
	if err := emailBody.Execute(&b, data); err != nil {
		return "", errx.E(errx.KindCompositionError, "failed to render email body", err)
	}
	return b.String(), nil
}
