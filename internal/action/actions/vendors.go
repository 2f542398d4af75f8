package actions

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/audit"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/tracker"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/integrations"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

// Keys masked in vendor request bodies.
var vendorSecrets = []string{"api_token", "api_key", "api_secret", "password", "token"}

func (inv *invocation) exchange(ex *integrations.Exchange) {
	if ex == nil {
		return
	}
	inv.log.Request = audit.Mask(ex.Request, vendorSecrets...)
	inv.log.Response = ex.Response
}

func (d *Deps) secret(ctx context.Context, tc *tracker.Context, spec model.ParameterSpec) (string, error) {
	v, _, err := d.Params.Value(ctx, tc, spec)
	if err != nil {
		return "", err
	}
	s := httpx.Stringify(v)
	if s == "" {
		return "", errx.Ef(errx.KindMissingSecret, "%s is not configured", spec.Key)
	}
	return s, nil
}

func (d *Deps) execJira(ctx context.Context, inv *invocation) error {
	var cfg model.JiraConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	token, err := d.secret(ctx, tc, cfg.APIToken)
	if err != nil {
		return err
	}
	inv.log.URL = cfg.URL
	link, ex, err := d.Jira.CreateIssue(ctx, integrations.JiraIssue{
		URL:         cfg.URL,
		UserName:    cfg.UserName,
		APIToken:    token,
		Project:     cfg.Project,
		IssueType:   cfg.IssueType,
		ParentKey:   cfg.ParentKey,
		Summary:     render(cfg.Summary, tc),
		Description: transcript(tc),
	})
	inv.exchange(ex)
	if err != nil {
		return err
	}
	inv.response = fmt.Sprintf("%s: %s", render(cfg.Response, tc), link)
	return nil
}

func (d *Deps) execZendesk(ctx context.Context, inv *invocation) error {
	var cfg model.ZendeskConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	token, err := d.secret(ctx, tc, cfg.APIToken)
	if err != nil {
		return err
	}
	ex, err := d.Zendesk.CreateTicket(ctx, integrations.ZendeskTicket{
		Subdomain: cfg.Subdomain,
		UserName:  cfg.UserName,
		APIToken:  token,
		Subject:   render(cfg.Subject, tc),
		Comment:   strings.ReplaceAll(transcript(tc), "\n", "<br/>"),
		Tags:      []string{inv.bot},
	})
	inv.exchange(ex)
	if err != nil {
		return err
	}
	inv.response = render(cfg.Response, tc)
	return nil
}

// execPipedrive maps pipedrive fields to slot values via cfg.Metadata.
func (d *Deps) execPipedrive(ctx context.Context, inv *invocation) error {
	var cfg model.PipedriveConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	token, err := d.secret(ctx, tc, cfg.APIToken)
	if err != nil {
		return err
	}
	meta := make(map[string]string, len(cfg.Metadata)+1)
	for field, slot := range cfg.Metadata {
		if v := tc.Slots[slot]; v != nil {
			meta[field] = httpx.Stringify(v)
		}
	}
	if t := transcript(tc); t != "" {
		meta["conversation"] = t
	}
	ex, err := d.Pipedrive.CreateLead(ctx, integrations.PipedriveLead{
		Domain:   cfg.Domain,
		APIToken: token,
		Title:    render(cfg.Title, tc),
		Metadata: meta,
	})
	inv.exchange(ex)
	if err != nil {
		return err
	}
	inv.response = render(cfg.Response, tc)
	return nil
}

func (d *Deps) execHubspot(ctx context.Context, inv *invocation) error {
	var cfg model.HubspotFormsConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	fields, _, err := d.Params.Resolve(ctx, tc, cfg.Fields)
	if err != nil {
		return err
	}
	ex, err := d.Hubspot.SubmitForm(ctx, cfg.PortalID, cfg.FormGUID, fields)
	inv.exchange(ex)
	if err != nil {
		return err
	}
	inv.response = render(cfg.Response, tc)
	return nil
}

// execRazorpay creates a payment link; amount is in the currency's major unit.
func (d *Deps) execRazorpay(ctx context.Context, inv *invocation) error {
	var cfg model.RazorpayConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	key, err := d.secret(ctx, tc, cfg.APIKey)
	if err != nil {
		return err
	}
	secret, err := d.secret(ctx, tc, cfg.APISecret)
	if err != nil {
		return err
	}
	rawAmount, _, err := d.Params.Value(ctx, tc, cfg.Amount)
	if err != nil {
		return err
	}
	amount, ok := toFloat(rawAmount)
	if !ok || amount <= 0 {
		return errx.Ef(errx.KindCompositionError, "invalid amount %v", rawAmount)
	}
	currency, _, err := d.Params.Value(ctx, tc, cfg.Currency)
	if err != nil {
		return err
	}
	optional := func(spec *model.ParameterSpec) (string, error) {
		if spec == nil {
			return "", nil
		}
		v, _, err := d.Params.Value(ctx, tc, *spec)
		return httpx.Stringify(v), err
	}
	name, err := optional(cfg.Username)
	if err != nil {
		return err
	}
	email, err := optional(cfg.Email)
	if err != nil {
		return err
	}
	contact, err := optional(cfg.Contact)
	if err != nil {
		return err
	}
	notes, _, err := d.Params.Resolve(ctx, tc, cfg.Notes)
	if err != nil {
		return err
	}

	link, ex, err := d.Razorpay.CreatePaymentLink(ctx, integrations.PaymentLink{
		APIKey:    key,
		APISecret: secret,
		Amount:    int64(math.Round(amount * 100)),
		Currency:  httpx.Stringify(currency),
		Name:      name,
		Email:     email,
		Contact:   contact,
		Notes:     notes,
	})
	inv.exchange(ex)
	if err != nil {
		return err
	}
	inv.response = link
	return nil
}
