// Package actions implements every action type and the envelope they share.
package actions

import (
	"time"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/audit"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/keyvault"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/params"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/registry"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/repo"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/request"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/response"
	"github.com/Chative-core-poc-v1/actionserver/internal/callback"
	"github.com/Chative-core-poc-v1/actionserver/internal/evaluator"
	"github.com/Chative-core-poc-v1/actionserver/internal/integrations"
	"github.com/Chative-core-poc-v1/actionserver/internal/llm"
	"github.com/Chative-core-poc-v1/actionserver/internal/scheduler"
	"github.com/Chative-core-poc-v1/actionserver/internal/vectordb"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
	"github.com/Chative-core-poc-v1/actionserver/pkg/mailer"
)

// Deps are the collaborators shared by all action instances.
type Deps struct {
	Configs   *repo.Configs
	Vault     *keyvault.Vault
	Params    *params.Resolver
	Requests  *request.Composer
	Responses *response.Composer
	Eval      evaluator.Evaluator
	Audit     audit.Writer
	Registry  *registry.Registry

	// HTTP performs action requests exactly once; Events talks to the
	// event server with retries.
	HTTP   *httpx.Client
	Events *httpx.Client

	Mailer    mailer.Sender
	Search    *integrations.Search
	Jira      *integrations.Jira
	Zendesk   *integrations.Zendesk
	Pipedrive *integrations.Pipedrive
	Hubspot   *integrations.Hubspot
	Razorpay  *integrations.Razorpay
	WhatsApp  *integrations.WhatsApp

	VectorDB func(dbType string) (vectordb.DB, error)
	Embedder vectordb.Embedder
	LLM      llm.Chatter

	Scheduler      *scheduler.Scheduler
	EventServerURL string
	Callbacks      *callback.Service

	Now func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Register binds every action type to its implementation.
func Register(r *registry.Registry, d *Deps) {
	d.Registry = r
	bodies := map[model.ActionType]body{
		model.ActionHTTP:             d.execHTTP,
		model.ActionSlotSet:          d.execSlotSet,
		model.ActionFormValidation:   d.execFormValidation,
		model.ActionEmail:            d.execEmail,
		model.ActionGoogleSearch:     d.execGoogleSearch,
		model.ActionWebSearch:        d.execWebSearch,
		model.ActionJira:             d.execJira,
		model.ActionZendesk:          d.execZendesk,
		model.ActionPipedriveLeads:   d.execPipedrive,
		model.ActionHubspotForms:     d.execHubspot,
		model.ActionRazorpay:         d.execRazorpay,
		model.ActionTwoStageFallback: d.execTwoStageFallback,
		model.ActionBotResponse:      d.execBotResponse,
		model.ActionPrompt:           d.execPrompt,
		model.ActionPyscript:         d.execPyscript,
		model.ActionDatabase:         d.execDatabase,
		model.ActionCallback:         d.execCallback,
		model.ActionSchedule:         d.execSchedule,
		model.ActionParallel:         d.execParallel,
		model.ActionFlow:             d.execFlow,
	}
	for typ, b := range bodies {
		r.Register(typ, func(bot, name string) registry.Action {
			return &action{deps: d, typ: typ, bot: bot, name: name, body: b}
		})
	}
}
