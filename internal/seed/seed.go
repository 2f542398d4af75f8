// Package seed loads bot definitions from YAML into the document store.
package seed

import (
	"context"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/store"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

type (
	// File is one bot's seed document.
	File struct {
		Bot              string                   `yaml:"bot"`
		Secrets          map[string]string        `yaml:"secrets"`
		Actions          []Action                 `yaml:"actions"`
		Callbacks        []model.CallbackConfig   `yaml:"callbacks"`
		Collections      []model.CollectionData   `yaml:"collections"`
		TrainingExamples []model.TrainingExample  `yaml:"training_examples"`
		MailChannel      *model.MailChannelConfig `yaml:"mail_channel"`
	}

	// Action is an action record plus its type specific config.
	Action struct {
		Name   string           `yaml:"name"`
		Type   model.ActionType `yaml:"type"`
		Config yaml.Node        `yaml:"config"`
	}

	// SecretWriter stores encrypted secrets and seals secret fields of
	// other documents.
	SecretWriter interface {
		Put(ctx context.Context, bot, key, value string) error
		Encrypt(plain string) (string, error)
	}

	// Summary counts what an import wrote.
	Summary struct {
		Actions   int
		Secrets   int
		Documents int
	}
)

var configTypes = map[model.ActionType]func() any{
	model.ActionHTTP:             func() any { return &model.HTTPActionConfig{} },
	model.ActionSlotSet:          func() any { return &model.SlotSetConfig{} },
	model.ActionFormValidation:   func() any { return &model.FormValidationConfig{} },
	model.ActionEmail:            func() any { return &model.EmailActionConfig{} },
	model.ActionGoogleSearch:     func() any { return &model.GoogleSearchConfig{} },
	model.ActionWebSearch:        func() any { return &model.WebSearchConfig{} },
	model.ActionJira:             func() any { return &model.JiraConfig{} },
	model.ActionZendesk:          func() any { return &model.ZendeskConfig{} },
	model.ActionPipedriveLeads:   func() any { return &model.PipedriveConfig{} },
	model.ActionHubspotForms:     func() any { return &model.HubspotFormsConfig{} },
	model.ActionRazorpay:         func() any { return &model.RazorpayConfig{} },
	model.ActionTwoStageFallback: func() any { return &model.TwoStageFallbackConfig{} },
	model.ActionPrompt:           func() any { return &model.PromptConfig{} },
	model.ActionPyscript:         func() any { return &model.PyscriptConfig{} },
	model.ActionDatabase:         func() any { return &model.DatabaseActionConfig{} },
	model.ActionCallback:         func() any { return &model.CallbackActionConfig{} },
	model.ActionSchedule:         func() any { return &model.ScheduleConfig{} },
	model.ActionParallel:         func() any { return &model.ParallelConfig{} },
	model.ActionFlow:             func() any { return &model.FlowConfig{} },
}

// Decode parses a seed document.
func Decode(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if f.Bot == "" {
		return nil, fmt.Errorf("decode seed: bot is required")
	}
	return &f, nil
}

// Import upserts every entry of f. Existing documents with the same bot and
// name are replaced field by field.
func Import(ctx context.Context, st store.Store, secrets SecretWriter, f *File) (*Summary, error) {
	sum := &Summary{}
	for key, value := range f.Secrets {
		if err := secrets.Put(ctx, f.Bot, key, value); err != nil {
			return sum, fmt.Errorf("store secret %s: %w", key, err)
		}
		sum.Secrets++
	}

	for _, a := range f.Actions {
		if err := importAction(ctx, st, f.Bot, a); err != nil {
			return sum, err
		}
		sum.Actions++
	}

	for _, cb := range f.Callbacks {
		cb.Bot = f.Bot
		if err := upsert(ctx, st, model.CollectionCallbackConfig, bson.M{"bot": f.Bot, "name": cb.Name}, cb, true); err != nil {
			return sum, err
		}
		sum.Documents++
	}
	for _, d := range f.Collections {
		d.Bot, d.Status = f.Bot, true
		if _, err := st.Insert(ctx, model.CollectionCollectionData, d); err != nil {
			return sum, err
		}
		sum.Documents++
	}
	for _, ex := range f.TrainingExamples {
		ex.Bot, ex.Status = f.Bot, true
		if _, err := st.Insert(ctx, model.CollectionTrainingExamples, ex); err != nil {
			return sum, err
		}
		sum.Documents++
	}
	if f.MailChannel != nil {
		mc := *f.MailChannel
		mc.Bot = f.Bot
		if mc.EmailPassword != "" {
			enc, err := secrets.Encrypt(mc.EmailPassword)
			if err != nil {
				return sum, fmt.Errorf("encrypt mail channel password: %w", err)
			}
			mc.EmailPassword = enc
		}
		if err := upsert(ctx, st, model.CollectionMailChannelConfig, bson.M{"bot": f.Bot}, mc, true); err != nil {
			return sum, err
		}
		sum.Documents++
	}

	logx.Info().Str("bot", f.Bot).Int("actions", sum.Actions).Int("secrets", sum.Secrets).
		Int("documents", sum.Documents).Msg("seed imported")
	return sum, nil
}

func importAction(ctx context.Context, st store.Store, bot string, a Action) error {
	if a.Name == "" {
		return errx.Ef(errx.KindCompositionError, "seed action without name")
	}
	newConfig, ok := configTypes[a.Type]
	if !ok {
		return errx.Ef(errx.KindUnsupportedActionType, "%s type action is not supported with action server", a.Type)
	}

	cfg := newConfig()
	var raw map[string]any
	if a.Config.Kind != 0 {
		if err := a.Config.Decode(cfg); err != nil {
			return fmt.Errorf("decode config of %s: %w", a.Name, err)
		}
		if err := a.Config.Decode(&raw); err != nil {
			return fmt.Errorf("decode config of %s: %w", a.Name, err)
		}
	}
	_, hasStatus := raw["status"]

	filter := bson.M{"bot": bot, "name": a.Name}
	if fv, ok := cfg.(*model.FormValidationConfig); ok {
		filter["slot"] = fv.SlotName
	}
	if err := upsert(ctx, st, model.ConfigCollection[a.Type], filter, cfg, !hasStatus); err != nil {
		return err
	}
	return upsert(ctx, st, model.CollectionActions, bson.M{"bot": bot, "name": a.Name},
		model.ActionRecord{Bot: bot, Name: a.Name, Type: a.Type, Status: true}, false)
}

// upsert writes doc under filter; forceActive marks it live.
func upsert(ctx context.Context, st store.Store, collection string, filter bson.M, doc any, forceActive bool) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", collection, err)
	}
	var set bson.M
	if err := bson.Unmarshal(raw, &set); err != nil {
		return fmt.Errorf("encode %s document: %w", collection, err)
	}
	for k, v := range filter {
		set[k] = v
	}
	if forceActive {
		set["status"] = true
	}
	return st.Update(ctx, collection, filter, set, true)
}
