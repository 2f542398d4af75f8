package actions

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/vectordb"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

const (
	nluFallbackIntent     = "nlu_fallback"
	trainingDataEmbedding = "training_examples"
)

// execTwoStageFallback suggests alternative intents as buttons, or utters
// the NLU fallback template when nothing qualifies.
func (d *Deps) execTwoStageFallback(ctx context.Context, inv *invocation) error {
	inv.dispatch = false
	inv.mirror = false

	var cfg model.TwoStageFallbackConfig
	if err := inv.load(ctx, &cfg); err != nil {
		inv.dispatcher.UtterTemplate(model.NLUFallbackTemplate)
		inv.response = model.NLUFallbackTemplate
		return err
	}

	var buttons []model.Button
	if rec := cfg.TextRecommendations; rec != nil && rec.Count > 0 {
		var (
			suggested []model.Button
			err       error
		)
		if rec.UseIntentRanking {
			suggested, err = d.rankedSuggestions(ctx, inv, rec.Count)
		} else {
			suggested, err = d.similarSuggestions(ctx, inv, rec.Count)
		}
		if err != nil {
			inv.logger.Warn().Err(err).Msg("failed to build fallback suggestions")
		}
		buttons = append(buttons, suggested...)
	}

	latest := inv.tracker.LatestMessage.Text
	for _, rule := range cfg.TriggerRules {
		payload, _ := httpx.Marshal(map[string]any{model.UserMessageEntity: latest})
		buttons = append(buttons, model.Button{
			Title:   rule.Text,
			Payload: "/" + rule.Payload + string(payload),
		})
	}

	if len(buttons) == 0 {
		inv.dispatcher.UtterTemplate(model.NLUFallbackTemplate)
		inv.response = model.NLUFallbackTemplate
		return nil
	}
	inv.dispatcher.UtterButtons(cfg.FallbackMessage, buttons)
	inv.response = buttons
	return nil
}

// rankedSuggestions takes the top intents from the NLU ranking and shows
// one training example of each.
func (d *Deps) rankedSuggestions(ctx context.Context, inv *invocation, count int) ([]model.Button, error) {
	top := inv.tracker.IntentOfLatestMessage()
	out := make([]model.Button, 0, count)
	for _, intent := range inv.tracker.LatestMessage.IntentRanking {
		if len(out) == count {
			break
		}
		if intent.Name == nluFallbackIntent || intent.Name == top || intent.Name == "" {
			continue
		}
		var examples []model.TrainingExample
		if err := d.Configs.FindAll(ctx, model.CollectionTrainingExamples, inv.bot, bson.M{"intent": intent.Name}, &examples); err != nil {
			return out, err
		}
		if len(examples) == 0 {
			continue
		}
		out = append(out, model.Button{Title: examples[0].Text, Payload: examples[0].Text})
	}
	return out, nil
}

// similarSuggestions searches embedded training examples for the user text.
func (d *Deps) similarSuggestions(ctx context.Context, inv *invocation, count int) ([]model.Button, error) {
	if d.VectorDB == nil {
		return nil, nil
	}
	db, err := d.VectorDB(vectordb.TypeQdrant)
	if err != nil {
		return nil, err
	}
	points, err := vectordb.NewSearcher(db, d.Embedder).Similar(ctx,
		vectordb.CollectionName(inv.bot, trainingDataEmbedding), inv.tracker.LatestMessage.Text, count, 0)
	if err != nil {
		return nil, err
	}
	out := make([]model.Button, 0, len(points))
	for _, p := range points {
		text := httpx.Stringify(p.Payload["text"])
		if text == "" {
			continue
		}
		out = append(out, model.Button{Title: text, Payload: text})
	}
	return out, nil
}
