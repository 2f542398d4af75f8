package actions

import (
	"context"
	"maps"
	"strings"

	"github.com/cloudwego/eino/schema"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/params"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/response"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/tracker"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/llm"
	"github.com/Chative-core-poc-v1/actionserver/internal/store"
	"github.com/Chative-core-poc-v1/actionserver/internal/vectordb"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

// Prompt types and sources.
const (
	promptSystem = "system"

	promptStatic     = "static"
	promptHistory    = "history"
	promptBotContent = "bot_content"
	promptSlot       = "slot"
	promptCrud       = "crud"

	questionFromSlot = "from_slot"

	defaultHistoryTurns  = 5
	defaultTopResults    = 10
	defaultSimilarity    = 0.70
	defaultContentSource = "default"
	maxCrudResults       = 10
)

func (d *Deps) execPrompt(ctx context.Context, inv *invocation) error {
	var cfg model.PromptConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	inv.failWith(cfg.FailureMessage)
	inv.dispatch = cfg.DispatchResponse

	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	question := userQuestion(cfg.UserQuestion, tc)
	msgs, sources, err := d.promptMessages(ctx, inv, tc, &cfg, question)
	if err != nil {
		return err
	}
	inv.log.Request = map[string]any{"question": question, "messages": messageLog(msgs)}
	inv.extra("prompt_sources", sources)

	if d.LLM == nil {
		return errx.Ef(errx.KindIntegrationFailure, "no llm configured")
	}
	hp := cfg.Hyperparameters
	completion, err := d.LLM.Chat(ctx, llm.ChatRequest{
		Model:       hp.Model,
		Temperature: hp.Temperature,
		MaxTokens:   hp.MaxTokens,
		TopP:        hp.TopP,
		Messages:    msgs,
	})
	if err != nil {
		return errx.E(errx.KindUpstreamFailure, "llm call failed", err)
	}
	inv.extra("llm_usage", completion.UsageLog())
	inv.log.Response = completion.Content

	if len(cfg.SetSlots) > 0 {
		in := response.Input{Data: response.AsJSON(completion.Content), Context: tc.Map()}
		maps.Copy(inv.slots, d.Responses.Slots(ctx, cfg.SetSlots, in))
	}
	inv.response = completion.Content
	return nil
}

func userQuestion(q model.UserQuestion, tc *tracker.Context) string {
	if q.Type == questionFromSlot {
		return httpx.Stringify(tc.Slots[q.Value])
	}
	return params.UserMessage(tc)
}

// promptMessages orders system prompts, then history, then a single user
// message carrying every context block and the question.
func (d *Deps) promptMessages(ctx context.Context, inv *invocation, tc *tracker.Context, cfg *model.PromptConfig, question string) ([]*schema.Message, map[string]any, error) {
	var (
		system  []*schema.Message
		history []*schema.Message
		blocks  []string
		sources = make(map[string]any)
	)
	for _, p := range cfg.Prompts {
		if !p.IsEnabled {
			continue
		}
		switch p.Source {
		case promptStatic, "":
			if p.Type == promptSystem {
				system = append(system, schema.SystemMessage(p.Data))
				continue
			}
			blocks = append(blocks, block(p.Name, p.Data, p.Instructions))
		case promptHistory:
			n := p.NumHistoryTurns
			if n <= 0 {
				n = cfg.NumBotResponses
			}
			if n <= 0 {
				n = defaultHistoryTurns
			}
			history = llm.History(tc.ChatLog, n)
			if last := len(history) - 1; last >= 0 && history[last].Role == schema.User && history[last].Content == question {
				history = history[:last]
			}
			sources[p.Name] = len(history)
		case promptSlot:
			blocks = append(blocks, block(p.Name, httpx.Stringify(tc.Slots[p.Data]), p.Instructions))
		case promptBotContent:
			text, hits, err := d.botContent(ctx, inv, p, question)
			if err != nil {
				return nil, nil, err
			}
			sources[p.Name] = hits
			if text != "" {
				blocks = append(blocks, block(p.Name, text, p.Instructions))
			}
		case promptCrud:
			text, hits, err := d.crudContent(ctx, inv, tc, p)
			if err != nil {
				return nil, nil, err
			}
			sources[p.Name] = hits
			if text != "" {
				blocks = append(blocks, block(p.Name, text, p.Instructions))
			}
		default:
			return nil, nil, errx.Ef(errx.KindCompositionError, "unsupported prompt source %q", p.Source)
		}
	}

	user := question
	if len(blocks) > 0 {
		user = strings.Join(blocks, "\n\n") + "\n\nQ: " + question + "\nA:"
	}
	msgs := make([]*schema.Message, 0, len(system)+len(history)+1)
	msgs = append(msgs, system...)
	msgs = append(msgs, history...)
	msgs = append(msgs, schema.UserMessage(user))
	return msgs, sources, nil
}

func block(name, data, instructions string) string {
	var b strings.Builder
	if name != "" {
		b.WriteString(name)
		b.WriteString(":\n")
	}
	b.WriteString(data)
	if instructions != "" {
		b.WriteString("\n")
		b.WriteString(instructions)
	}
	return b.String()
}

func (d *Deps) botContent(ctx context.Context, inv *invocation, p model.LLMPrompt, question string) (string, int, error) {
	if d.VectorDB == nil {
		return "", 0, errx.Ef(errx.KindIntegrationFailure, "no vector db configured")
	}
	top, threshold := defaultTopResults, defaultSimilarity
	if s := p.Similarity; s != nil {
		if s.TopResults > 0 {
			top = s.TopResults
		}
		if s.SimilarityThreshold > 0 {
			threshold = s.SimilarityThreshold
		}
	}
	collection := p.Data
	if collection == "" {
		collection = defaultContentSource
	}
	db, err := d.VectorDB(vectordb.TypeQdrant)
	if err != nil {
		return "", 0, err
	}
	points, err := vectordb.NewSearcher(db, d.Embedder).Similar(ctx, vectordb.CollectionName(inv.bot, collection), question, top, threshold)
	if err != nil {
		return "", 0, err
	}
	lines := make([]string, 0, len(points))
	for _, pt := range points {
		if c, ok := pt.Payload["content"].(string); ok {
			lines = append(lines, c)
			continue
		}
		lines = append(lines, httpx.Stringify(pt.Payload))
	}
	return strings.Join(lines, "\n"), len(points), nil
}

// crudContent queries CollectionData; the query is a literal object or
// the name of a slot holding one.
func (d *Deps) crudContent(ctx context.Context, inv *invocation, tc *tracker.Context, p model.LLMPrompt) (string, int, error) {
	c := p.Crud
	if c == nil {
		return "", 0, errx.Ef(errx.KindCompositionError, "crud prompt %q has no crud_config", p.Name)
	}
	limit := c.ResultLimit
	if limit == 0 {
		limit = maxCrudResults
	}
	limit = clampInt(limit, 1, maxCrudResults)

	query := c.Query
	if c.QuerySource == promptSlot {
		name, _ := c.Query.(string)
		query = tc.Slots[name]
	}
	fields, err := queryFields(query)
	if err != nil {
		return "", 0, err
	}

	filter := store.Active(inv.bot)
	if len(c.Collections) > 0 {
		filter["collection_name"] = bson.M{"$in": c.Collections}
	}
	for k, v := range fields {
		filter["data."+k] = v
	}
	var docs []model.CollectionData
	if err := d.Configs.Store().Find(ctx, model.CollectionCollectionData, filter, store.FindOptions{Limit: int64(limit)}, &docs); err != nil {
		return "", 0, err
	}
	lines := make([]string, 0, len(docs))
	for _, doc := range docs {
		lines = append(lines, httpx.Stringify(doc.Data))
	}
	return strings.Join(lines, "\n"), len(docs), nil
}

func queryFields(v any) (map[string]any, error) {
	switch q := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return q, nil
	case bson.M:
		return q, nil
	case bson.D:
		return q.Map(), nil
	case string:
		if strings.TrimSpace(q) == "" {
			return nil, nil
		}
		var out map[string]any
		if err := httpx.Unmarshal([]byte(q), &out); err != nil {
			return nil, errx.E(errx.KindCompositionError, "crud query is not a JSON object", err)
		}
		return out, nil
	default:
		return nil, errx.Ef(errx.KindCompositionError, "unsupported crud query %T", v)
	}
}

func messageLog(msgs []*schema.Message) []map[string]any {
	out := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, map[string]any{"role": string(m.Role), "content": m.Content})
	}
	return out
}
