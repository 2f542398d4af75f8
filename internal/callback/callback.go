// Package callback issues one-time callback URLs and handles their invocation.
package callback

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/repo"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/evaluator"
	"github.com/Chative-core-poc-v1/actionserver/internal/store"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

var (
	ErrUnknown = errors.New("callback identifier is unknown or already used")
	ErrExpired = errors.New("callback identifier expired")
)

type Service struct {
	configs *repo.Configs
	store   store.Store
	eval    evaluator.Evaluator
	baseURL string
	now     func() time.Time
}

func NewService(configs *repo.Configs, eval evaluator.Evaluator, baseURL string) *Service {
	return &Service{
		configs: configs,
		store:   configs.Store(),
		eval:    eval,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// Create stores a fresh callback bound to metadata and returns it.
func (s *Service) Create(ctx context.Context, bot, actionName, callbackName, senderID string, metadata map[string]any) (*model.CallbackData, error) {
	var cfg model.CallbackConfig
	if err := s.configs.LoadFrom(ctx, model.CollectionCallbackConfig, bot, callbackName, &cfg); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	now := s.now().UTC()
	data := &model.CallbackData{
		Bot:         bot,
		ActionName:  actionName,
		Callback:    callbackName,
		Identifier:  id,
		SenderID:    senderID,
		CallbackURL: s.baseURL + "/" + id,
		Metadata:    metadata,
		IsValid:     true,
		Timestamp:   now,
	}
	if cfg.ExpireIn > 0 {
		exp := now.Add(time.Duration(cfg.ExpireIn) * time.Second)
		data.ExpiresAt = &exp
	}
	if _, err := s.store.Insert(ctx, model.CollectionCallbackData, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Handle runs the callback script against the received request and
// invalidates the identifier.
func (s *Service) Handle(ctx context.Context, identifier string, request map[string]any) (any, error) {
	var data model.CallbackData
	err := s.store.FindOne(ctx, model.CollectionCallbackData, bson.M{"identifier": identifier, "is_valid": true}, &data)
	if errors.Is(err, errx.ErrNotFound) {
		return nil, errx.E(errx.KindConfigNotFound, ErrUnknown.Error(), ErrUnknown)
	}
	if err != nil {
		return nil, err
	}

	entry := &model.CallbackLog{
		Bot:        data.Bot,
		Identifier: identifier,
		Callback:   data.Callback,
		Request:    request,
		Status:     model.StatusFailure,
	}
	defer func() {
		entry.Timestamp = s.now().UTC()
		if _, err := s.store.Insert(context.WithoutCancel(ctx), model.CollectionCallbackLog, entry); err != nil {
			logx.Error().Err(err).Str("bot", data.Bot).Str("identifier", identifier).Msg("failed to write callback log")
		}
	}()

	if data.ExpiresAt != nil && s.now().After(*data.ExpiresAt) {
		entry.Exception = ErrExpired.Error()
		return nil, errx.E(errx.KindConfigNotFound, ErrExpired.Error(), ErrExpired)
	}

	var cfg model.CallbackConfig
	if err := s.configs.LoadFrom(ctx, model.CollectionCallbackConfig, data.Bot, data.Callback, &cfg); err != nil {
		entry.Exception = err.Error()
		return nil, err
	}
	res, err := s.eval.Evaluate(ctx, cfg.PyscriptCode, map[string]any{
		"req_body":     request,
		"metadata":     data.Metadata,
		"bot":          data.Bot,
		"sender_id":    data.SenderID,
		"identifier":   identifier,
		"callback_url": data.CallbackURL,
	})
	if err != nil {
		entry.Exception = err.Error()
		return nil, err
	}

	if err := s.store.Update(ctx, model.CollectionCallbackData, bson.M{"identifier": identifier}, bson.M{"is_valid": false}, false); err != nil {
		logx.Warn().Err(err).Str("identifier", identifier).Msg("failed to invalidate callback")
	}
	entry.Status = model.StatusSuccess
	entry.Response = res.BotResponse
	return res.BotResponse, nil
}
