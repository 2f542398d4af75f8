package cli

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/actions"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/audit"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/keyvault"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/params"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/registry"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/repo"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/request"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/response"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/server"
	"github.com/Chative-core-poc-v1/actionserver/internal/callback"
	"github.com/Chative-core-poc-v1/actionserver/internal/config"
	"github.com/Chative-core-poc-v1/actionserver/internal/dialog"
	"github.com/Chative-core-poc-v1/actionserver/internal/evaluator"
	"github.com/Chative-core-poc-v1/actionserver/internal/integrations"
	"github.com/Chative-core-poc-v1/actionserver/internal/llm"
	"github.com/Chative-core-poc-v1/actionserver/internal/mail"
	"github.com/Chative-core-poc-v1/actionserver/internal/scheduler"
	"github.com/Chative-core-poc-v1/actionserver/internal/store"
	"github.com/Chative-core-poc-v1/actionserver/internal/store/memstore"
	"github.com/Chative-core-poc-v1/actionserver/internal/store/mongostore"
	"github.com/Chative-core-poc-v1/actionserver/internal/vectordb"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
	"github.com/Chative-core-poc-v1/actionserver/pkg/mailer"
)

// Runtime holds every long lived component of the process.
type Runtime struct {
	Config        *config.AppConfig
	Store         store.Store
	Vault         *keyvault.Vault
	Registry      *registry.Registry
	Dispatcher    *server.Dispatcher
	Callbacks     *callback.Service
	Scheduler     *scheduler.Scheduler
	Executor      *scheduler.Executor
	MailScheduler *scheduler.Scheduler
	MailExecutor  *scheduler.Executor
	Mail          *mail.Processor

	closers []func(context.Context) error
}

var indexes = map[string][]mongodriver.IndexModel{
	model.CollectionActions: {
		{Keys: bson.D{{Key: "bot", Value: 1}, {Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	model.CollectionKeyVault: {
		{Keys: bson.D{{Key: "bot", Value: 1}, {Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	model.CollectionActionLogs: {
		{Keys: bson.D{{Key: "bot", Value: 1}, {Key: "timestamp", Value: -1}}},
	},
	model.CollectionCallbackData: {
		{Keys: bson.D{{Key: "identifier", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	model.CollectionMailResponseLog: {
		{Keys: bson.D{{Key: "bot", Value: 1}, {Key: "uid", Value: 1}}},
	},
	model.CollectionScheduledJobs: {
		{Keys: bson.D{{Key: "next_run_time", Value: 1}}},
	},
	model.CollectionMailJobs: {
		{Keys: bson.D{{Key: "next_run_time", Value: 1}}},
	},
}

// Build connects the infrastructure in cfg and assembles the runtime.
func Build(ctx context.Context, cfg *config.AppConfig) (*Runtime, error) {
	rt := &Runtime{Config: cfg}
	if err := rt.openStore(ctx); err != nil {
		return nil, err
	}

	cache, err := rt.openCache(cfg)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	cipher, err := keyvault.NewCipher(cfg.SecretKey)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("init secret cipher: %w", err)
	}

	configs := repo.NewConfigs(rt.Store, cache)
	rt.Vault = keyvault.New(rt.Store, cipher, cache)

	actionHTTP := httpx.New(cfg.RequestTimeout())
	serviceHTTP := httpx.New(cfg.RequestTimeout(), httpx.WithRetry(httpx.DefaultRetry()))
	eval := evaluator.New(serviceHTTP, cfg.Evaluator.URL, cfg.Evaluator.Lambda)
	resolver := params.NewResolver(rt.Vault, cipher)
	engine := dialog.NewClient(serviceHTTP, cfg.Endpoints.ChatServerURL)

	rt.Scheduler = scheduler.New(scheduler.Options{
		Store:       rt.Store,
		Collection:  cfg.Scheduler.Collection,
		MinInterval: cfg.Scheduler.MinCronInterval,
	})
	rt.Callbacks = callback.NewService(configs, eval, cfg.Endpoints.CallbackBaseURL)
	auditWriter := audit.NewStoreWriter(rt.Store)

	deps := &actions.Deps{
		Configs:   configs,
		Vault:     rt.Vault,
		Params:    resolver,
		Requests:  request.New(resolver, eval),
		Responses: response.New(eval),
		Eval:      eval,
		Audit:     auditWriter,
		HTTP:      actionHTTP,
		Events:    serviceHTTP,
		Mailer:    mailer.SMTP{},
		Search:    integrations.NewSearch(actionHTTP, cfg.Search.GoogleSearchURL, cfg.Search.WebSearchURL),
		Jira:      integrations.NewJira(actionHTTP),
		Zendesk:   integrations.NewZendesk(actionHTTP),
		Pipedrive: integrations.NewPipedrive(actionHTTP),
		Hubspot:   integrations.NewHubspot(actionHTTP),
		Razorpay:  integrations.NewRazorpay(actionHTTP),
		WhatsApp:  integrations.NewWhatsApp(actionHTTP, cfg.Endpoints.WhatsAppBSPURL),
		VectorDB: func(dbType string) (vectordb.DB, error) {
			return vectordb.Open(dbType, actionHTTP, cfg.VectorDB.URL, cfg.VectorDB.APIKey)
		},
		Scheduler:      rt.Scheduler,
		EventServerURL: cfg.Endpoints.EventServerURL,
		Callbacks:      rt.Callbacks,
	}
	if cfg.LLM.APIKey != "" {
		client, err := llm.NewFromConfig(ctx, cfg.LLM)
		if err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("init llm client: %w", err)
		}
		deps.LLM = client
		deps.Embedder = llm.NewEmbedderFromConfig(cfg.LLM)
	} else {
		logx.Warn().Msg("LLM_API_KEY is not set; prompt actions will fail")
	}

	rt.Registry = registry.New(configs)
	actions.Register(rt.Registry, deps)
	rt.Dispatcher = server.NewDispatcher(rt.Registry, auditWriter)

	rt.Executor = scheduler.NewExecutor()
	rt.Executor.Register(scheduler.EventPyscript, scheduler.PyscriptHandler(eval))
	rt.Executor.Register(scheduler.EventFlow, scheduler.FlowHandler(engine))

	rt.Mail = mail.NewProcessor(mail.Options{
		Store:   rt.Store,
		Engine:  engine,
		Sender:  mailer.SMTP{},
		Secret:  rt.Vault,
		Workers: cfg.Scheduler.Workers,
	})
	rt.MailScheduler = scheduler.New(scheduler.Options{
		Store:       rt.Store,
		Collection:  cfg.Scheduler.MailCollection,
		MinInterval: cfg.Scheduler.MailMinCronInterval,
	})
	rt.MailExecutor = scheduler.NewExecutor()
	rt.MailExecutor.Register(scheduler.EventMailRead, rt.Mail.Handler())
	return rt, nil
}

// Runner returns a poller over s that executes jobs with exec.
func (rt *Runtime) Runner(s *scheduler.Scheduler, exec *scheduler.Executor) *scheduler.Runner {
	return scheduler.NewRunner(s, exec, scheduler.RunnerOptions{
		Interval: rt.Config.Scheduler.PollInterval,
		Workers:  rt.Config.Scheduler.Workers,
	})
}

// Close releases connections in reverse order of acquisition.
func (rt *Runtime) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			logx.Warn().Err(err).Msg("failed to close resource")
		}
	}
	rt.closers = nil
}

func (rt *Runtime) openStore(ctx context.Context) error {
	cfg := rt.Config
	if !cfg.Mongo.Enabled() {
		logx.Warn().Msg("MONGO_URL is not set; using the in-memory store")
		rt.Store = memstore.New()
		return nil
	}
	client, err := cfg.Mongo.New(ctx)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	rt.closers = append(rt.closers, client.Disconnect)
	st, err := mongostore.New(ctx, mongostore.Options{
		Client:   client,
		Database: cfg.Mongo.Database,
		Timeout:  time.Duration(cfg.Mongo.Timeout) * time.Second,
		Indexes:  indexes,
	})
	if err != nil {
		rt.Close(ctx)
		return err
	}
	rt.Store = st
	logx.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo")
	return nil
}

func (rt *Runtime) openCache(cfg *config.AppConfig) (repo.Cache, error) {
	if !cfg.Redis.Enabled() {
		return repo.NewMemoryCache(cfg.ConfigCacheTTL), nil
	}
	rdb, err := cfg.Redis.New()
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	rt.closers = append(rt.closers, func(context.Context) error { return rdb.Close() })
	logx.Info().Msg("connected to redis")
	return repo.NewRedisCache(rdb, cfg.ConfigCacheTTL), nil
}
