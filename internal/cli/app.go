package cli

import (
	"os"

	"golang.org/x/time/rate"

	"github.com/codewithmide/token-creator/internal/config"
	"github.com/codewithmide/token-creator/internal/db"
	"github.com/codewithmide/token-creator/internal/ledger"
	"github.com/codewithmide/token-creator/internal/listener"
	"github.com/codewithmide/token-creator/internal/metadata"
	"github.com/codewithmide/token-creator/internal/services"
	"github.com/codewithmide/token-creator/utils"
)

// App is everything a command needs, built from config.
type App struct {
	Cfg     *config.Config
	Log     *utils.Logger
	Ledger  *ledger.Client
	Orch    *services.Orchestrator
	Store   *db.Store // nil when db.driver is empty
	watcher *listener.Watcher
}

// NewApp loads config and wires the ledger connection, confirmation,
// discovery and history store.
func NewApp(opts *RootOptions) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	log := utils.NewLogger(os.Stderr, cfg.Log.Format, level)
	utils.SetDefault(log)
	services.RegisterMetrics()

	// 限流只在 ledger 客户端做一次，engine 和 discovery 的 RPC 都经过它
	var limiter *rate.Limiter
	if cfg.Solana.RPCRateLimit > 0 {
		burst := int(cfg.Solana.RPCRateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Solana.RPCRateLimit), burst)
	}

	client, err := ledger.New(cfg.Solana.RPCURL,
		ledger.WithCommitment(cfg.Solana.Commitment),
		ledger.WithSkipPreflight(cfg.Solana.SkipPreflight),
		ledger.WithLimiter(limiter),
		ledger.WithLogger(log.With("component", "ledger")),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "ledger", err)
	}

	app := &App{Cfg: cfg, Log: log, Ledger: client}

	engineOpts := []services.EngineOption{
		services.WithConfirmTimeout(cfg.Solana.ConfirmTimeout),
		services.WithPollInterval(cfg.Solana.PollInterval),
		services.WithEngineLogger(log.With("component", "engine")),
	}
	if cfg.Solana.WSURL != "" {
		app.watcher = listener.NewWatcher(cfg.Solana.WSURL, cfg.Solana.Commitment, client, log.With("component", "watcher"))
		engineOpts = append(engineOpts, services.WithWatcher(app.watcher))
	}
	engine := services.NewEngine(client, engineOpts...)

	var resolverOpts []metadata.ResolverOption
	if !cfg.App.OffChainMetadata {
		resolverOpts = append(resolverOpts, metadata.WithoutOffChain())
	}
	if cfg.App.MetadataPrivateTargets {
		resolverOpts = append(resolverOpts, metadata.WithPrivateTargets())
	}
	resolver := metadata.NewResolver(client, cfg.App.MetadataTimeout, log.With("component", "metadata"), resolverOpts...)
	discovery := services.NewDiscovery(client, resolver, cfg.App.DiscoveryConcurrency, log.With("component", "discovery"))

	orchOpts := []services.OrchestratorOption{services.WithLogger(log)}
	if cfg.DB.Driver != "" {
		conn, err := db.Open(cfg.DB.Driver, cfg.DB.DSN)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "database", err)
		}
		app.Store = db.NewStore(conn)
		orchOpts = append(orchOpts, services.WithHistory(app.Store))
		log.Info("数据库初始化完成 (%s)", cfg.DB.Driver)
	}
	app.Orch = services.NewOrchestrator(client, engine, discovery, orchOpts...)

	return app, nil
}

func (a *App) Close() {
	if a.watcher != nil {
		a.watcher.Close()
	}
}
