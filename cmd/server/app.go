package main

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/sethvargo/go-envconfig"

	"portfolio-backend/internal/config"
	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/infrastructure/cache"
	"portfolio-backend/internal/infrastructure/coingecko"
	"portfolio-backend/internal/infrastructure/db"
	"portfolio-backend/internal/infrastructure/fcm"
	fb "portfolio-backend/internal/infrastructure/firebase"
	"portfolio-backend/internal/infrastructure/logging"
	"portfolio-backend/internal/infrastructure/messaging"
	"portfolio-backend/internal/infrastructure/timeseries"
	"portfolio-backend/internal/repository"
	"portfolio-backend/internal/usecase"
)

const localUserID = "local"

// app holds every wired component of the backend.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	identity   domain.IdentityProvider
	store      domain.HoldingStore
	tokens     *repository.TokenRepository
	push       *fcm.Client
	indicators *usecase.IndicatorService
	failures   *logging.DiagnosticSink
	portfolios *usecase.PortfolioService

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format), nil
}

// newApp wires the backend. ctx bounds background work such as the Postgres
// change listener.
func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var fbApp *firebase.App
	if cfg.FirebaseConfigured() {
		fbApp, err = fb.NewApp(ctx, fb.Credentials{
			Path:      cfg.Firebase.CredentialsPath,
			JSON:      cfg.Firebase.CredentialsJSON,
			ProjectID: cfg.Firebase.ProjectID,
		})
		if err != nil {
			return nil, err
		}
		identity, err := fb.NewIdentityProvider(ctx, fbApp)
		if err != nil {
			return nil, err
		}
		a.identity = identity
	} else {
		logger.Warn().Str("user", localUserID).Msg("no Firebase credentials found, every request runs as the local user")
		a.identity = fb.LocalIdentityProvider{UserID: localUserID}
	}

	if a.store, err = a.openStore(ctx, fbApp); err != nil {
		return nil, err
	}

	market, err := a.openMarket(ctx)
	if err != nil {
		return nil, err
	}

	diagnostics := logging.NewDiagnosticSink(logger.Component("upstream"))
	a.failures = diagnostics
	a.indicators = usecase.NewIndicatorService(market, diagnostics, cfg.Market.Currency, cfg.Market.HistoryDays)
	enricher := usecase.NewPortfolioEnricher(market, a.indicators, diagnostics, cfg.Market.Currency, cfg.Enrichment.Concurrency)

	alerters, err := a.openAlerters(ctx, fbApp)
	if err != nil {
		return nil, err
	}

	a.portfolios = usecase.NewPortfolioService(a.store, enricher, repository.NewInMemoryPortfolioRepository(), alerters, logger.Component("portfolio"))
	return a, nil
}

func (a *app) openStore(ctx context.Context, fbApp *firebase.App) (domain.HoldingStore, error) {
	logger := a.logger.Component("store")

	switch a.cfg.Storage.Driver {
	case "postgres":
		poolCfg, err := db.LoadPoolConfig(ctx, envconfig.OsLookuper())
		if err != nil {
			return nil, err
		}
		pool, err := db.NewPool(ctx, a.cfg.Storage.DatabaseURL, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := db.Migrate(ctx, pool); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		repo := repository.NewPostgresHoldingRepository(pool, logger)
		go repo.Listen(ctx)
		logger.Info().Msg("using postgres holdings store")
		return repo, nil

	case "firestore":
		client, err := fbApp.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("open firestore: %w", err)
		}
		a.closers = append(a.closers, func() { client.Close() })
		logger.Info().Msg("using firestore holdings store")
		return repository.NewFirestoreHoldingRepository(client, repository.DefaultHoldingsCollection, logger), nil

	default:
		logger.Info().Msg("using in-memory holdings store")
		return repository.NewInMemoryHoldingRepository(), nil
	}
}

func (a *app) openMarket(ctx context.Context) (domain.MarketDataProvider, error) {
	cfg := a.cfg
	var market domain.MarketDataProvider = coingecko.NewClient(
		coingecko.WithBaseURL(cfg.Market.BaseURL),
		coingecko.WithAPIKey(cfg.Market.APIKey),
		coingecko.WithRateLimit(cfg.Market.RateLimitPerMinute),
		coingecko.WithTimeout(cfg.RequestTimeout()),
		coingecko.WithLogger(a.logger.Component("coingecko")),
	)

	if cfg.Cache.RedisAddr == "" {
		return market, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { client.Close() })

	priceTTL, historyTTL := cfg.CacheTTLs()
	a.logger.Info().Str("addr", cfg.Cache.RedisAddr).Msg("market data cache enabled")
	return cache.NewMarketCache(market, client, priceTTL, historyTTL, a.logger.Component("cache")), nil
}

func (a *app) openAlerters(ctx context.Context, fbApp *firebase.App) (usecase.Alerters, error) {
	cfg := a.cfg

	a.tokens = repository.NewTokenRepository()
	push, err := fcm.NewClient(ctx, fbApp, a.logger.Component("fcm"), fcm.WithStaleTokenHandler(a.tokens.Forget))
	if err != nil {
		return nil, err
	}
	a.push = push
	alerters := usecase.Alerters{
		usecase.NewAlertNotifier(push, a.tokens, cfg.NotificationCooldown(), a.logger.Component("alerts")),
	}

	if cfg.Events.NATSURL != "" {
		conn, err := messaging.Connect(cfg.Events.NATSURL, a.logger.Component("nats"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { conn.Drain() })
		alerters = append(alerters, messaging.NewEventPublisher(conn, cfg.Events.SubjectPrefix, a.logger.Component("events")))
	}

	if cfg.History.InfluxURL != "" {
		recorder := timeseries.NewPortfolioRecorder(cfg.History.InfluxURL, cfg.History.InfluxToken, cfg.History.InfluxOrg, cfg.History.InfluxBucket, a.logger.Component("history"))
		a.closers = append(a.closers, recorder.Close)
		if err := recorder.Health(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("influxdb not healthy, history writes may fail")
		}
		alerters = append(alerters, recorder)
	}

	return alerters, nil
}
