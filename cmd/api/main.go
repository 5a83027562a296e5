// @title                       Admin Platform API
// @version                     1.0
// @description                 Multi-tenant administration backend.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "github.com/conversia/admin-platform/docs"
	"github.com/conversia/admin-platform/internal/api"
	"github.com/conversia/admin-platform/internal/api/handler"
	"github.com/conversia/admin-platform/internal/api/middleware"
	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
	"github.com/conversia/admin-platform/internal/core/service"
	"github.com/conversia/admin-platform/internal/infrastructure/config"
	mongodb "github.com/conversia/admin-platform/internal/infrastructure/db/mongo"
	redisdb "github.com/conversia/admin-platform/internal/infrastructure/db/redis"
	"github.com/conversia/admin-platform/internal/infrastructure/http/handlers"
	"github.com/conversia/admin-platform/internal/infrastructure/llm"
	"github.com/conversia/admin-platform/internal/infrastructure/queue"
	"github.com/conversia/admin-platform/internal/infrastructure/scheduler"
	"github.com/conversia/admin-platform/internal/infrastructure/secrets"
	"github.com/conversia/admin-platform/internal/infrastructure/storage"
	"github.com/conversia/admin-platform/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env file is fine; real deployments use the environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{})
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "admin-api",
	})

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongo")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}

	objects, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:       cfg.S3.Bucket,
		Region:       cfg.S3.Region,
		Endpoint:     cfg.S3.Endpoint,
		AccessKey:    cfg.S3.AccessKey,
		SecretKey:    cfg.S3.SecretKey,
		UsePathStyle: cfg.S3.UsePathStyle,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init s3")
	}

	// --- Repositories ---
	users := mongodb.NewUserRepository(db)
	roles := mongodb.NewRoleRepository(db)
	sessions := mongodb.NewSessionRepository(db)
	companies := mongodb.NewCompanyRepository(db)
	brands := mongodb.NewBrandRepository(db)
	teams := mongodb.NewTeamRepository(db)
	providers := mongodb.NewAIProviderRepository(db)
	models := mongodb.NewAIModelRepository(db)
	tags := mongodb.NewTagRepository(db)
	tickets := mongodb.NewTicketRepository(db)
	feedback := mongodb.NewFeedbackRepository(db)
	templates := mongodb.NewTemplateRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)
	counters := mongodb.NewCounterRepository(db)

	if err := mongodb.EnsureIndexes(ctx,
		users, roles, sessions, companies, brands, teams, providers, models,
		tags, tickets, feedback, templates, auditRepo,
	); err != nil {
		log.Fatal().Err(err).Msg("ensure indexes")
	}

	keyBox, err := secrets.NewBox(cfg.SealingSecret())
	if err != nil {
		log.Fatal().Err(err).Msg("init provider key sealing")
	}

	// --- Background workers ---
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewAuditDispatcher(cfg.Audit.Workers, auditRepo, log)
	dispatcher.Start(workerCtx)

	// --- Services ---
	resolver := service.NewRoleResolver(users, roles, cfg.Roles.CacheTTL)
	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Algorithm, cfg.AccessTokenTTL(), redisdb.NewTokenDenylist(rdb), log)
	registry := service.NewSessionRegistry(sessions, cfg.Session.TTL, log)
	authService := service.NewAuthService(users, roles, companies, resolver, tokens, registry, log)
	roleService := service.NewRoleService(roles, users, resolver, dispatcher, log)
	companyService := service.NewCompanyService(companies, mongodb.NewResourceCounter(db), dispatcher, log)
	adminService := service.NewAdminService(users, roles, companyService, resolver, dispatcher, log)
	userService := service.NewUserService(users, roles, companyService, resolver, registry, dispatcher, log)
	providerService := service.NewAIProviderService(providers, models, companyService, keyBox, llm.NewChecker(cfg.AI.CheckTimeout), dispatcher, log)

	if err := roleService.SeedSystemRoles(ctx); err != nil {
		log.Fatal().Err(err).Msg("seed system roles")
	}
	bootstrapSuperAdmin(ctx, cfg.Bootstrap, adminService, log)

	sched := scheduler.New(log)
	if err := sched.AddSessionSweep(cfg.Session.SweepSchedule, registry); err != nil {
		log.Fatal().Err(err).Msg("schedule session sweep")
	}
	sched.Start()

	// --- HTTP ---
	router := api.NewRouter(api.Dependencies{
		Log:          log,
		AuthService:  authService,
		LoginLimiter: middleware.NewLoginLimiter(cfg.Login.RatePerMinute, cfg.Login.Burst),
		Readiness: map[string]handlers.Pinger{
			"mongodb": handlers.MongoPinger(db),
			"redis":   handlers.RedisPinger(rdb),
			"s3":      objects,
		},
		Auth:      handler.NewAuthHandler(authService),
		Users:     handler.NewUserHandler(userService),
		Teams:     handler.NewTeamHandler(service.NewTeamService(teams, users, brands, companyService, dispatcher)),
		Roles:     handler.NewRoleHandler(roleService),
		Companies: handler.NewCompanyHandler(companyService),
		Brands:    handler.NewBrandHandler(service.NewBrandService(brands, companyService, dispatcher, log)),
		AI:        handler.NewAIHandler(providerService, service.NewAIModelService(models, providers, dispatcher)),
		Tags:      handler.NewTagHandler(service.NewTagService(tags, dispatcher)),
		Tickets: handler.NewTicketHandler(
			service.NewTicketService(tickets, counters, dispatcher),
			service.NewFeedbackService(feedback, counters, dispatcher),
		),
		Templates: handler.NewTemplateHandler(service.NewTemplateService(templates, objects, dispatcher, log)),
		Admin:     handler.NewAdminHandler(adminService, service.NewAuditService(auditRepo)),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, "admin-api"),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	<-sched.Stop().Done()
	stopWorkers()
	dispatcher.Wait()

	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close")
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect")
	}
	log.Info().Msg("stopped")
}

// bootstrapSuperAdmin creates the configured platform admin on first start.
// An existing superuser is not an error.
func bootstrapSuperAdmin(ctx context.Context, cfg config.BootstrapConfig, admin *service.AdminService, log zerolog.Logger) {
	if !cfg.Enabled() {
		return
	}
	_, err := admin.CreateSuperAdmin(ctx, ports.RegisterInput{
		Email:    cfg.Email,
		Password: cfg.Password,
		FullName: cfg.FullName,
		Username: cfg.Username,
	})
	switch {
	case err == nil:
		log.Info().Str("email", cfg.Email).Msg("bootstrap super admin created")
	case errors.Is(err, domain.ErrSuperAdminExists):
		log.Debug().Msg("super admin already present, bootstrap skipped")
	default:
		log.Error().Err(err).Msg("bootstrap super admin")
	}
}
