// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"skillswap/internal/cache"
	"skillswap/internal/config"
	"skillswap/internal/email"
	"skillswap/internal/featureflags"
	"skillswap/internal/jobs"
	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/notifications"
	"skillswap/internal/repository"
	"skillswap/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the connected collaborators a Server runs on. Only DB is required.
type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client
	// Objects stores avatars. Nil disables uploads.
	Objects service.ObjectStore
	// EmailQueue receives immediate emails. Nil disables them.
	EmailQueue email.Queue
	// EmailSender is used by the delayed email job. Nil picks one from config.
	EmailSender email.Sender
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	verifier     middleware.TokenVerifier
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager
	store        *cache.Store
	delayedJob   *jobs.DelayedEmailJob

	users         *service.UserService
	skills        *service.SkillService
	proposals     *service.ProposalService
	applications  *service.ApplicationService
	swaps         *service.SwapService
	reviews       *service.ReviewService
	messages      *service.MessageService
	notifications *service.NotificationService
	reputation    *service.ReputationService
	dashboard     *service.DashboardService
}

// NewServer wires repositories and services on top of deps.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("server: database is required")
	}

	renderer, err := email.NewRenderer(cfg.AppURL)
	if err != nil {
		return nil, fmt.Errorf("email templates: %w", err)
	}

	db := deps.DB
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("skillswap-api"),
		verifier: middleware.TokenVerifier{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
		hub:          notifications.NewHub(),
		featureFlags: featureflags.NewManager(cfg.FeatureFlags),
		store:        cache.NewStore(deps.Redis),
	}
	if deps.Redis != nil {
		s.notifier = notifications.NewNotifier(deps.Redis)
	}

	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	s.notifications = service.NewNotificationService(notificationRepo, realtimePublisher{hub: s.hub, notifier: s.notifier})
	s.reputation = service.NewReputationService(repository.NewReputationRepository(db), userRepo, s.store, s.featureFlags)

	n := service.Notifiers{Emitter: s.notifications, Flags: s.featureFlags}
	if deps.EmailQueue != nil {
		n.Mailer = email.NewOutbox(renderer, deps.EmailQueue)
	}

	s.proposals = service.NewProposalService(db, s.reputation, s.store)
	s.swaps = service.NewSwapService(db, s.reputation, n)
	s.applications = service.NewApplicationService(db, s.swaps, s.reputation, s.store, n)
	s.reviews = service.NewReviewService(db, s.reputation, n)
	s.skills = service.NewSkillService(db, s.reputation)
	s.messages = service.NewMessageService(db, n)
	s.users = service.NewUserService(userRepo, repository.NewSkillRepository(db),
		repository.NewReviewRepository(db), s.reputation, deps.Objects)
	s.dashboard = service.NewDashboardService(db, s.proposals, s.reputation)

	sender := deps.EmailSender
	if sender == nil {
		sender = email.NewSender(cfg.ResendAPIKey, cfg.EmailFrom)
	}
	s.delayedJob = jobs.NewDelayedEmailJob(notificationRepo, renderer, sender, cfg.DelayedEmailBatch, cfg.DelayedEmailAge)

	return s, nil
}

// NewApp builds a fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "SkillSwap API",
		BodyLimit: service.MaxAvatarBytes + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// globalRequestsPerMinute caps requests per client IP across all routes.
const globalRequestsPerMinute = 100

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        globalRequestsPerMinute,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  "RATE_LIMITED",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	cron := api.Group("/cron", middleware.CronSecretRequired(s.config.CronSecret))
	cron.Get("/send-delayed-emails", s.SendDelayedEmails)
	cron.Post("/send-delayed-emails", s.SendDelayedEmails)

	auth := middleware.AuthRequired(s.verifier, s.users)
	limit := func(n int, window time.Duration, name string) fiber.Handler {
		return middleware.RateLimit(s.redis, n, window, name)
	}

	// Non-upgrade requests are rejected before the token is checked.
	api.Get("/ws/notifications", s.requireUpgrade, auth, s.WebSocketNotificationsHandler())

	protected := api.Group("", auth)

	me := protected.Group("/me")
	me.Get("/", s.GetMe)
	me.Put("/profile", limit(20, time.Minute, "update_profile"), s.UpdateMyProfile)
	me.Post("/avatar", limit(5, 10*time.Minute, "upload_avatar"), s.UploadAvatar)
	me.Get("/skills", s.ListMySkills)
	me.Post("/skills", limit(30, time.Minute, "add_skill"), s.AddSkill)
	me.Patch("/skills/:id", s.SetSkillVisibility)
	me.Delete("/skills/:id", s.RemoveSkill)

	protected.Get("/skills", s.SearchSkills)
	protected.Get("/leaderboard", s.GetLeaderboard)
	protected.Get("/dashboard", s.GetDashboard)
	protected.Get("/feature-flags", s.GetFeatureFlags)

	users := protected.Group("/users")
	users.Post("/:id/endorsements", limit(20, time.Minute, "endorse"), s.EndorseSkill)
	users.Get("/:id/reputation", s.GetReputation)
	users.Get("/:id/reviews", s.ListUserReviews)
	users.Get("/:id", s.GetUserProfile)

	proposals := protected.Group("/proposals")
	proposals.Get("/", s.ListPublicProposals)
	proposals.Post("/", limit(10, 10*time.Minute, "create_proposal"), s.CreateProposal)
	// Specific paths before /:id
	proposals.Get("/mine", s.ListMyProposals)
	proposals.Patch("/:id/status", s.UpdateProposalStatus)
	proposals.Post("/:id/rescind", s.RescindProposal)
	proposals.Post("/:id/applications", limit(20, 10*time.Minute, "apply"), s.CreateApplication)
	proposals.Get("/:id/applications", s.ListApplicationsForProposal)
	proposals.Get("/:id", s.GetProposal)
	proposals.Delete("/:id", s.DeleteProposal)

	applications := protected.Group("/applications")
	applications.Get("/mine", s.ListMyApplications)
	applications.Patch("/:id/status", s.UpdateApplicationStatus)
	applications.Post("/:id/accept", s.AcceptApplication)

	swaps := protected.Group("/swaps")
	swaps.Get("/", s.ListMySwaps)
	swaps.Patch("/:id/status", s.UpdateSwapStatus)
	swaps.Post("/:id/reviews", limit(10, time.Minute, "create_review"), s.CreateReview)
	swaps.Get("/:id/messages", s.ListMessages)
	swaps.Post("/:id/messages", limit(30, time.Minute, "send_message"), s.SendMessage)
	swaps.Get("/:id", s.GetSwap)

	notifs := protected.Group("/notifications")
	notifs.Get("/", s.ListNotifications)
	notifs.Get("/unread-count", s.GetUnreadCount)
	notifs.Post("/read-all", s.MarkAllNotificationsRead)
	notifs.Post("/process-delayed", limit(2, time.Minute, "process_delayed"), s.ProcessDelayedEmails)
	notifs.Post("/:id/read", s.MarkNotificationRead)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis backs caching, realtime fan-out and rate limits but the API can
	// answer without it.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus != "healthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start notification hub wiring", slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port), slog.String("env", s.config.Env))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and closes websocket clients. The database
// and Redis connections belong to the caller and stay open.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	var errs []error
	if s.app != nil {
		errs = append(errs, s.app.ShutdownWithContext(ctx))
	}
	errs = append(errs, s.hub.Shutdown(ctx))
	return errors.Join(errs...)
}
