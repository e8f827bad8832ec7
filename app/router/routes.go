// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/amirphl/flashcall-auth/app/dto"
	"github.com/amirphl/flashcall-auth/app/handlers"
	"github.com/amirphl/flashcall-auth/app/middleware"
	"github.com/amirphl/flashcall-auth/config"
	_ "github.com/amirphl/flashcall-auth/docs"
	"github.com/amirphl/flashcall-auth/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Dependencies bundles what the router mounts
type Dependencies struct {
	Config              *config.ProductionConfig
	VerificationHandler handlers.VerificationHandlerInterface
	AdminHandler        handlers.AdminHandlerInterface
	SourceNumberHandler handlers.SourceNumberAdminHandlerInterface
	AuthMiddleware      *middleware.AuthMiddleware
	SessionAuth         middleware.SessionAuthenticator
	HTTPMetrics         *middleware.HTTPMetrics
	Gatherer            prometheus.Gatherer
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app  *fiber.App
	deps Dependencies
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(deps Dependencies) Router {
	server := deps.Config.Server
	app := fiber.New(fiber.Config{
		AppName:      "Flashcall Auth API",
		ServerHeader: "flashcall-auth",
		ErrorHandler: errorHandler,
		BodyLimit:    server.BodyLimit,
		ReadTimeout:  server.ReadTimeout,
		WriteTimeout: server.WriteTimeout,
		IdleTimeout:  server.IdleTimeout,
		ProxyHeader:  server.ProxyHeader,
		TrustProxy:   len(server.TrustedProxies) > 0,
		TrustProxyConfig: fiber.TrustProxyConfig{
			Proxies: server.TrustedProxies,
		},
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})

	return &FiberRouter{
		app:  app,
		deps: deps,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")
	cfg := r.deps.Config

	r.setupMiddleware()

	if cfg.Metrics.Enabled && r.deps.Gatherer != nil {
		r.app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.HandlerFor(r.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	if cfg.Deployment.Environment == "development" || cfg.Deployment.Environment == "local" {
		api.Get("/swagger.json", r.serveSwaggerJSON)
		log.Println("API documentation enabled for development")
	}

	api.Use(rateLimiter(cfg.Security.GlobalRateLimit, cfg.Security.RateLimitWindow, func(c fiber.Ctx) bool {
		return c.Path() == "/api/v1/health"
	}))

	// Every request on this group may cost a provider call
	missedCall := api.Group("/missed-call")
	missedCall.Use(rateLimiter(cfg.Security.MissedCallRateLimit, cfg.Security.RateLimitWindow, nil))
	missedCall.Post("/request", r.deps.VerificationHandler.RequestVerification)
	missedCall.Post("/verify", r.deps.VerificationHandler.ConfirmVerification)
	if cfg.MissedCall.EnableStatusEndpoint {
		missedCall.Get("/status/:session_id", r.deps.VerificationHandler.GetStatus)
	}
	missedCall.Get("/session", middleware.SessionToken(r.deps.SessionAuth), r.deps.VerificationHandler.GetSession)

	admin := api.Group("/admin")
	adminAuth := admin.Group("/auth")
	adminAuth.Use(rateLimiter(cfg.Security.AuthRateLimit, cfg.Security.RateLimitWindow, nil))
	adminAuth.Post("/captcha/init", r.deps.AdminHandler.InitCaptcha)
	adminAuth.Post("/login", r.deps.AdminHandler.VerifyLogin)
	adminAuth.Post("/refresh", r.deps.AdminHandler.RefreshToken)

	protected := admin.Group("", r.deps.AuthMiddleware.AdminAuthenticate())
	sources := protected.Group("/source-numbers")
	sources.Post("", r.deps.SourceNumberHandler.CreateSourceNumber)
	sources.Get("", r.deps.SourceNumberHandler.ListSourceNumbers)
	sources.Put("", r.deps.SourceNumberHandler.UpdateSourceNumbersBatch)
	sources.Get("/report", r.deps.SourceNumberHandler.GetSourceNumbersReport)
	sources.Get("/report/export", r.deps.SourceNumberHandler.ExportSourceNumbersReport)

	sessions := protected.Group("/sessions")
	sessions.Get("", r.deps.SourceNumberHandler.ListSessions)
	sessions.Post("/expire", r.deps.SourceNumberHandler.ExpireSessions)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

func rateLimiter(max int, window time.Duration, next func(c fiber.Ctx) bool) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: next,
	})
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	security := r.deps.Config.Security

	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	if r.deps.HTTPMetrics != nil {
		r.app.Use(r.deps.HTTPMetrics.Handler())
	}

	hstsMaxAge := 0
	if security.TLSEnabled {
		hstsMaxAge = security.HSTSMaxAge
	}
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        security.XContentTypeOptions,
		XFrameOptions:             security.XFrameOptions,
		HSTSMaxAge:                hstsMaxAge,
		HSTSExcludeSubdomains:     !security.HSTSIncludeSubDoms,
		HSTSPreloadEnabled:        security.HSTSPreload,
		ContentSecurityPolicy:     security.CSPPolicy,
		ReferrerPolicy:            security.ReferrerPolicy,
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     security.AllowedOrigins,
		AllowMethods:     security.AllowedMethods,
		AllowHeaders:     security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: security.AllowCredentials,
		MaxAge:           security.CORSMaxAge,
	}))

	if r.deps.Config.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
			Next: func(c fiber.Ctx) bool {
				// xlsx is already deflated
				return strings.HasSuffix(c.Path(), "/export")
			},
		}))
	}

	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return !r.deps.Config.Logging.EnableAccessLog || c.Path() == "/api/v1/health"
		},
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				requestid.FromContext(c),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	listenConfig := fiber.ListenConfig{DisableStartupMessage: true}
	if security := r.deps.Config.Security; security.TLSEnabled {
		listenConfig.CertFile = security.TLSCertFile
		listenConfig.CertKeyFile = security.TLSKeyFile
	}
	return r.app.Listen(address, listenConfig)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   r.deps.Config.Deployment.Version,
			"service":   "flashcall-auth",
		},
	})
}

func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	doc, err := swag.ReadDoc()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error: dto.ErrorDetail{
				Code: "SWAGGER_LOAD_ERROR",
			},
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(doc)
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if e, ok := err.(*fiber.Error); ok {
		fiberErr = e
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	message := "An internal server error occurred"
	if fiberErr != nil && code < fiber.StatusInternalServerError {
		message = fiberErr.Message
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
