package api

import (
	"context"

	"github.com/Lxiba/ResumeTruth-AI/internal/config"
	"github.com/Lxiba/ResumeTruth-AI/internal/extract"
	"github.com/Lxiba/ResumeTruth-AI/internal/middleware"
	"github.com/Lxiba/ResumeTruth-AI/internal/observability"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP server
type Server struct {
	app            *fiber.App
	config         *config.Config
	metrics        *observability.Metrics
	extractHandler *ExtractHandler
}

// NewServer creates a new HTTP server wired to the extraction service.
func NewServer(cfg *config.Config) *Server {
	app := fiber.New(fiber.Config{
		ServerHeader:          "ResumeTruth",
		AppName:               "ResumeTruth v1.0.0",
		BodyLimit:             cfg.Server.BodyLimit,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		DisableStartupMessage: !cfg.Debug,
		ErrorHandler:          customErrorHandler,
	})

	metrics := observability.NewMetrics()
	service := buildExtractionService(cfg, metrics)

	s := &Server{
		app:            app,
		config:         cfg,
		metrics:        metrics,
		extractHandler: NewExtractHandler(service, metrics),
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// buildExtractionService assembles the tier pipeline from configuration.
func buildExtractionService(cfg *config.Config, metrics *observability.Metrics) *extract.Service {
	ex := cfg.Extraction

	var cloud *extract.CloudOCRClient
	if ex.CloudOCR.Enabled {
		cloud = extract.NewCloudOCRClient(extract.CloudOCRConfig{
			APIKey:      ex.CloudOCR.APIKey,
			Endpoint:    ex.CloudOCR.Endpoint,
			Engine:      ex.CloudOCR.Engine,
			Language:    ex.CloudOCR.Language,
			MaxFileSize: ex.CloudOCR.MaxFileSize,
			Timeout:     ex.CloudOCR.Timeout,
		})
		log.Info().Str("endpoint", ex.CloudOCR.Endpoint).Msg("Cloud OCR tier enabled")
	} else {
		log.Info().Msg("Cloud OCR tier disabled")
	}

	var localOCR *extract.LocalOCR
	if ex.LocalOCR.Enabled {
		engine := extract.NewTesseractEngine()
		if engine.Available() {
			localOCR = extract.NewLocalOCR(engine, ex.LocalOCR.Languages, ex.LocalOCR.PageTimeout)
			log.Info().Strs("languages", ex.LocalOCR.Languages).Msg("Local OCR tier enabled")
		} else {
			log.Warn().Msg("Local OCR requested but engine unavailable in this build")
		}
	} else {
		log.Info().Msg("Local OCR tier disabled")
	}

	pipeline := extract.NewPipeline(
		cloud,
		extract.NewTextLayerExtractor(ex.MaxPages, ex.MinCharsPerPage),
		extract.NewPDFRasterizer(),
		localOCR,
		ex.MinCharsPerPage,
		metrics,
	)

	return extract.NewService(pipeline, ex.TooLongThreshold)
}

func (s *Server) setupMiddlewares() {
	s.app.Use(requestid.New())

	if s.config.Debug {
		s.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
		}))
	}

	// Catch panics: a single bad document must never crash the service.
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: s.config.Debug,
	}))

	s.app.Use(middleware.SecurityHeaders())

	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	s.app.Use(s.metrics.MetricsMiddleware())
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", s.metrics.Handler())

	v1 := s.app.Group("/api/v1")
	v1.Post("/extract", s.extractHandler.Extract)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "resumetruth",
	})
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	return s.app.Listen(s.config.Server.Address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code >= 500 {
		log.Error().Err(err).Str("path", c.Path()).Msg("Server error")
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}
