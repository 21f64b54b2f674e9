package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/pharmacare/whatsapp-bot/internal/apiclient"
	"github.com/pharmacare/whatsapp-bot/internal/config"
	"github.com/pharmacare/whatsapp-bot/internal/dialogue"
	"github.com/pharmacare/whatsapp-bot/internal/handlers"
	"github.com/pharmacare/whatsapp-bot/internal/routes"
	"github.com/pharmacare/whatsapp-bot/internal/services"
	"github.com/pharmacare/whatsapp-bot/internal/storage"
	"github.com/pharmacare/whatsapp-bot/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)

	backend, err := apiclient.New(apiclient.Config{
		BaseURL:     cfg.BackendBaseURL,
		Timeout:     cfg.RequestTimeout,
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.RetryBackoff,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("backend client error")
	}

	graph, err := apiclient.New(apiclient.Config{
		BaseURL:     cfg.GraphBaseURL,
		Timeout:     cfg.RequestTimeout,
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.RetryBackoff,
		Headers: map[string]string{
			"Authorization": "Bearer " + cfg.WhatsAppToken,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("graph client error")
	}

	sessions := services.NewSessionService(backend, storage.NewMemoryStore())
	catalog := services.NewCatalogService(backend)
	pharmacies := services.NewPharmacyService(backend)
	customers := services.NewCustomerService(backend)
	orders := services.NewOrderService(backend, pharmacies, customers)
	whatsapp := services.NewWhatsAppService(graph, cfg.PhoneNumberID)

	engine := dialogue.New(sessions, catalog, orders, pharmacies, customers, whatsapp)

	healthHandler := handlers.NewHealthHandler(catalog, version)
	webhookHandler := handlers.NewWebhookHandler(cfg.WebhookVerifyToken, engine)

	app := fiber.New(fiber.Config{
		AppName: "PharmaCare WhatsApp Bot v" + version,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	routes.SetupRoutes(app, healthHandler, webhookHandler, cfg.AppSecret)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("🛑 Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	log.Info().Str("port", cfg.Port).Str("backend", cfg.BackendBaseURL).Msg("🚀 PharmaCare WhatsApp Bot starting")
	if cfg.AppSecret == "" {
		log.Warn().Msg("⚠️  WHATSAPP_APP_SECRET not set, webhook signature validation disabled")
	}

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
