package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/fulfillment-api/internal/application/inventory"
	"github.com/jhoicas/fulfillment-api/internal/application/ordering"
	"github.com/jhoicas/fulfillment-api/internal/application/payment"
	"github.com/jhoicas/fulfillment-api/internal/application/shipping"
	infraevent "github.com/jhoicas/fulfillment-api/internal/infrastructure/event"
	"github.com/jhoicas/fulfillment-api/internal/infrastructure/gateway"
	"github.com/jhoicas/fulfillment-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/fulfillment-api/internal/interfaces/http"
	"github.com/jhoicas/fulfillment-api/pkg/config"
	"github.com/jhoicas/fulfillment-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("starting application")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("PostgreSQL connection")
	}
	defer pool.Close()

	txRunner := postgres.NewTxRunner(pool)
	repos := postgres.NewRepos(pool)

	registry := payment.NewRegistry()
	registry.Register(payment.MethodManual, gateway.NewManualProcessor())
	registry.Register(payment.MethodBankTransfer, gateway.NewManualProcessor())
	settings := payment.Settings{
		gateway.SettingWebhookSecret: cfg.Gateway.WebhookSecret,
	}

	reservations := inventory.NewReservationService(txRunner)
	adjustUC := inventory.NewAdjustStockUseCase(txRunner)
	transferUC := inventory.NewTransferUseCase(txRunner)
	stockItemSvc := inventory.NewStockItemService(txRunner, repos.StockItems, repos.Movements, repos.Variants, repos.Locations)

	cartUC := ordering.NewCartUseCase(txRunner, repos.Orders)
	placeUC := ordering.NewPlaceOrderUseCase(txRunner, reservations, registry, settings)
	captureUC := ordering.NewCapturePaymentUseCase(txRunner)
	cancelUC := ordering.NewCancelOrderUseCase(txRunner, registry, settings)
	returnUC := ordering.NewReturnOrderUseCase(txRunner)
	shipmentUC := shipping.NewShipmentUseCase(txRunner)

	webhookUC := payment.NewWebhookUseCase(txRunner, registry, settings, captureUC)
	refundUC := payment.NewRefundUseCase(txRunner, registry, settings)

	// Outbox relay: publishes committed events to Kafka. Without brokers
	// the outbox just accumulates and the relay stays off.
	kafkaClient := infraevent.NewClient(cfg.Kafka.BrokerList())
	if kafkaClient.Enabled() {
		writer := kafkaClient.NewWriter(cfg.Kafka.Topic)
		defer writer.Close()
		relay := infraevent.NewRelay(repos.Outbox, writer, log, cfg.Kafka.RelayInterval, cfg.Kafka.RelayBatch)
		go relay.Run(ctx)
		log.Info().Str("topic", cfg.Kafka.Topic).Msg("outbox relay started")
	} else {
		log.Warn().Msg("kafka brokers not configured, event publishing disabled")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Cart:       cartUC,
		Place:      placeUC,
		Cancel:     cancelUC,
		Returns:    returnUC,
		Shipments:  shipmentUC,
		Webhook:    webhookUC,
		Refund:     refundUC,
		StockItems: stockItemSvc,
		Adjust:     adjustUC,
		Transfer:   transferUC,
		JWTSecret:  cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	log.Info().Msg("application stopped")
}
