package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fulfillment-api/internal/application/inventory"
	"github.com/jhoicas/fulfillment-api/internal/application/ordering"
	"github.com/jhoicas/fulfillment-api/internal/application/payment"
	"github.com/jhoicas/fulfillment-api/internal/application/shipping"
)

// RouterDeps bundles the use cases the router serves.
type RouterDeps struct {
	Cart       *ordering.CartUseCase
	Place      *ordering.PlaceOrderUseCase
	Cancel     *ordering.CancelOrderUseCase
	Returns    *ordering.ReturnOrderUseCase
	Shipments  *shipping.ShipmentUseCase
	Webhook    *payment.WebhookUseCase
	Refund     *payment.RefundUseCase
	StockItems *inventory.StockItemService
	Adjust     *inventory.AdjustStockUseCase
	Transfer   *inventory.TransferUseCase
	JWTSecret  string
}

// Router registers the API routes.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api/v1")

	// Orders (public storefront surface)
	orders := api.Group("/orders")
	orderHandler := NewOrderHandler(deps.Cart, deps.Place, deps.Cancel, deps.Returns)
	orders.Post("/", orderHandler.Create)
	orders.Get("/:id", orderHandler.Get)
	orders.Post("/:id/line-items", orderHandler.AddLineItem)
	orders.Delete("/:id/line-items/:lineItemId", orderHandler.RemoveLineItem)
	orders.Post("/:id/addresses", orderHandler.SetAddresses)
	orders.Post("/:id/shipping-method", orderHandler.SetShippingMethod)
	orders.Post("/:id/next", orderHandler.Next)
	orders.Post("/:id/cancel", orderHandler.Cancel)
	orders.Post("/:id/return", orderHandler.Return)

	checkout := api.Group("/checkout")
	checkout.Post("/:id/place", orderHandler.Place)

	// Payments: webhook is called by the gateway, refunds need admin.
	payments := api.Group("/payments")
	paymentHandler := NewPaymentHandler(deps.Webhook, deps.Refund)
	payments.Post("/webhook", paymentHandler.Webhook)
	payments.Post("/:id/refund", AuthMiddleware(deps.JWTSecret), RequireRole("admin"), paymentHandler.Refund)

	// Shipments (warehouse surface, protected)
	shipments := api.Group("/shipments", AuthMiddleware(deps.JWTSecret))
	shipmentHandler := NewShipmentHandler(deps.Shipments)
	shipments.Post("/:id/pick", shipmentHandler.Pick)
	shipments.Post("/:id/pack", shipmentHandler.Pack)
	shipments.Post("/:id/ship", shipmentHandler.Ship)
	shipments.Post("/:id/deliver", shipmentHandler.Deliver)
	shipments.Post("/:id/cancel", shipmentHandler.Cancel)

	// Stock (admin surface, protected)
	stock := api.Group("/stock-items", AuthMiddleware(deps.JWTSecret), RequireRole("admin"))
	stockHandler := NewStockHandler(deps.StockItems, deps.Adjust, deps.Transfer)
	stock.Post("/", stockHandler.Create)
	stock.Get("/:id", stockHandler.Get)
	stock.Post("/:id/adjust", stockHandler.Adjust)
	stock.Get("/:id/movements", stockHandler.Movements)

	transfers := api.Group("/stock-transfers", AuthMiddleware(deps.JWTSecret), RequireRole("admin"))
	transfers.Post("/", stockHandler.Transfer)
}
