package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/flowlytix/order-service/internal/api/dto"
	"github.com/flowlytix/order-service/internal/application"
	"github.com/flowlytix/order-service/internal/domain"
	kafkaInfra "github.com/flowlytix/order-service/internal/infrastructure/kafka"
	mongoRepo "github.com/flowlytix/order-service/internal/infrastructure/mongodb"
	"github.com/flowlytix/order-service/pkg/api"
	"github.com/flowlytix/order-service/pkg/kafka"
	"github.com/flowlytix/order-service/pkg/logging"
	"github.com/flowlytix/order-service/pkg/metrics"
	"github.com/flowlytix/order-service/pkg/middleware"
	"github.com/flowlytix/order-service/pkg/mongodb"
	"github.com/flowlytix/order-service/pkg/resilience"
)

const serviceName = "order-service"

func main() {
	_ = godotenv.Load()

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting order-service API")

	config := loadConfig()
	ctx := context.Background()

	// Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	// MongoDB, retried with backoff on startup
	var mongoClient *mongodb.Client
	err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() error {
		var connectErr error
		mongoClient, connectErr = mongodb.NewClient(ctx, config.MongoDB)
		return connectErr
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Kafka producer behind the domain event publisher
	kafkaProducer := kafka.NewProducer(config.Kafka)
	publisher := kafkaInfra.NewEventPublisher(kafkaProducer, logger)
	defer publisher.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Repositories
	db := mongoClient.Database()
	orderRepo := mongoRepo.NewOrderRepository(db)
	customerRepo := mongoRepo.NewCustomerRepository(db)
	productRepo := mongoRepo.NewProductRepository(db)
	lotRepo := mongoRepo.NewLotBatchRepository(db)
	allocationRepo := mongoRepo.NewOrderLotAllocationRepository(db)

	businessMetrics := middleware.NewBusinessMetrics(m)

	// Application services
	createOrder := application.NewCreateOrderHandler(
		orderRepo, customerRepo, productRepo, lotRepo, allocationRepo,
		publisher, logger, businessMetrics,
	)
	lifecycle := application.NewOrderLifecycleService(orderRepo, publisher, logger, businessMetrics)
	queries := application.NewOrderQueryService(orderRepo, allocationRepo, lotRepo, logger)

	// Gin router with the standard middleware chain
	router := gin.New()
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	v1 := router.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", createOrderHandler(createOrder, logger))
			orders.GET("", listOrdersHandler(queries, logger))
			orders.GET("/:orderId", getOrderHandler(queries, logger))
			orders.GET("/by-number/:orderNumber", getOrderByNumberHandler(queries, logger))
			orders.GET("/:orderId/allocations", getAllocationsHandler(queries, logger))
			orders.GET("/:orderId/fulfillment", getFulfillmentSummaryHandler(queries, logger))

			orders.PUT("/:orderId/confirm", confirmOrderHandler(lifecycle, logger))
			orders.PUT("/:orderId/cancel", cancelOrderHandler(lifecycle, logger))
			orders.PUT("/:orderId/payment", recordPaymentHandler(lifecycle, logger))

			orders.PUT("/:orderId/picking/start", startPickingHandler(lifecycle, logger))
			orders.PUT("/:orderId/picking/complete", completePickingHandler(lifecycle, logger))
			orders.PUT("/:orderId/packing/start", startPackingHandler(lifecycle, logger))
			orders.PUT("/:orderId/packing/complete", completePackingHandler(lifecycle, logger))
			orders.PUT("/:orderId/ship", shipOrderHandler(lifecycle, logger))
			orders.PUT("/:orderId/deliver", deliverOrderHandler(lifecycle, logger))
			orders.PUT("/:orderId/partial", partialFulfillmentHandler(lifecycle, logger))
			orders.PUT("/:orderId/rollback", rollbackFulfillmentHandler(lifecycle, logger))
			orders.PUT("/:orderId/items/fulfillment", itemFulfillmentHandler(lifecycle, logger))
		}

		v1.GET("/products/:productId/availability", productAvailabilityHandler(queries, logger))
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8001"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "flowlytix"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
			ReplicaSet:     getEnv("MONGODB_REPLICA_SET", ""),
		},
		Kafka: &kafka.Config{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func createOrderHandler(handler *application.CreateOrderHandler, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.CreateOrderRequest
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		items := make([]application.OrderItemInput, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, application.OrderItemInput{
				ProductID:          item.ProductID,
				QuantityBoxes:      item.QuantityBoxes,
				QuantityLoose:      item.QuantityLoose,
				DiscountPercentage: item.DiscountPercentage,
				TaxRate:            item.TaxRate,
			})
		}

		cmd := application.CreateOrderCommand{
			OrderNumber:        req.OrderNumber,
			AgencyID:           req.AgencyID,
			CustomerID:         req.CustomerID,
			CustomerCode:       req.CustomerCode,
			CreditLimitCents:   req.CreditLimitCents,
			AreaCode:           req.AreaCode,
			WorkerName:         req.WorkerName,
			Items:              items,
			DiscountPercentage: req.DiscountPercentage,
			CreditDays:         req.CreditDays,
			OrderDate:          req.OrderDate,
			DeliveryDate:       req.DeliveryDate,
			RequestedBy:        middleware.GetUserID(c),
		}

		result := handler.Execute(c.Request.Context(), cmd)
		if !result.Success {
			if len(result.ValidationErrors) > 0 {
				responder.RespondValidationError(result.Error, result.ValidationErrors)
				return
			}
			responder.RespondWithError(errors.New(result.Error))
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

func confirmOrderHandler(service *application.OrderLifecycleService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, logger)(service.ConfirmOrder(c.Request.Context(), application.ConfirmOrderCommand{
			OrderID:     c.Param("orderId"),
			RequestedBy: middleware.GetUserID(c),
		}))
	}
}

func cancelOrderHandler(service *application.OrderLifecycleService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.CancelOrderRequest
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		respond(c, logger)(service.CancelOrder(c.Request.Context(), application.CancelOrderCommand{
			OrderID:     c.Param("orderId"),
			Reason:      req.Reason,
			RequestedBy: middleware.GetUserID(c),
		}))
	}
}

func recordPaymentHandler(service *application.OrderLifecycleService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.RecordPaymentRequest
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		respond(c, logger)(service.RecordPayment(c.Request.Context(), application.RecordPaymentCommand{
			OrderID:     c.Param("orderId"),
			AmountCents: req.AmountCents,
			Currency:    req.Currency,
			RequestedBy: middleware.GetUserID(c),
		}))
	}
}

func startPickingHandler(service *application.OrderLifecycleService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.StartPickingRequest
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		respond(c, logger)(service.StartPicking(c.Request.Context(), application.FulfillmentCommand{
			OrderID:        c.Param("orderId"),
			RequestedBy:    middleware.GetUserID(c),
			AssignedWorker: req.AssignedWorker,
		}))
	}
}

func completePickingHandler(service *application.OrderLifecycleService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.FulfillmentNotesRequest
		_ = c.ShouldBindJSON(&req)

		respond(c, logger)(service.CompletePicking(c.Request.Context(), application.FulfillmentCommand{
			OrderID:     c.Param("orderId"),
			RequestedBy: middleware.GetUserID(c),
			Notes:       req.Notes,
		}))
	}
}

func startPackingHandler(service *application.OrderLifecycleService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, logger)(service.StartPacking(c.Request.Context(), application.FulfillmentCommand{
			OrderID:     c.Param("orderId"),
			RequestedBy: middleware.GetUserID(c),
		}))
	}
}

func completePackingHandler(service *application.OrderLifecycleService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, logger)(service.CompletePacking(c.Request.Context(), application.FulfillmentCommand{
			OrderID:     c.Param("orderId"),
			RequestedBy: middleware.GetUserID(c),
		}))
	}
}

func shipOrderHandler(service *application.OrderLifecycleService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.ShipOrderRequest
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		respond(c, logger)(service.ShipOrder(c.Request.Context(), application.FulfillmentCommand{
			OrderID:        c.Param("orderId"),
			RequestedBy:    middleware.GetUserID(c),
			TrackingNumber: req.TrackingNumber,
			Carrier:        req.Carrier,
		}))
	}
}

func deliverOrderHandler(service *application.OrderLifecycleService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.DeliverOrderRequest
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		respond(c, logger)(service.DeliverOrder(c.Request.Context(), application.FulfillmentCommand{
			OrderID:       c.Param("orderId"),
			RequestedBy:   middleware.GetUserID(c),
			RecipientName: req.RecipientName,
		}))
	}
}

func partialFulfillmentHandler(service *application.OrderLifecycleService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.PartialFulfillmentRequest
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		respond(c, logger)(service.MarkPartialFulfillment(c.Request.Context(), application.FulfillmentCommand{
			OrderID:     c.Param("orderId"),
			RequestedBy: middleware.GetUserID(c),
			Reason:      req.Reason,
		}))
	}
}

func rollbackFulfillmentHandler(service *application.OrderLifecycleService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.RollbackFulfillmentRequest
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		respond(c, logger)(service.RollbackFulfillment(c.Request.Context(), application.RollbackFulfillmentCommand{
			OrderID:     c.Param("orderId"),
			Target:      domain.FulfillmentStatus(req.Target),
			Reason:      req.Reason,
			RequestedBy: middleware.GetUserID(c),
		}))
	}
}

func itemFulfillmentHandler(service *application.OrderLifecycleService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.ItemFulfillmentRequest
		if appErr := api.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		respond(c, logger)(service.RecordItemFulfillment(c.Request.Context(), application.RecordItemFulfillmentCommand{
			OrderID:     c.Param("orderId"),
			ProductID:   req.ProductID,
			Boxes:       req.Boxes,
			Loose:       req.Loose,
			RequestedBy: middleware.GetUserID(c),
		}))
	}
}

func getOrderHandler(service *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, logger)(service.GetOrder(c.Request.Context(), c.Param("orderId")))
	}
}

func getOrderByNumberHandler(service *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, logger)(service.GetOrderByNumber(
			c.Request.Context(),
			c.Param("orderNumber"),
			c.Query("agencyId"),
		))
	}
}

func listOrdersHandler(service *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req dto.ListOrdersRequest
		if appErr := api.BindQueryAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		query := application.ListOrdersQuery{
			AgencyID:          req.AgencyID,
			CustomerID:        req.CustomerID,
			Status:            req.Status,
			FulfillmentStatus: req.FulfillmentStatus,
			PaymentStatus:     req.PaymentStatus,
			Page:              req.Page,
			PageSize:          req.PageSize,
		}
		if !req.OrderedAfter.IsZero() {
			query.OrderedAfter = &req.OrderedAfter
		}
		if !req.OrderedBefore.IsZero() {
			query.OrderedBefore = &req.OrderedBefore
		}
		respond(c, logger)(service.ListOrders(c.Request.Context(), query))
	}
}

func getAllocationsHandler(service *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, logger)(service.GetOrderAllocations(c.Request.Context(), c.Param("orderId")))
	}
}

func getFulfillmentSummaryHandler(service *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, logger)(service.GetFulfillmentSummary(c.Request.Context(), c.Param("orderId")))
	}
}

func productAvailabilityHandler(service *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, logger)(service.GetProductAvailability(
			c.Request.Context(),
			c.Param("productId"),
			c.Query("agencyId"),
		))
	}
}

// respond writes the payload or maps the error onto the HTTP response
func respond(c *gin.Context, logger *logging.Logger) func(any, error) {
	return func(payload any, err error) {
		if err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, payload)
	}
}
