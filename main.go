package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tomas-aguilar/mesa-pos-api/config"
	"github.com/tomas-aguilar/mesa-pos-api/controllers"
	"github.com/tomas-aguilar/mesa-pos-api/middleware"
	"github.com/tomas-aguilar/mesa-pos-api/models"
	"github.com/tomas-aguilar/mesa-pos-api/services"
)

func main() {
	// Basic logging
	log.Println("Starting Mesa POS API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.Staff{},
		&models.MenuItem{},
		&models.MenuOption{},
		&models.OptionChoice{},
		&models.Order{},
		&models.OrderItem{},
		&models.SelectedOption{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Initialize services
	notifier := services.InitNotifier()
	services.InitOrderService(db, notifier)

	if cfg.AWSS3Bucket != "" {
		s3Service, err := services.InitS3Service()
		if err != nil {
			log.Fatalf("Failed to initialize S3 service: %v", err)
		}
		services.InitImageService(s3Service)
	} else {
		log.Println("AWS_S3_BUCKET not set, menu photo uploads disabled")
	}

	router := setupRouter(cfg)

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter builds the gin engine with all middleware and routes
func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// Menu reads are public (customer-facing displays)
		v1.GET("/menu", controllers.ListMenu)
		v1.GET("/menu/:id", controllers.GetMenuItem)
	}

	authed := v1.Group("")
	authed.Use(middleware.EnsureValidToken(cfg))
	{
		// Staff records
		authed.POST("/staff", controllers.RegisterStaff)
		authed.GET("/staff/me", controllers.GetMyProfile)
		authed.PUT("/staff/me", controllers.UpdateMyProfile)
		authed.GET("/staff", middleware.RequireRole(models.RoleManager), controllers.ListStaff)

		// Order lifecycle
		authed.POST("/orders", controllers.CreateOrder)
		authed.GET("/orders", controllers.ListOrders)
		authed.GET("/orders/:id", controllers.GetOrder)
		authed.PATCH("/orders/:id/status", controllers.UpdateOrderStatus)
		authed.PATCH("/orders/:id/urgency", controllers.UpdateOrderUrgency)
		authed.PATCH("/orders/:id/items/:itemId/status", controllers.UpdateItemStatus)
		authed.PATCH("/orders/:id/items/:itemId/quantity", controllers.UpdateItemQuantity)
		authed.DELETE("/orders/:id", controllers.DeleteOrder)

		// Notification feed and live event stream
		authed.GET("/notifications", controllers.ListMyNotifications)
		authed.GET("/events", controllers.StreamEvents)

		// Menu catalog writes (managers only)
		manager := authed.Group("", middleware.RequireRole(models.RoleManager))
		manager.POST("/menu", controllers.CreateMenuItem)
		manager.PATCH("/menu/:id", controllers.UpdateMenuItem)
		manager.DELETE("/menu/:id", controllers.DeleteMenuItem)
		manager.POST("/menu/:id/image", controllers.UploadMenuItemImage)
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Mesa POS API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Get list of tables
	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
