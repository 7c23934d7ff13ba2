package main

import (
	_ "backend/api/swagger" // swagger docs
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"
	"context"
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Admin Console API
// @version         1.0
// @description     Multi-tenant administrative API with role-based permission grants.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	// Tenant isolation is a deployment decision, read once at startup.
	multiTenant := os.Getenv("MULTI_TENANT") == "true"
	if multiTenant {
		log.Println("Multi-tenant mode enabled")
	}

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	grantRepo := repository.NewGrantRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	auditService := service.NewAuditService(db)
	resolver := service.NewPermissionResolver(roleRepo, grantRepo, multiTenant)
	grantService := service.NewGrantService(roleRepo, grantRepo, txManager, resolver, auditService, wsHub)
	roleService := service.NewRoleService(roleRepo, grantRepo, grantService)
	userService := service.NewUserService(userRepo, roleRepo, auditService)
	noteService := service.NewNoteService(noteRepo, resolver, auditService, multiTenant)
	leadService := service.NewLeadService(leadRepo, resolver, auditService, wsHub, multiTenant)
	projectService := service.NewProjectService(projectRepo, resolver, auditService, multiTenant)
	studentService := service.NewStudentService(studentRepo, resolver, auditService, multiTenant)
	statisticsService := service.NewStatisticsService(db)

	// RequirePermission checks codes through the resolver
	middleware.InitPermissionMiddleware(resolver)

	// Seed the permission catalog, default roles, tenant and admin account (idempotent)
	if err := roleService.SeedDefaults(context.Background()); err != nil {
		log.Println("WARNING: Failed to seed default roles:", err)
	}
	if err := database.SeedDefaultTenant(db); err != nil {
		log.Println("WARNING: Failed to seed default tenant:", err)
	}
	if err := userService.SeedAdmin(context.Background()); err != nil {
		log.Println("WARNING: Failed to seed admin account:", err)
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, resolver)
	roleHandler := handler.NewRoleHandler(roleService, grantService)
	noteHandler := handler.NewNoteHandler(noteService)
	leadHandler := handler.NewLeadHandler(leadService)
	projectHandler := handler.NewProjectHandler(projectService)
	studentHandler := handler.NewStudentHandler(studentService)
	auditHandler := handler.NewAuditHandler(auditService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, service.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	roleHandler.RegisterRoutes(router.Group(""))
	noteHandler.RegisterRoutes(router.Group(""))
	leadHandler.RegisterRoutes(router.Group(""))
	projectHandler.RegisterRoutes(router.Group(""))
	studentHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	statisticsHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
