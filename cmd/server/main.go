package main

import (
	"log"
	"net/http"
	"os"

	_ "govichain/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"govichain/internal/auth"
	"govichain/internal/cache"
	"govichain/internal/config"
	"govichain/internal/db"
	"govichain/internal/handler"
	"govichain/internal/model"
	"govichain/internal/repository"
	"govichain/internal/router"
	"govichain/internal/service"
)

// @title Govichain API
// @version 1.0
// @description Government project monitoring system with milestone-based disbursement and role-based access.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, dropping all tables...")
		tables := []interface{}{
			&model.Milestone{},
			&model.Project{},
			&model.User{},
		}
		for _, table := range tables {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Printf("Warning: Failed to drop table (may not exist): %v", err)
			}
		}
		log.Println("Tables dropped")
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Milestone{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	projectRepo := repository.NewProjectRepository(gormDB)
	milestoneRepo := repository.NewMilestoneRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore)
	userService := service.NewUserService(userRepo)
	projectService := service.NewProjectService(projectRepo, milestoneRepo, cacheClient)
	milestoneService := service.NewMilestoneService(milestoneRepo, cacheClient)
	statsService := service.NewStatsService(projectRepo, milestoneRepo, userRepo, cacheClient)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	projectHandler := handler.NewProjectHandler(projectService)
	milestoneHandler := handler.NewMilestoneHandler(milestoneService)
	dashboardHandler := handler.NewDashboardHandler(statsService)

	// Register routes
	router.Register(
		e,
		cfg,
		gormDB,
		authHandler,
		userHandler,
		projectHandler,
		milestoneHandler,
		dashboardHandler,
	)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
