package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"gorm.io/gorm"

	"govichain/internal/auth"
	"govichain/internal/config"
	"govichain/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	projectHandler *handler.ProjectHandler,
	milestoneHandler *handler.MilestoneHandler,
	dashboardHandler *handler.DashboardHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request().Context())
		}
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unhealthy", "database": "disconnected"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "healthy", "database": "connected"})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	// Secured routes (require JWT authentication)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.JWTSecret),
		TokenLookup: "header:" + echo.HeaderAuthorization,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(auth.Claims)
		},
	}))

	// User routes
	secured.GET("/users/me", userHandler.Me)
	secured.GET("/users", userHandler.ListAll)
	secured.GET("/users/:id", userHandler.Get)

	// Project routes
	secured.POST("/projects", projectHandler.Create)
	secured.GET("/projects", projectHandler.ListAll)
	secured.GET("/projects/my-projects", projectHandler.ListMine)
	secured.GET("/projects/filter/by-status", projectHandler.FilterByStatus)
	secured.GET("/projects/:id", projectHandler.Get)
	secured.PUT("/projects/:id/status", projectHandler.SetStatus)
	secured.DELETE("/projects/:id", projectHandler.Delete)
	secured.GET("/projects/:id/progress", projectHandler.Progress)

	// Milestone routes
	secured.POST("/milestones", milestoneHandler.Create)
	secured.GET("/milestones/my-milestones", milestoneHandler.ListMine)
	secured.GET("/milestones/filter/by-status", milestoneHandler.FilterByStatus)
	secured.GET("/milestones/project/:project_id", milestoneHandler.ListForProject)
	secured.GET("/milestones/:id", milestoneHandler.Get)
	secured.PUT("/milestones/:id/approve", milestoneHandler.Approve)
	secured.PUT("/milestones/:id/flag", milestoneHandler.Flag)

	// Dashboard routes
	secured.GET("/dashboard/stats", dashboardHandler.Stats)
	secured.GET("/dashboard/my-stats", dashboardHandler.MyStats)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
