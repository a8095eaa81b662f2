package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"challengeapp/internal/config"
	"challengeapp/internal/middleware"
	"challengeapp/internal/observability"
	"challengeapp/internal/services"
	"challengeapp/internal/version"
)

// NewRouter creates the API router with all middleware and routes wired
func NewRouter(
	cfg *config.Config,
	userService services.UserServiceInterface,
	challengeService services.ChallengeServiceInterface,
	matiereService services.MatiereServiceInterface,
	dailyChallengeService services.DailyChallengeServiceInterface,
	logger *observability.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogging(logger))

	// Health check endpoint (defined before any middleware)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "backend"})
	})

	// OpenTelemetry middleware for HTTP tracing and context propagation
	router.Use(observability.GinMiddlewareWithErrorHandling("challenge-backend"))

	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
	}
	if cfg.Server.Debug {
		sessionOpts.SameSite = http.SameSiteDefaultMode
	} else {
		sessionOpts.SameSite = http.SameSiteLaxMode
		sessionOpts.Secure = true
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	authHandler := NewAuthHandler(userService, cfg, logger)
	challengeHandler := NewChallengeHandler(dailyChallengeService, challengeService, userService, cfg, logger)
	userHandler := NewUserHandler(userService, cfg, logger)
	matiereHandler := NewMatiereHandler(matiereService, cfg, logger)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"service":   "backend",
				"version":   version.Version,
				"commit":    version.Commit,
				"buildTime": version.BuildTime,
			})
		})

		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.ValidateRequestBody("login", logger), authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/status", authHandler.Status)
		}

		// The daily aggregated pick across the caller's subscriptions.
		v1.GET("/daily", middleware.RequireAuth(), challengeHandler.GetDaily)

		challenges := v1.Group("/challenges")
		{
			challenges.GET("/:matiere", middleware.RequireAuth(), challengeHandler.ListChallenges)
			challenges.GET("/:matiere/current", middleware.RequireAuth(), challengeHandler.GetCurrent)
			challenges.POST("", middleware.RequireAdmin(userService),
				middleware.ValidateRequestBody("challenge_create", logger), challengeHandler.CreateChallenge)
		}

		subscriptions := v1.Group("/subscriptions")
		subscriptions.Use(middleware.RequireAuth())
		{
			subscriptions.GET("", userHandler.GetSubscriptions)
			subscriptions.PUT("", middleware.ValidateRequestBody("subscriptions_update", logger), userHandler.UpdateSubscriptions)
		}

		matieres := v1.Group("/matieres")
		{
			matieres.GET("", middleware.RequireAuth(), matiereHandler.ListMatieres)
			matieres.POST("", middleware.RequireAdmin(userService),
				middleware.ValidateRequestBody("matiere_create", logger), matiereHandler.CreateMatiere)
		}
	}

	return router
}

// requestLogging logs every HTTP request through the observability logger
func requestLogging(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  latency.Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}

		switch {
		case statusCode >= 500:
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	}
}
