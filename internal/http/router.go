package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voyager-api/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas base.
func NewRouter(
	logger *zap.Logger,
	jwtServ *service.JWTService,
	authH *AuthHandler,
	productH *ProductHandler,
	contactH *ContactHandler,
	chatH *ChatHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/send-otp", authH.SendOTP)
	auth.POST("/verify-otp", authH.VerifyOTP)
	auth.POST("/resend-otp", authH.ResendOTP)
	auth.POST("/login", authH.Login)
	auth.POST("/forgot-password", authH.ForgotPassword)
	auth.PUT("/reset-password/:token", authH.ResetPassword)

	authed := auth.Group("")
	authed.Use(JWTAuthMiddleware(jwtServ))
	authed.GET("/me", authH.Me)
	authed.PUT("/update-profile", authH.UpdateProfile)

	products := api.Group("/products")
	products.GET("", productH.List)
	products.GET("/:id", productH.Get)

	productsAuthed := products.Group("")
	productsAuthed.Use(JWTAuthMiddleware(jwtServ))
	productsAuthed.POST("", productH.Create)
	productsAuthed.PUT("/:id", productH.Update)
	productsAuthed.DELETE("/:id", productH.Delete)

	api.POST("/contact", contactH.Send)
	api.POST("/chat", chatH.Chat)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
