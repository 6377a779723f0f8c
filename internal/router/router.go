package router

import (
	"reflect"
	"strings"
	"time"

	"store-api/internal/handlers"
	"store-api/internal/metrics"
	"store-api/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Cart     *handlers.CartHandler
	Payment  *handlers.PaymentHandler
	Order    *handlers.OrderHandler
	Product  *handlers.ProductHandler
	Health   *handlers.HealthHandler
	AuthGate gin.HandlerFunc
}

type Options struct {
	CORSOrigins []string
	Swagger     bool
}

func Router(h Handlers, opt Options, log *zap.Logger) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(metrics.Middleware())
	// cors.New паникует на пустом списке origin
	if len(opt.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opt.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	if opt.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/health", h.Health.Health)

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
	}

	products := r.Group("/products")
	{
		products.GET("", h.Product.List)
		products.GET("/:id", h.Product.Get)
		products.PATCH("/:id", h.AuthGate, middleware.AdminOnly(), h.Product.AdminUpdate)
	}

	cart := r.Group("/cart", h.AuthGate)
	{
		cart.GET("", h.Cart.GetCart)
		cart.POST("/items", h.Cart.AddItem)
		cart.PATCH("/items/:id", h.Cart.UpdateItem)
		cart.DELETE("/items/:id", h.Cart.RemoveItem)
	}

	r.POST("/payments/create-intent", h.AuthGate, h.Payment.CreateIntent)

	orders := r.Group("/orders", h.AuthGate)
	{
		orders.POST("/complete", h.Order.Complete)
		orders.GET("", h.Order.ListMine)
		orders.GET("/:id", h.Order.GetMine)
		orders.PATCH("/:id", middleware.AdminOnly(), h.Order.UpdateStatus)
		orders.DELETE("/:id", h.Order.Delete)

		admin := orders.Group("/admin", middleware.AdminOnly())
		admin.GET("/orders", h.Order.AdminList)
		admin.GET("/orders/:id", h.Order.AdminGet)
		admin.PATCH("/orders/:id", h.Order.UpdateStatus)
	}

	return r
}

// useJSONFieldNames: в ошибках валидации поле называется так же, как в JSON.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}
