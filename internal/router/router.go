package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/Mihirdhami7/hms-api/internal/handler"
	appointmenthandler "github.com/Mihirdhami7/hms-api/internal/handler/appointment"
	notificationhandler "github.com/Mihirdhami7/hms-api/internal/handler/notification"
	prescriptionhandler "github.com/Mihirdhami7/hms-api/internal/handler/prescription"
	"github.com/Mihirdhami7/hms-api/internal/middleware"
	"github.com/Mihirdhami7/hms-api/internal/model"
	"github.com/Mihirdhami7/hms-api/pkg/metrics"
)

type Config struct {
	RateLimit  rate.Limit
	RateBurst  int
	CORSConfig middleware.CORSConfig
	Release    bool
}

type Router struct {
	engine        *gin.Engine
	auth          *middleware.AuthMiddleware
	appointmentH  *appointmenthandler.Handler
	prescriptionH *prescriptionhandler.Handler
	notificationH *notificationhandler.Handler
	healthH       *handler.HealthHandler
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	appointmentH *appointmenthandler.Handler,
	prescriptionH *prescriptionhandler.Handler,
	notificationH *notificationhandler.Handler,
	healthH *handler.HealthHandler,
	m *metrics.Metrics,
	config Config,
) *Router {
	if config.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Metrics(m),
	)
	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return &Router{
		engine:        engine,
		auth:          auth,
		appointmentH:  appointmentH,
		prescriptionH: prescriptionH,
		notificationH: notificationH,
		healthH:       healthH,
	}
}

func (r *Router) Setup() {
	health := r.engine.Group("/health")
	{
		health.GET("/live", r.healthH.LivenessCheck)
		health.GET("/ready", r.healthH.ReadinessCheck)
	}
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})
	api.Use(r.auth.Authenticate())

	r.setupAppointmentRoutes(api)
	r.setupPrescriptionRoutes(api)
	r.setupNotificationRoutes(api)
}

func (r *Router) setupAppointmentRoutes(rg *gin.RouterGroup) {
	appointments := rg.Group("/appointments")
	{
		appointments.POST("", r.appointmentH.Book)
		appointments.PATCH("/decision",
			r.auth.RequireRoles(model.RoleDoctor, model.RoleAdmin),
			r.appointmentH.Decide)
		appointments.POST("/:id/cancel", r.appointmentH.Cancel)
		appointments.POST("/:id/payments",
			r.auth.RequireRoles(model.RolePatient),
			r.appointmentH.RecordPayment)
		appointments.GET("/my", r.appointmentH.ListMine)
		appointments.GET("/pending",
			r.auth.RequireRoles(model.RoleDoctor, model.RoleAdmin),
			r.appointmentH.ListPending)
		appointments.GET("",
			r.auth.RequireRoles(model.RoleAdmin),
			r.appointmentH.ListAll)
		appointments.GET("/:id", r.appointmentH.Get)
	}
}

func (r *Router) setupPrescriptionRoutes(rg *gin.RouterGroup) {
	prescriptions := rg.Group("/prescriptions")
	{
		prescriptions.POST("",
			r.auth.RequireRoles(model.RoleDoctor),
			r.prescriptionH.Create)
		prescriptions.POST("/:id/invoice",
			r.auth.RequireRoles(model.RoleAdmin, model.RoleSupplier),
			r.prescriptionH.MarkInvoiced)
		prescriptions.GET("/my", r.prescriptionH.ListMine)
		prescriptions.GET("/pending",
			r.auth.RequireRoles(model.RoleAdmin, model.RoleSupplier),
			r.prescriptionH.ListPending)
		prescriptions.GET("",
			r.auth.RequireRoles(model.RoleAdmin),
			r.prescriptionH.ListAll)
		prescriptions.GET("/:id", r.prescriptionH.Get)
	}
}

func (r *Router) setupNotificationRoutes(rg *gin.RouterGroup) {
	notifications := rg.Group("/notifications")
	{
		notifications.GET("/my", r.notificationH.ListMine)
		notifications.POST("/:id/read", r.notificationH.MarkRead)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
