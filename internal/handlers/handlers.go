package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"transitadmin/internal/activity"
	"transitadmin/internal/config"
	"transitadmin/internal/metrics"
	"transitadmin/internal/middleware"
	"transitadmin/internal/models"
	"transitadmin/internal/service"
	"transitadmin/internal/store"
)

// Deps is everything the HTTP layer needs; cmd/api builds it once.
type Deps struct {
	Config        *config.AppConfig
	Log           zerolog.Logger
	Store         store.Adapter
	Cache         *redis.Client
	Metrics       *metrics.Metrics
	Activity      activity.Log
	Auth          *service.AuthService
	Verifications *service.VerificationService
	Submissions   *service.SubmissionService
	Accounts      *service.AccountService
	VehicleTypes  *service.VehicleTypeService
	Fleet         *service.FleetService
	Dashboard     *service.DashboardService
}

type HandlerSet struct {
	log           zerolog.Logger
	cfg           *config.AppConfig
	store         store.Adapter
	cache         *redis.Client
	metrics       *metrics.Metrics
	activity      activity.Log
	auth          *service.AuthService
	verifications *service.VerificationService
	submissions   *service.SubmissionService
	accounts      *service.AccountService
	vehicleTypes  *service.VehicleTypeService
	fleet         *service.FleetService
	dashboard     *service.DashboardService
}

func NewHandlerSet(deps Deps) HandlerSet {
	activityLog := deps.Activity
	if activityLog == nil {
		activityLog = activity.Nop{}
	}
	return HandlerSet{
		log:           deps.Log,
		cfg:           deps.Config,
		store:         deps.Store,
		cache:         deps.Cache,
		metrics:       deps.Metrics,
		activity:      activityLog,
		auth:          deps.Auth,
		verifications: deps.Verifications,
		submissions:   deps.Submissions,
		accounts:      deps.Accounts,
		vehicleTypes:  deps.VehicleTypes,
		fleet:         deps.Fleet,
		dashboard:     deps.Dashboard,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/login", h.Login)
	auth.POST("/access-key", h.AccessKeyLogin)

	protected := v1.Group("")
	protected.Use(middleware.Auth(h.auth))
	if h.cfg != nil && h.cfg.Security.RequireSignature && h.cache != nil {
		protected.Use(middleware.Signature(h.cfg.Security, h.cache, h.log))
	}

	protected.GET("/auth/me", h.Me)
	protected.POST("/auth/logout", h.Logout)
	protected.POST("/verifications", h.SubmitVerification)
	protected.GET("/my/verifications", h.MyVerifications)
	protected.GET("/vehicle-types", h.ListVehicleTypes)

	admin := protected.Group("")
	admin.Use(middleware.RequireRoles(models.UserRoleAdmin))

	admin.GET("/dashboard/stats", h.DashboardStats)
	admin.GET("/activity", h.ListActivity)

	verifications := admin.Group("/verifications")
	verifications.GET("", h.ListVerifications)
	verifications.GET("/attention", h.VerificationsNeedingAttention)
	verifications.GET("/stats", h.VerificationStats)
	verifications.GET("/:id", h.GetVerification)
	verifications.POST("/:id/accept", h.AcceptVerification)
	verifications.POST("/:id/reject", h.RejectVerification)
	verifications.PUT("/:id/expiration", h.UpdateExpirationDate)
	verifications.POST("/:id/revalidate", h.RevalidateVerification)
	verifications.POST("/:id/mark-revalidation", h.MarkForRevalidation)
	verifications.POST("/:id/notify", h.NotifyAboutExpiration)
	verifications.POST("/:id/invalidate", h.InvalidateVerification)

	accounts := admin.Group("/accounts")
	accounts.GET("", h.ListAccounts)
	accounts.POST("", h.CreateAccount)
	accounts.POST("/organizations", h.CreateOrganization)
	accounts.GET("/:id", h.GetAccount)
	accounts.DELETE("/:id", h.DeleteAccount)
	accounts.PATCH("/:id/status", h.ToggleAccountStatus)
	accounts.POST("/:id/access-key", h.RegenerateAccessKey)
	accounts.POST("/:id/master-key", h.RegenerateMasterKey)
	accounts.GET("/:id/sub-accounts", h.ListSubAccounts)
	accounts.GET("/:id/vehicles", h.ListFleet)
	accounts.POST("/:id/vehicles", h.SaveVehicle)

	vehicleTypes := admin.Group("/vehicle-types")
	vehicleTypes.POST("", h.CreateVehicleType)
	vehicleTypes.GET("/:id", h.GetVehicleType)
	vehicleTypes.PATCH("/:id", h.UpdateVehicleType)
	vehicleTypes.DELETE("/:id", h.DeleteVehicleType)
}
