package bootstrap

import (
	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pulsecheck-labs/pulsecheck-backend/config"
	httpapi "github.com/pulsecheck-labs/pulsecheck-backend/internal/api/http"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/api/http/middleware"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/catalog"
	assesshttp "github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/http"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/lifecycle"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/repository"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/service"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/auth"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/cache"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/documents"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/payments"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/users"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	Config      *config.Config
	DB          *pgxpool.Pool
	Redis       *redis.Client
	Auth        *firebaseauth.Client // nil in development: X-User-Id fallback
	Presigner   *documents.Presigner // nil disables document uploads
	Catalog     *catalog.Catalog
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-User-Id", "X-Request-Id")
	r.Use(cors.New(corsCfg))
	r.Use(middleware.RequestIDMiddleware())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB)
	healthHandler.RegisterRoutes(r)

	assessmentRepo := repository.NewAssessmentRepository(dep.DB)
	responseRepo := repository.NewResponseRepository(dep.DB)
	analysisRepo := repository.NewAnalysisRepository(dep.DB)
	documentRepo := documents.NewRepo(dep.DB)
	userRepo := users.NewRepo(dep.DB)

	var progressCache *cache.ProgressCache
	var sink lifecycle.ProgressSink
	if dep.Redis != nil {
		progressCache = cache.NewProgressCache(dep.Redis)
		sink = progressCache
	}

	machine := lifecycle.NewMachine(assessmentRepo, responseRepo, dep.Catalog, sink)
	checkout := payments.NewCheckout(dep.Config.Payments.CheckoutBaseURL, dep.Config.Payments.WebhookSecret)
	svc := service.New(assessmentRepo, responseRepo, analysisRepo, machine, progressCache, checkout, dep.Catalog)

	// Gateway callbacks authenticate by signature, not by user token.
	webhook := payments.NewWebhookHandler(dep.Config.Payments.WebhookSecret, machine, assessmentRepo)
	webhook.Register(r)

	api := r.Group("/api/v1")
	if dep.Auth != nil {
		api.Use(auth.RequireUser(dep.Auth, userRepo))
	} else {
		api.Use(auth.DevUser(userRepo))
	}

	assessGroup := api.Group("/assessments")
	assesshttp.Register(assessGroup, assesshttp.NewHandler(svc))

	docHandler := documents.NewHandler(documentRepo, dep.Presigner, assessmentRepo)
	documents.RegisterAssessmentSubroutes(assessGroup, docHandler)

	return r
}
