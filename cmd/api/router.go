package main

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/coursetrack-api/internal/handler"
	"github.com/noah-isme/coursetrack-api/internal/middleware"
	"github.com/noah-isme/coursetrack-api/internal/models"
	"github.com/noah-isme/coursetrack-api/internal/repository"
	"github.com/noah-isme/coursetrack-api/internal/service"
	"github.com/noah-isme/coursetrack-api/pkg/config"
	"github.com/noah-isme/coursetrack-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/coursetrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/coursetrack-api/pkg/middleware/requestid"
)

type routerDeps struct {
	auth      *service.AuthService
	metrics   *service.MetricsService
	audit     *repository.UserRepository
	imports   *handler.ImportHandler
	reports   *handler.ImportReportHandler
	readiness *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", deps.readiness.Health)
	r.GET("/ready", deps.readiness.Ready)
	r.GET("/metrics", deps.readiness.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := strings.TrimRight("/"+strings.Trim(cfg.APIPrefix, "/"), "/")
	admin := r.Group(prefix + "/admin")
	admin.Use(middleware.JWT(deps.auth), middleware.RequireRoles(models.UserTypeAdmin), middleware.WithResponseMeta())

	admin.POST("/bulk-students", deps.imports.BulkStudents)
	admin.POST("/bulk-faculty", deps.imports.BulkFaculty)
	admin.POST("/bulk-courses", deps.imports.BulkCourses)

	admin.GET("/bulk-templates/:kind", audited(deps.audit, models.AuditActionTemplateExport, "import_templates", "kind"), deps.reports.Template)
	admin.GET("/imports/:id", deps.reports.Summary)
	admin.GET("/imports/:id/report", audited(deps.audit, models.AuditActionReportDownload, "import_reports", "id"), deps.reports.Report)

	return r
}

func audited(repo *repository.UserRepository, action, resource, param string) gin.HandlerFunc {
	if repo == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.Audit(repo, action, resource, param)
}
