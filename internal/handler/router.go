package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/middleware"
	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/repository"
	"github.com/noah-isme/smartsql-client/internal/service"
	"github.com/noah-isme/smartsql-client/pkg/config"
	"github.com/noah-isme/smartsql-client/pkg/logger"
	corsmiddleware "github.com/noah-isme/smartsql-client/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/smartsql-client/pkg/middleware/requestid"
)

// APIPrefix is the mount point of the REST API.
const APIPrefix = "/api"

// RouterConfig wires the development backend.
type RouterConfig struct {
	Store          *repository.LMSStore
	Tokens         *service.TokenService
	Metrics        *service.MetricsService
	Logger         *zap.Logger
	Env            string
	AllowedOrigins []string
}

// NewRouter builds the gin engine serving the SmartSQL REST contract.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logr := cfg.Logger
	if logr == nil {
		logr = zap.NewNop()
	}
	validate := service.NewValidator()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(corsmiddleware.DefaultConfig(cfg.AllowedOrigins)))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	var counter StoreCounter
	if cfg.Store != nil {
		counter = cfg.Store
	}
	metricsHandler := NewMetricsHandler(cfg.Metrics, counter)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var recorder interface {
		SubmissionRecorder
		ChatRecorder
	}
	if cfg.Metrics != nil {
		recorder = cfg.Metrics
	}

	authHandler := NewAuthHandler(cfg.Store, cfg.Tokens, validate, logr)
	courseHandler := NewCourseHandler(cfg.Store, validate)
	moduleHandler := NewModuleHandler(cfg.Store, validate)
	exerciseHandler := NewExerciseHandler(cfg.Store, validate)
	studentHandler := NewStudentHandler(cfg.Store, validate, logr)
	messageHandler := NewMessageHandler(cfg.Store, validate)
	profileHandler := NewProfileHandler(cfg.Store, validate)
	learningHandler := NewLearningHandler(cfg.Store, validate, recorder, logr)
	chatHandler := NewChatHandler(cfg.Store, recorder, logr)

	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(logr, action, resource)
	}

	api := r.Group(APIPrefix)
	api.POST("/login/", authHandler.Login)
	api.POST("/signup/", authHandler.Signup)

	secured := api.Group("")
	secured.Use(middleware.JWT(cfg.Tokens))
	secured.GET("/users/profile/", profileHandler.Get)
	secured.PUT("/users/profile/update/", audit("UPDATE", "profile"), profileHandler.Update)
	secured.POST("/messages/", audit("CREATE", "message"), messageHandler.Direct)
	secured.POST("/ai/chat/", chatHandler.Chat)

	instructor := secured.Group("/instructor")
	instructor.Use(middleware.RequireRoles(models.RoleInstructor))
	{
		instructor.GET("/dashboard/", studentHandler.Dashboard)

		instructor.GET("/courses/", courseHandler.List)
		instructor.POST("/courses/insert/", audit("CREATE", "course"), courseHandler.Create)
		instructor.PUT("/courses/update/", audit("UPDATE", "course"), courseHandler.Update)
		instructor.DELETE("/courses/delete/", audit("DELETE", "course"), courseHandler.Delete)
		instructor.GET("/courses/:id/", courseHandler.Get)
		instructor.GET("/courses/:id/modules/", courseHandler.Modules)

		instructor.GET("/modules/", moduleHandler.List)
		instructor.POST("/modules/", audit("CREATE", "module"), moduleHandler.Create)
		instructor.GET("/modules/:id/", moduleHandler.Get)
		instructor.PUT("/modules/:id/", audit("UPDATE", "module"), moduleHandler.Update)
		instructor.DELETE("/modules/:id/", audit("DELETE", "module"), moduleHandler.Delete)
		instructor.GET("/modules/:id/exercises/", moduleHandler.Exercises)

		instructor.GET("/exercises/", exerciseHandler.List)
		instructor.POST("/exercises/", audit("CREATE", "exercise"), exerciseHandler.Create)
		instructor.GET("/exercises/:id/", exerciseHandler.Get)
		instructor.PUT("/exercises/:id/", audit("UPDATE", "exercise"), exerciseHandler.Update)
		instructor.DELETE("/exercises/:id/", audit("DELETE", "exercise"), exerciseHandler.Delete)

		instructor.GET("/students/", studentHandler.List)
		instructor.GET("/students/:id/progress/", studentHandler.Progress)
		instructor.GET("/students/:id/knowledge-graph/", studentHandler.KnowledgeGraph)
		instructor.GET("/students/:id/error-logs/", studentHandler.ErrorLogs)
		instructor.PUT("/scores/update/", audit("UPDATE", "grade"), studentHandler.UpdateGrade)

		instructor.GET("/recipients/", messageHandler.Recipients)
		instructor.GET("/messages/", messageHandler.List)
		instructor.POST("/messages/", audit("CREATE", "message"), messageHandler.Send)
	}

	student := secured.Group("/student")
	student.Use(middleware.RequireRoles(models.RoleStudent))
	{
		student.GET("/dashboard/", learningHandler.Dashboard)
		student.GET("/browse-courses/", learningHandler.Browse)
		student.GET("/courses/", learningHandler.Courses)
		student.POST("/courses/:id/enroll/", audit("CREATE", "enrollment"), learningHandler.Enroll)
		student.GET("/courses/:id/modules/", learningHandler.Modules)
		student.GET("/courses/:id/modules/:module_id/exercises/", learningHandler.Exercises)
		student.GET("/exercises/:id/", learningHandler.Exercise)
		student.POST("/exercises/:id/submit/", audit("CREATE", "submission"), learningHandler.Submit)
		student.GET("/progress/", learningHandler.Progress)
		student.GET("/knowledge-graph/", learningHandler.KnowledgeGraph)
		student.GET("/error-logs/", learningHandler.ErrorLogs)
		student.GET("/messages/", learningHandler.Inbox)
	}

	return r
}
