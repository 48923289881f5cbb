package api

import (
	"net/http"

	"alcyxob/fitflow/internal/metrics"
	"alcyxob/fitflow/internal/realtime"
	"alcyxob/fitflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies bundles what the HTTP layer needs from the rest of the app.
type Dependencies struct {
	AuthService      service.AuthService
	WorkoutService   service.WorkoutService
	MigrationService service.MigrationService
	ExportService    service.ExportService
	Hub              *realtime.Hub
	Metrics          *metrics.Manager
	Gatherer         prometheus.Gatherer
}

func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(PanicRecovery(deps.Metrics), RequestMetrics(deps.Metrics), LogRequest())
	SetupRoutes(router, deps)
	return router
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	authHandler := NewAuthHandler(deps.AuthService)
	workoutHandler := NewWorkoutHandler(deps.WorkoutService)
	streamHandler := NewStreamHandler(deps.Hub)
	migrationHandler := NewMigrationHandler(deps.MigrationService)
	exportHandler := NewExportHandler(deps.ExportService)

	authMiddleware := AuthMiddleware(deps.AuthService)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			owner, ok := ownerFromContext(c)
			if !ok {
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": owner.Hex()})
		})

		workouts := protected.Group("/workouts")
		{
			workouts.GET("", workoutHandler.ListWorkouts)
			workouts.GET("/stream", streamHandler.Stream)

			workouts.GET("/:date", workoutHandler.GetWorkout)
			workouts.POST("/:date", workoutHandler.CreateRoutine)
			workouts.PATCH("/:date", workoutHandler.RenameWorkout)
			workouts.DELETE("/:date", workoutHandler.DeleteWorkout)

			workouts.POST("/:date/toggle", workoutHandler.ToggleWorkout)
			workouts.POST("/:date/move", workoutHandler.MoveWorkout)
			workouts.POST("/:date/copy", workoutHandler.CopyWorkout)

			workouts.POST("/:date/exercises", workoutHandler.AddExercise)
			workouts.PUT("/:date/exercises/:exerciseId", workoutHandler.EditExercise)
			workouts.DELETE("/:date/exercises/:exerciseId", workoutHandler.DeleteExercise)
			workouts.POST("/:date/exercises/:exerciseId/sets/:setId/toggle", workoutHandler.ToggleSet)
		}

		protected.GET("/templates", workoutHandler.Templates)

		protected.GET("/migrate-workouts", migrationHandler.Usage)
		protected.POST("/migrate-workouts", migrationHandler.Migrate)

		protected.POST("/exports", exportHandler.CreateExport)
	}
}
