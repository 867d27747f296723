package api

import (
	"net/http"

	"gymvision/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	gymService service.GymService,
	workoutService service.WorkoutService,
	goalService service.GoalService,
	preferenceService service.PreferenceService,
	generatorService service.GeneratorService,
	coachService service.CoachService,
) {

	authHandler := NewAuthHandler(authService)
	gymHandler := NewGymHandler(gymService)
	workoutHandler := NewWorkoutHandler(workoutService)
	goalHandler := NewGoalHandler(goalService)
	preferenceHandler := NewPreferenceHandler(preferenceService)
	aiHandler := NewAIHandler(generatorService)
	coachHandler := NewCoachHandler(coachService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

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
			userID, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": userID.Hex()})
		})

		// --- Gym Routes ---
		gymGroup := protected.Group("/gyms")
		{
			gymGroup.GET("", gymHandler.ListGyms)
			gymGroup.POST("", gymHandler.CreateGym)
			gymGroup.PUT("/:id", gymHandler.UpdateGym)
			gymGroup.DELETE("/:id", gymHandler.DeleteGym)

			// --- Photo Upload (presigned S3) ---
			gymGroup.POST("/:id/image/upload-url", gymHandler.RequestImageUpload)
			gymGroup.POST("/:id/image/confirm", gymHandler.ConfirmImageUpload)
			gymGroup.GET("/:id/image", gymHandler.GetImageURL)
		}

		// --- Workout Routes ---
		workoutGroup := protected.Group("/workouts")
		{
			workoutGroup.GET("", workoutHandler.ListWorkouts)
			workoutGroup.POST("", workoutHandler.CreateWorkout)
			workoutGroup.GET("/:id", workoutHandler.GetWorkout)
			workoutGroup.PATCH("/:id/status", workoutHandler.UpdateStatus)
			workoutGroup.DELETE("/:id", workoutHandler.DeleteWorkout)

			// POST /api/v1/workouts/{id}/coach - one streamed chat turn
			workoutGroup.POST("/:id/coach", coachHandler.StreamTurn)
		}

		// --- Goal Routes ---
		goalGroup := protected.Group("/goals")
		{
			goalGroup.GET("", goalHandler.ListGoals)
			goalGroup.POST("", goalHandler.CreateGoal)
			goalGroup.PUT("/:id", goalHandler.UpdateGoal)
			goalGroup.DELETE("/:id", goalHandler.DeleteGoal)
		}

		// --- User Preferences ---
		protected.GET("/user/preferences", preferenceHandler.GetPreferences)
		protected.PATCH("/user/preferences", preferenceHandler.UpdatePreferences)

		// --- One-shot AI Routes ---
		aiGroup := protected.Group("/ai")
		{
			aiGroup.POST("/generate-workout", aiHandler.GenerateWorkout)
			aiGroup.POST("/log-workout", aiHandler.LogWorkout)
			aiGroup.POST("/scan-gym", aiHandler.ScanGym)
		}
	}
}
