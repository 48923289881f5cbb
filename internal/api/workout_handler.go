package api

import (
	"fmt"
	"net/http"

	"alcyxob/fitflow/internal/domain"
	"alcyxob/fitflow/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WorkoutHandler struct {
	workoutService service.WorkoutService
}

func NewWorkoutHandler(workoutService service.WorkoutService) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService}
}

// --- Request Structs ---

type RoutineRequest struct {
	Name string `json:"name"`
}

type RenameRequest struct {
	Name string `json:"name" binding:"required"`
}

type TargetDateRequest struct {
	TargetDate string `json:"targetDate" binding:"required"`
}

// --- Handler Methods ---

// ListWorkouts godoc
// @Summary Get the calendar
// @Description Returns every workout of the authenticated user keyed by date (yyyy-MM-dd).
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]domain.Workout
// @Router /workouts [get]
func (h *WorkoutHandler) ListWorkouts(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	workouts, err := h.workoutService.ListWorkouts(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, workouts)
}

func (h *WorkoutHandler) GetWorkout(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	w, err := h.workoutService.GetWorkout(c.Request.Context(), owner, c.Param("date"))
	respondWorkout(c, http.StatusOK, w, err)
}

// CreateRoutine godoc
// @Summary Create an empty routine on a date
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param date path string true "Date (yyyy-MM-dd)"
// @Param routine body RoutineRequest false "Routine name, defaults to New Routine"
// @Success 201 {object} domain.Workout
// @Failure 409 {object} gin.H "Date already has a workout"
// @Router /workouts/{date} [post]
func (h *WorkoutHandler) CreateRoutine(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req RoutineRequest
	// the body is optional
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
			return
		}
	}
	w, err := h.workoutService.CreateRoutine(c.Request.Context(), owner, c.Param("date"), req.Name)
	respondWorkout(c, http.StatusCreated, w, err)
}

func (h *WorkoutHandler) RenameWorkout(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	w, err := h.workoutService.RenameWorkout(c.Request.Context(), owner, c.Param("date"), req.Name)
	respondWorkout(c, http.StatusOK, w, err)
}

func (h *WorkoutHandler) DeleteWorkout(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	if err := h.workoutService.DeleteWorkout(c.Request.Context(), owner, c.Param("date")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleWorkout godoc
// @Summary Log or unlog a workout
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Param date path string true "Date (yyyy-MM-dd)"
// @Success 200 {object} domain.Workout
// @Router /workouts/{date}/toggle [post]
func (h *WorkoutHandler) ToggleWorkout(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	w, err := h.workoutService.ToggleWorkout(c.Request.Context(), owner, c.Param("date"))
	respondWorkout(c, http.StatusOK, w, err)
}

func (h *WorkoutHandler) MoveWorkout(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req TargetDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	w, err := h.workoutService.MoveWorkout(c.Request.Context(), owner, c.Param("date"), req.TargetDate)
	respondWorkout(c, http.StatusOK, w, err)
}

// CopyWorkout godoc
// @Summary Copy a workout to another date
// @Description Deep copy with fresh ids; completion is cleared on the copy.
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param date path string true "Source date (yyyy-MM-dd)"
// @Param target body TargetDateRequest true "Target date"
// @Success 201 {object} domain.Workout
// @Failure 409 {object} gin.H "Target date already has a workout"
// @Router /workouts/{date}/copy [post]
func (h *WorkoutHandler) CopyWorkout(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req TargetDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	w, err := h.workoutService.CopyWorkout(c.Request.Context(), owner, c.Param("date"), req.TargetDate)
	respondWorkout(c, http.StatusCreated, w, err)
}

func (h *WorkoutHandler) AddExercise(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var in service.ExerciseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	w, err := h.workoutService.AddExercise(c.Request.Context(), owner, c.Param("date"), in)
	respondWorkout(c, http.StatusCreated, w, err)
}

func (h *WorkoutHandler) EditExercise(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var in service.ExerciseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	w, err := h.workoutService.EditExercise(c.Request.Context(), owner, c.Param("date"), c.Param("exerciseId"), in)
	respondWorkout(c, http.StatusOK, w, err)
}

func (h *WorkoutHandler) DeleteExercise(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	w, err := h.workoutService.DeleteExercise(c.Request.Context(), owner, c.Param("date"), c.Param("exerciseId"))
	respondWorkout(c, http.StatusOK, w, err)
}

func (h *WorkoutHandler) ToggleSet(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	w, err := h.workoutService.ToggleSet(c.Request.Context(), owner, c.Param("date"), c.Param("exerciseId"), c.Param("setId"))
	respondWorkout(c, http.StatusOK, w, err)
}

// Templates godoc
// @Summary Exercise templates
// @Description Latest set configuration per exercise name, sorted by name.
// @Tags Workouts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.ExerciseTemplate
// @Router /templates [get]
func (h *WorkoutHandler) Templates(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	tmpl, err := h.workoutService.Templates(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	if tmpl == nil {
		tmpl = []domain.ExerciseTemplate{}
	}
	c.JSON(http.StatusOK, tmpl)
}

// --- helpers ---

func respondWorkout(c *gin.Context, status int, w *domain.Workout, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, w)
}

// ownerFromContext aborts with 401 when the request carries no usable owner.
func ownerFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := getOwnerIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user.")
		return id, false
	}
	return id, true
}
