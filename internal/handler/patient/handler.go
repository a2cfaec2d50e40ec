package patient

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/service/discharge"
	"github.com/jwalitptl/practice-api/pkg/httputil"
)

var reviewerRoles = []model.Role{model.RoleAdmin, model.RoleSupervisor}

type Config struct {
	// AutoDischargeOnGoal discharges straight away when an achieved goal makes the patient
	// eligible. When false the clinician only gets a reminder.
	AutoDischargeOnGoal bool
}

type Handler struct {
	service *discharge.Service
	config  Config
}

func NewHandler(service *discharge.Service, config Config) *Handler {
	return &Handler{service: service, config: config}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reviewers := middleware.RequireRole(reviewerRoles...)

	patients := r.Group("/patients/:id")
	{
		patients.GET("/discharge-eligibility", h.GetDischargeEligibility)
		patients.POST("/discharge", h.AutoDischarge)
		patients.POST("/discharge/manual", reviewers, h.ManualDischarge)
		patients.PATCH("/goals/:index", h.UpdateGoal)
		patients.POST("/discharge-requests", h.RequestDischarge)
		patients.POST("/discharge-requests/:requestId/review", reviewers, h.ReviewDischargeRequest)
	}

	r.GET("/reports/treatment-completion", reviewers, h.GetCompletionReport)
}

func (h *Handler) GetDischargeEligibility(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	result, err := h.service.CheckForAutoDischarge(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) AutoDischarge(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	result, err := h.service.AutoDischargePatient(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) ManualDischarge(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}
	var req model.ManualDischargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(err.Error()))
		return
	}
	actorID, ok := actor(c)
	if !ok {
		return
	}

	patient, err := h.service.ManualDischarge(c.Request.Context(), id, actorID, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patient)
}

// UpdateGoal changes one treatment goal and, when the goal was achieved, follows up with a
// discharge check.
func (h *Handler) UpdateGoal(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse("invalid goal index"))
		return
	}
	var req model.GoalUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(err.Error()))
		return
	}
	actorID, ok := actor(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	result, err := h.service.UpdateTreatmentGoal(ctx, id, index, req, actorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	resp := gin.H{"goal_update": result}
	if result.ShouldCheckDischarge {
		if h.config.AutoDischargeOnGoal {
			outcome, err := h.service.AutoDischargePatient(ctx, id)
			if err != nil {
				httputil.RespondWithError(c, err)
				return
			}
			resp["discharge"] = outcome
		} else {
			eligibility, err := h.service.RemindIfEligible(ctx, id)
			if err != nil {
				httputil.RespondWithError(c, err)
				return
			}
			resp["eligibility"] = eligibility
		}
	}
	httputil.RespondWithSuccess(c, resp)
}

func (h *Handler) RequestDischarge(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}
	var req model.CreateDischargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(err.Error()))
		return
	}
	actorID, ok := actor(c)
	if !ok {
		return
	}

	created, err := h.service.RequestDischarge(c.Request.Context(), id, actorID, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, created)
}

func (h *Handler) ReviewDischargeRequest(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}
	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse("invalid discharge request ID"))
		return
	}
	var req model.ReviewDischargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(err.Error()))
		return
	}
	actorID, ok := actor(c)
	if !ok {
		return
	}

	reviewed, err := h.service.ReviewDischargeRequest(c.Request.Context(), id, requestID, actorID, req.Approve, req.Notes)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, reviewed)
}

func (h *Handler) GetCompletionReport(c *gin.Context) {
	report, err := h.service.CalculateTreatmentCompletionRate(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, report)
}

func patientID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse("invalid patient ID"))
		return uuid.Nil, false
	}
	return id, true
}

func actor(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.NewErrorResponse("unauthenticated"))
	}
	return id, ok
}
