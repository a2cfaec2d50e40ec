package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/service/appointment"
	"github.com/jwalitptl/practice-api/pkg/event"
	"github.com/jwalitptl/practice-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
	tracker *event.Tracker
}

func NewHandler(service *appointment.Service, tracker *event.Tracker) *Handler {
	return &Handler{service: service, tracker: tracker}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("/:id/status-recommendation", h.GetStatusRecommendation)
		appointments.PATCH("/:id/status", h.UpdateStatus)
	}
}

// RegisterAdminRoutes mounts the manual sweep trigger. The caller gates the group to admins.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/appointments/sweep", h.tracker.Track("appointment_sweep", "completed"), h.RunSweep)
}

func (h *Handler) GetStatusRecommendation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse("invalid appointment ID"))
		return
	}

	rec, err := h.service.GetStatusRecommendation(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rec)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse("invalid appointment ID"))
		return
	}

	var req model.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(err.Error()))
		return
	}

	actorID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.NewErrorResponse("unauthenticated"))
		return
	}

	apt, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status, actorID, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) RunSweep(c *gin.Context) {
	updated, err := h.service.UpdateAppointmentStatuses(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	result := gin.H{"updated": updated}
	if ctx := event.FromContext(c); ctx != nil {
		ctx.NewData = result
	}
	httputil.RespondWithSuccess(c, result)
}
