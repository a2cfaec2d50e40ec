package notification

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/realtime"
	"github.com/jwalitptl/practice-api/internal/service/notification"
	"github.com/jwalitptl/practice-api/pkg/event"
	"github.com/jwalitptl/practice-api/pkg/httputil"
)

const defaultPageSize = 20

var preferenceFields = []string{
	"email_notifications",
	"appointment_reminders",
	"patient_updates",
	"system_alerts",
	"reminder_timing",
	"quiet_hours",
}

type Handler struct {
	service *notification.Service
	tracker *event.Tracker
}

func NewHandler(service *notification.Service, tracker *event.Tracker) *Handler {
	return &Handler{service: service, tracker: tracker}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.List)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.GET("/stats", h.Stats)
		notifications.PATCH("/read-all", h.MarkAllAsRead)
		notifications.PATCH("/:id/read", h.MarkAsRead)
		notifications.DELETE("/:id", h.Delete)
		notifications.GET("/preferences", h.GetPreferences)
		notifications.PUT("/preferences", h.tracker.Track("preferences", "updated"), h.UpdatePreferences)
	}
}

// RegisterAdminRoutes mounts maintenance endpoints. The caller gates the group to admins.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.DELETE("/notifications/expired", h.CleanupExpired)
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var opts model.NotificationListOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(err.Error()))
		return
	}
	if opts.Limit == 0 {
		opts.Limit = defaultPageSize
	}

	items, total, err := h.service.GetUserNotifications(c.Request.Context(), userID, &opts)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, items, opts.Limit, opts.Offset, total)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	count, err := h.service.GetUnreadCount(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"count": count})
}

func (h *Handler) Stats(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	stats, err := h.service.GetNotificationStats(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats)
}

func (h *Handler) MarkAsRead(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse("invalid notification ID"))
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), id, userID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) MarkAllAsRead(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	n, err := h.service.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"updated": n})
}

func (h *Handler) Delete(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse("invalid notification ID"))
		return
	}

	if err := h.service.DeleteNotification(c.Request.Context(), id, userID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) GetPreferences(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	prefs, err := h.service.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, prefs)
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}
	var req model.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httputil.NewErrorResponse(err.Error()))
		return
	}

	ctx := c.Request.Context()
	before, err := h.service.GetPreferences(ctx, userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	prefs, err := h.service.UpdatePreferences(ctx, userID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if eventCtx := event.FromContext(c); eventCtx != nil {
		eventCtx.Room = realtime.UserRoom(userID)
		eventCtx.OldData = before
		eventCtx.NewData = prefs
		eventCtx.Fields = preferenceFields
	}
	httputil.RespondWithSuccess(c, prefs)
}

func (h *Handler) CleanupExpired(c *gin.Context) {
	n, err := h.service.CleanupExpiredNotifications(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": n})
}

func caller(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.NewErrorResponse("unauthenticated"))
	}
	return id, ok
}
