package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phonginreallife/ocmwrap/db"
	"github.com/phonginreallife/ocmwrap/internal/ocm"
	"github.com/phonginreallife/ocmwrap/services"
)

// ScheduleHandler exposes the resolution engine over HTTP.
type ScheduleHandler struct {
	ScheduleService *services.ScheduleService
	CacheService    *services.CacheService
}

func NewScheduleHandler(scheduleService *services.ScheduleService, cacheService *services.CacheService) *ScheduleHandler {
	return &ScheduleHandler{
		ScheduleService: scheduleService,
		CacheService:    cacheService,
	}
}

// GetSchedule resolves who is on call for the selected team or group on a
// date. The date comes from ?date= (separators tolerated); ?todayOnly=true or
// an absent date means today.
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	var req db.ScheduleQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	date := c.Query("date")
	if date == "" || c.Query("todayOnly") == "true" {
		date = time.Now().UTC().Format(ocm.DateLayout)
	}

	result, err := h.ScheduleService.GetSchedule(c.Request.Context(), req, date)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetUpcoming lists every shift in the next year for the selected team or group.
func (h *ScheduleHandler) GetUpcoming(c *gin.Context) {
	req := db.ScheduleQueryRequest{
		Group:     c.Query("group"),
		Team:      c.Query("team"),
		EnvPrefix: c.Query("env_prefix"),
	}

	result, err := h.ScheduleService.GetUpcoming(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetNextOnCall answers when the given user is next on call.
func (h *ScheduleHandler) GetNextOnCall(c *gin.Context) {
	entry, err := h.CacheService.GetNextOnCall(c.Request.Context(), c.Query("user"))
	if err != nil {
		renderError(c, err)
		return
	}

	name := entry.FullName
	if name == "" {
		name = entry.UserID
	}
	c.JSON(http.StatusOK, gin.H{
		"entry": entry,
		"message": fmt.Sprintf("%s is next on call for %s from %s to %s.",
			name, entry.GroupID, entry.StartTime, entry.EndTime),
	})
}

// RefreshCache rebuilds the snapshot immediately, bypassing the TTL.
func (h *ScheduleHandler) RefreshCache(c *gin.Context) {
	entries, err := h.CacheService.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Cache refreshed",
		"entries": len(entries),
	})
}

// renderError maps the service error taxonomy onto HTTP. Valid-empty outcomes
// stay 200; caller mistakes are 400; the team-list hint rides along when known.
func renderError(c *gin.Context, err error) {
	var verr *services.ValidationError
	var cfgErr *services.ConfigurationError
	var nf *services.NotFoundError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Msg})
	case errors.As(err, &cfgErr):
		resp := gin.H{"error": cfgErr.Msg}
		if len(cfgErr.ValidTeams) > 0 {
			resp["valid_teams"] = cfgErr.ValidTeams
		}
		c.JSON(http.StatusBadRequest, resp)
	case errors.As(err, &nf):
		c.JSON(http.StatusOK, gin.H{"message": nf.Msg})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
