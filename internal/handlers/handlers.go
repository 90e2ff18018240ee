package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/OkarFabianTheWise/nifes/internal/apperr"
	"github.com/OkarFabianTheWise/nifes/internal/attendance"
	"github.com/OkarFabianTheWise/nifes/internal/models"
	"github.com/OkarFabianTheWise/nifes/internal/sessions"

	"github.com/gin-gonic/gin"
)

// MemberStore is the member surface the HTTP layer needs.
type MemberStore interface {
	List(ctx context.Context) ([]models.Member, error)
	Get(ctx context.Context, id uint) (models.Member, error)
	Delete(ctx context.Context, id uint) error
}

// SessionStore is the session surface the HTTP layer needs.
type SessionStore interface {
	Create(ctx context.Context, name string) (sessions.Created, error)
	Active(ctx context.Context) (*models.Session, error)
	Get(ctx context.Context, id string) (models.Session, error)
	Stats(ctx context.Context, id string) (models.SessionStats, error)
}

// AttendanceLister lists attendance records, optionally for one session.
type AttendanceLister interface {
	Current(ctx context.Context, sessionID string) ([]models.AttendanceRecord, error)
}

// Scanner runs the scan and registration flows.
type Scanner interface {
	Scan(ctx context.Context, req attendance.ScanRequest) (attendance.ScanResult, error)
	Register(ctx context.Context, req attendance.ScanRequest) (attendance.ScanResult, error)
}

type Handler struct {
	Members    MemberStore
	Sessions   SessionStore
	Attendance AttendanceLister
	Resolver   Scanner
	Log        *slog.Logger
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API is running"})
	})
	r.POST("/scan", h.scan)

	api := r.Group("/api")
	api.GET("/members", h.getMembers)
	api.GET("/members/:id", h.getMember)
	api.POST("/members", h.createMember)
	api.DELETE("/members/:id", h.deleteMember)

	api.POST("/scan", h.scan)
	api.POST("/attendance/scan", h.scan)
	api.GET("/attendance/current", h.currentAttendance)

	api.POST("/sessions", h.createSession)
	api.GET("/sessions/active", h.activeSession)
	api.GET("/sessions/:id", h.getSession)
	api.GET("/sessions/:id/stats", h.sessionStats)
}

func (h *Handler) getMembers(c *gin.Context) {
	members, err := h.Members.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *Handler) getMember(c *gin.Context) {
	id, ok := h.memberID(c)
	if !ok {
		return
	}
	m, err := h.Members.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) createMember(c *gin.Context) {
	var req attendance.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("invalid request body: %v", err))
		return
	}
	res, err := h.Resolver.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(resultStatus(res), res)
}

func (h *Handler) deleteMember(c *gin.Context) {
	id, ok := h.memberID(c)
	if !ok {
		return
	}
	if err := h.Members.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member deleted successfully"})
}

func (h *Handler) scan(c *gin.Context) {
	var req attendance.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("invalid request body: %v", err))
		return
	}
	res, err := h.Resolver.Scan(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(resultStatus(res), res)
}

func (h *Handler) currentAttendance(c *gin.Context) {
	records, err := h.Attendance.Current(c.Request.Context(), c.Query("sessionId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

type sessionCreateReq struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) createSession(c *gin.Context) {
	var req sessionCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.Validation("invalid request body: %v", err))
		return
	}
	created, err := h.Sessions.Create(c.Request.Context(), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) activeSession(c *gin.Context) {
	s, err := h.Sessions.Active(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if s == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) getSession(c *gin.Context) {
	s, err := h.Sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) sessionStats(c *gin.Context) {
	st, err := h.Sessions.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) memberID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		h.fail(c, apperr.Validation("invalid member id %q", c.Param("id")))
		return 0, false
	}
	return uint(id), true
}

// fail writes err as a JSON error. Unclassified errors are logged and
// reported with a generic message.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger().Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err)
	}
	c.JSON(status, gin.H{"error": apperr.Message(err), "code": apperr.CodeOf(err)})
}

func (h *Handler) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}

func resultStatus(res attendance.ScanResult) int {
	switch {
	case res.Outcome == attendance.OutcomeAlreadyRecorded:
		return http.StatusOK
	case res.Outcome == attendance.OutcomeRegistered && !res.NewMember:
		return http.StatusOK
	default:
		return http.StatusCreated
	}
}
