package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/OkarFabianTheWise/nifes/internal/models"
	"github.com/OkarFabianTheWise/nifes/internal/testkit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRouterWithDB(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testkit.NewDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(db, testkit.StaticRenderer{}, "http://localhost:3000", log)
	return NewEngine(h, "https://fellowship-attendance.vercel.app"), db
}

func httpDo(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type scanResp struct {
	Outcome    string                   `json:"outcome"`
	Message    string                   `json:"message"`
	NewMember  bool                     `json:"newMember"`
	Member     models.Member            `json:"member"`
	Attendance *models.AttendanceRecord `json:"attendance"`
}

type sessionResp struct {
	models.Session
	QRCodeImage string `json:"qrCodeImage"`
}

func createSession(t *testing.T, r *gin.Engine, name string) sessionResp {
	t.Helper()
	w := httpDo(r, "POST", "/api/sessions", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var s sessionResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	return s
}

func TestHealth(t *testing.T) {
	r, _ := setupRouterWithDB(t)
	w := httpDo(r, "GET", "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"message":"API is running"}`, w.Body.String())
}

func TestSessionLifecycle(t *testing.T) {
	r, _ := setupRouterWithDB(t)

	// No session yet: empty object, not an error
	w := httpDo(r, "GET", "/api/sessions/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{}`, w.Body.String())

	sunday := createSession(t, r, "Sunday Service")
	require.True(t, sunday.IsActive)
	require.Equal(t, "http://localhost:3000/attend/"+sunday.ID, sunday.QRData)
	require.NotEmpty(t, sunday.QRCodeImage)

	study := createSession(t, r, "Bible Study")

	w = httpDo(r, "GET", "/api/sessions/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var active models.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &active))
	require.Equal(t, study.ID, active.ID)

	w = httpDo(r, "GET", "/api/sessions/"+sunday.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var old models.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &old))
	require.False(t, old.IsActive)

	w = httpDo(r, "GET", "/api/sessions/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	// Missing or empty name fails binding
	for _, body := range []any{map[string]string{}, map[string]string{"name": ""}} {
		w = httpDo(r, "POST", "/api/sessions", body)
		require.Equal(t, http.StatusBadRequest, w.Code)
		var m map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
		require.Contains(t, m["error"], "invalid request body")
		require.Equal(t, "VALIDATION", m["code"])
	}

	// Blank name passes binding and is rejected after trimming
	w = httpDo(r, "POST", "/api/sessions", map[string]string{"name": "   "})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var m map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	require.Equal(t, "session name is required", m["error"])
	require.Equal(t, "VALIDATION", m["code"])
}

func TestScanFlow(t *testing.T) {
	r, _ := setupRouterWithDB(t)
	s := createSession(t, r, "Sunday Service")
	body := map[string]string{"sessionId": s.ID, "name": "Chidi", "phone": "+234-800-000"}

	w := httpDo(r, "POST", "/api/scan", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first scanResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.Equal(t, "recorded", first.Outcome)
	require.Equal(t, "New member registered and marked present", first.Message)
	require.True(t, first.NewMember)
	require.True(t, first.Attendance.IsFirstTime)

	// every scan route runs the same state machine
	for _, path := range []string{"/api/scan", "/api/attendance/scan", "/scan"} {
		w = httpDo(r, "POST", path, body)
		require.Equal(t, http.StatusOK, w.Code, path)
		var again scanResp
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
		require.Equal(t, "already_recorded", again.Outcome, path)
		require.Equal(t, first.Member.ID, again.Member.ID)
	}

	w = httpDo(r, "GET", "/api/sessions/"+s.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st models.SessionStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.Equal(t, int64(1), st.Total)
	require.Equal(t, int64(1), st.FirstTimers)
	require.Equal(t, int64(0), st.Absent)

	w = httpDo(r, "GET", "/api/attendance/current", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []models.AttendanceRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	require.Equal(t, "Chidi", records[0].Member.Name)
	require.Equal(t, "Sunday Service", records[0].Session.Name)
}

func TestScanErrors(t *testing.T) {
	r, _ := setupRouterWithDB(t)
	s := createSession(t, r, "Sunday Service")

	w := httpDo(r, "POST", "/api/scan", map[string]string{"name": "A", "phone": "1"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httpDo(r, "POST", "/api/scan", map[string]string{"sessionId": s.ID, "name": "A"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httpDo(r, "POST", "/api/scan", map[string]string{"sessionId": "missing", "name": "A", "phone": "1"})
	require.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest("POST", "/api/scan", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMemberCRUD(t *testing.T) {
	r, db := setupRouterWithDB(t)

	// Plain registration
	w := httpDo(r, "POST", "/api/members", map[string]string{"name": "Alice", "email": "alice@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var a scanResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	require.Equal(t, "registered", a.Outcome)
	require.NotZero(t, a.Member.ID)
	require.NotEmpty(t, a.Member.MemberCode)

	// Registering the same email again returns the stored member
	w = httpDo(r, "POST", "/api/members", map[string]string{"name": "Alice B", "email": "alice@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	var again scanResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
	require.Equal(t, a.Member.ID, again.Member.ID)
	require.Equal(t, "Alice", again.Member.Name)

	// Register + mark present
	s := createSession(t, r, "Sunday Service")
	w = httpDo(r, "POST", "/api/members", map[string]string{"name": "Bob", "phone": "+234-2", "sessionId": s.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	var b scanResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	require.Equal(t, "recorded", b.Outcome)
	require.NotNil(t, b.Attendance)

	// A new email with a known phone resolves to the phone's member
	w = httpDo(r, "POST", "/api/members", map[string]string{"name": "Bobby", "email": "bobby@example.com", "phone": "+234-2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var bobby scanResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bobby))
	require.Equal(t, b.Member.ID, bobby.Member.ID)
	require.Equal(t, "Bob", bobby.Member.Name)
	require.Nil(t, bobby.Member.Email)

	// List members
	w = httpDo(r, "GET", "/api/members", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var members []models.Member
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &members))
	require.Len(t, members, 2)

	// Get member
	bID := strconv.FormatUint(uint64(b.Member.ID), 10)
	w = httpDo(r, "GET", "/api/members/"+bID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Delete member cascades attendance
	w = httpDo(r, "DELETE", "/api/members/"+bID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var count int64
	require.NoError(t, db.Model(&models.AttendanceRecord{}).Where("member_id = ?", b.Member.ID).Count(&count).Error)
	require.Equal(t, int64(0), count)

	// Getting or deleting a deleted member returns 404
	w = httpDo(r, "GET", "/api/members/"+bID, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = httpDo(r, "DELETE", "/api/members/"+bID, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = httpDo(r, "DELETE", "/api/members/abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

type failingLister struct{}

func (failingLister) Current(context.Context, string) ([]models.AttendanceRecord, error) {
	return nil, errors.New("disk I/O error")
}

func TestCurrentAttendanceStoreFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logged bytes.Buffer
	h := New(testkit.NewDB(t), testkit.StaticRenderer{}, "http://localhost:3000", slog.New(slog.NewTextHandler(&logged, nil)))
	h.Attendance = failingLister{}
	r := NewEngine(h, "*")

	w := httpDo(r, "GET", "/api/attendance/current", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var m map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	require.Equal(t, "INTERNAL", m["code"])
	require.NotContains(t, m["error"], "disk I/O")
	require.Contains(t, logged.String(), "disk I/O error")
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r, _ := setupRouterWithDB(t)
	req := httptest.NewRequest("OPTIONS", "/api/members", nil)
	req.Header.Set("Origin", "https://fellowship-attendance.vercel.app")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "https://fellowship-attendance.vercel.app", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/api/members", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}
