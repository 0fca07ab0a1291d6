package submissions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/internal/approval"
	"backend/internal/auth"
	"backend/internal/submission"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupHandlerTest(t *testing.T, roles ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, submission.AutoMigrate(db))

	entries := make([]approval.ChainEntry, 0, len(roles))
	for i, role := range roles {
		entries = append(entries, approval.ChainEntry{Role: role, StepOrder: i + 1})
	}
	registry, err := approval.NewRegistry(entries)
	require.NoError(t, err)

	handler := NewSubmissionHandler(submission.NewServiceWithDB(db, registry))

	router := gin.New()
	// 测试中用请求头直接注入身份，跳过 JWT 校验
	router.Use(func(c *gin.Context) {
		c.Set(auth.UserContextKey, &auth.UserContext{
			UserID: c.GetHeader("X-Test-User"),
			Name:   c.GetHeader("X-Test-Name"),
			Role:   c.GetHeader("X-Test-Role"),
		})
	})
	router.POST("/submissions", handler.Create)
	router.GET("/submissions", handler.List)
	router.GET("/submissions/pending", handler.ListPending)
	router.GET("/submissions/:id", handler.GetDetails)
	router.POST("/submissions/:id/submit", handler.Submit)
	router.POST("/submissions/:id/approve", handler.Approve)
	router.POST("/submissions/:id/reject", handler.Reject)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, userID, role string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", userID)
	req.Header.Set("X-Test-Role", role)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createAndSubmit(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/submissions",
		gin.H{"title": "Purchase request", "department": "Ops"}, "user-req", approval.RoleStaff)
	require.Equal(t, http.StatusCreated, w.Code)

	var created SubmissionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, router, http.MethodPost, "/submissions/"+created.ID+"/submit", nil, "user-req", approval.RoleStaff)
	require.Equal(t, http.StatusOK, w.Code)
	return created.ID
}

func TestCreateSubmissionEndpoint(t *testing.T) {
	router := setupHandlerTest(t, "ROLE_A")

	w := doJSON(t, router, http.MethodPost, "/submissions",
		gin.H{"title": "Purchase request", "department": "Ops"}, "user-req", approval.RoleStaff)
	require.Equal(t, http.StatusCreated, w.Code)

	var view SubmissionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Equal(t, "DRAFT", view.Status)
	require.Regexp(t, `^DOC-[0-9A-Z]{6}-\d{6}$`, view.SubmissionNumber)
	require.NotEmpty(t, view.StatusColor)
}

func TestCreateSubmissionMissingTitle(t *testing.T) {
	router := setupHandlerTest(t, "ROLE_A")

	w := doJSON(t, router, http.MethodPost, "/submissions",
		gin.H{"department": "Ops"}, "user-req", approval.RoleStaff)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitAndApproveFlow(t *testing.T) {
	router := setupHandlerTest(t, "ROLE_A", "ROLE_B")
	id := createAndSubmit(t, router)

	w := doJSON(t, router, http.MethodPost, "/submissions/"+id+"/approve",
		gin.H{"note": "ok"}, "user-a", "ROLE_A")
	require.Equal(t, http.StatusOK, w.Code)

	var view SubmissionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Equal(t, "PENDING_APPROVAL", view.Status)
	require.Equal(t, "APPROVED", view.Steps[0].Status)

	// 重复批准映射为 404
	w = doJSON(t, router, http.MethodPost, "/submissions/"+id+"/approve", nil, "user-a", "ROLE_A")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitTwiceMapsTo422(t *testing.T) {
	router := setupHandlerTest(t, "ROLE_A")
	id := createAndSubmit(t, router)

	w := doJSON(t, router, http.MethodPost, "/submissions/"+id+"/submit", nil, "user-req", approval.RoleStaff)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSubmitByOtherUserMapsTo403(t *testing.T) {
	router := setupHandlerTest(t, "ROLE_A")

	w := doJSON(t, router, http.MethodPost, "/submissions",
		gin.H{"title": "Purchase request", "department": "Ops"}, "user-req", approval.RoleStaff)
	require.Equal(t, http.StatusCreated, w.Code)
	var created SubmissionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, router, http.MethodPost, "/submissions/"+created.ID+"/submit", nil, "user-other", approval.RoleStaff)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRejectWithoutReasonMapsTo422(t *testing.T) {
	router := setupHandlerTest(t, "ROLE_A")
	id := createAndSubmit(t, router)

	w := doJSON(t, router, http.MethodPost, "/submissions/"+id+"/reject", gin.H{}, "user-a", "ROLE_A")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRejectEndpoint(t *testing.T) {
	router := setupHandlerTest(t, "ROLE_A", "ROLE_B")
	id := createAndSubmit(t, router)

	w := doJSON(t, router, http.MethodPost, "/submissions/"+id+"/reject",
		gin.H{"reason": "over budget"}, "user-b", "ROLE_B")
	require.Equal(t, http.StatusOK, w.Code)

	var view SubmissionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Equal(t, "REJECTED", view.Status)
	require.Equal(t, "PENDING", view.Steps[0].Status)
	require.Equal(t, "REJECTED", view.Steps[1].Status)
}

func TestGetDetailsNotFoundAndForbidden(t *testing.T) {
	router := setupHandlerTest(t, "ROLE_A")
	id := createAndSubmit(t, router)

	w := doJSON(t, router, http.MethodGet, "/submissions/missing-id", nil, "user-req", approval.RoleStaff)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/submissions/"+id, nil, "user-x", approval.RoleStaff)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodGet, "/submissions/"+id, nil, "user-x", approval.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPendingList(t *testing.T) {
	router := setupHandlerTest(t, "ROLE_A")
	createAndSubmit(t, router)

	w := doJSON(t, router, http.MethodGet, "/submissions/pending", nil, "user-a", "ROLE_A")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool             `json:"success"`
		Data    []SubmissionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
}
