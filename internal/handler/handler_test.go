package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"orderdoc-server/internal/models"
	"orderdoc-server/internal/pipeline"
	"orderdoc-server/internal/service"
	"orderdoc-server/pkg/ai"
	"orderdoc-server/pkg/middleware"
	"orderdoc-server/pkg/taskmanager"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type mockOrderService struct {
	mock.Mock
}

var _ service.OrderService = (*mockOrderService)(nil)

func (m *mockOrderService) CaptureRequirements(ctx context.Context, history []models.ConversationMessage) (*models.CapturedRequirements, error) {
	args := m.Called(ctx, history)
	r, _ := args.Get(0).(*models.CapturedRequirements)
	return r, args.Error(1)
}

func (m *mockOrderService) GenerateDocumentation(ctx context.Context, projectID uuid.UUID) (*models.Documentation, error) {
	args := m.Called(ctx, projectID)
	r, _ := args.Get(0).(*models.Documentation)
	return r, args.Error(1)
}

func (m *mockOrderService) GenerateDocumentationAsync(ctx context.Context, projectID uuid.UUID, ownerID string) (uuid.UUID, error) {
	args := m.Called(ctx, projectID, ownerID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockOrderService) GetTask(ctx context.Context, taskID uuid.UUID) (taskmanager.Task, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(taskmanager.Task), args.Error(1)
}

func (m *mockOrderService) RespondToMessage(ctx context.Context, projectID uuid.UUID, message string) (string, error) {
	args := m.Called(ctx, projectID, message)
	return args.String(0), args.Error(1)
}

func (m *mockOrderService) ProcessOrder(ctx context.Context, clientID, phoneNumber, initialMessage string) (*service.OrderResult, error) {
	args := m.Called(ctx, clientID, phoneNumber, initialMessage)
	r, _ := args.Get(0).(*service.OrderResult)
	return r, args.Error(1)
}

func (m *mockOrderService) StartOrContinue(ctx context.Context, clientID, phoneNumber, message string) (*service.OrderResult, error) {
	args := m.Called(ctx, clientID, phoneNumber, message)
	r, _ := args.Get(0).(*service.OrderResult)
	return r, args.Error(1)
}

func (m *mockOrderService) ApplyCapturedRequirements(ctx context.Context, projectID uuid.UUID) (*models.CapturedRequirements, error) {
	args := m.Called(ctx, projectID)
	r, _ := args.Get(0).(*models.CapturedRequirements)
	return r, args.Error(1)
}

func (m *mockOrderService) GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, projectID)
	r, _ := args.Get(0).(*models.Project)
	return r, args.Error(1)
}

func (m *mockOrderService) GetProjectByPhone(ctx context.Context, phoneNumber string) (*models.Project, error) {
	args := m.Called(ctx, phoneNumber)
	r, _ := args.Get(0).(*models.Project)
	return r, args.Error(1)
}

func (m *mockOrderService) ListProjects(ctx context.Context, params service.ListParams) (*service.ProjectPage, error) {
	args := m.Called(ctx, params)
	r, _ := args.Get(0).(*service.ProjectPage)
	return r, args.Error(1)
}

func (m *mockOrderService) ClearCache(ctx context.Context, pattern string) (int64, error) {
	args := m.Called(ctx, pattern)
	return args.Get(0).(int64), args.Error(1)
}

func setupRouter(t *testing.T, production bool) (*gin.Engine, *mockOrderService) {
	t.Helper()
	svc := &mockOrderService{}
	svc.Test(t)
	t.Cleanup(func() { svc.AssertExpectations(t) })

	router := gin.New()
	NewOrderHandler(svc, Options{Production: production, JWTSecret: testSecret}, zap.NewNop()).RegisterRoutes(router)
	return router, svc
}

func doRequest(router *gin.Engine, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := doRequest(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = doRequest(router, http.MethodHead, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestCreateOrder(t *testing.T) {
	router, svc := setupRouter(t, true)
	projectID := uuid.New()

	svc.On("StartOrContinue", mock.Anything, "c1", "+911234567890", "I need an app").
		Return(&service.OrderResult{ProjectID: projectID, Response: "Tell me more", Created: true}, nil).Once()

	w := doRequest(router, http.MethodPost, "/api/orders", `{"phoneNumber":"+911234567890","message":"I need an app","clientId":"c1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"projectId":%q,"response":"Tell me more"}`, projectID), w.Body.String())

	w = doRequest(router, http.MethodPost, "/api/orders", `{"message":"no phone"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendMessage(t *testing.T) {
	router, svc := setupRouter(t, true)
	projectID := uuid.New()

	svc.On("RespondToMessage", mock.Anything, projectID, "Budget is 5 lakh").Return("Thanks!", nil).Once()

	w := doRequest(router, http.MethodPost, "/api/orders/"+projectID.String()+"/message", `{"message":"Budget is 5 lakh"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"response":"Thanks!"`)

	w = doRequest(router, http.MethodPost, "/api/orders/not-a-uuid/message", `{"message":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServiceErrorMapping(t *testing.T) {
	projectID := uuid.New()
	providerDown := &ai.ProviderUnavailableError{Attempted: []string{"sarvam", "gemini"}, Causes: []error{errors.New("503"), errors.New("timeout")}}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "not found", err: models.ErrProjectNotFound, status: http.StatusNotFound},
		{name: "empty message", err: models.ErrEmptyMessage, status: http.StatusBadRequest},
		{name: "provider unavailable", err: providerDown, status: http.StatusServiceUnavailable},
		{name: "provider unavailable inside stage", err: &pipeline.StageFailureError{Stage: pipeline.StageReader, Err: providerDown}, status: http.StatusServiceUnavailable},
		{name: "parse failure inside stage", err: &pipeline.StageFailureError{Stage: pipeline.StageWriter, Err: &ai.ParseError{Preview: "oops"}}, status: http.StatusBadGateway},
		{name: "unknown", err: errors.New("disk full"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, svc := setupRouter(t, true)
			svc.On("GenerateDocumentation", mock.Anything, projectID).Return(nil, tt.err).Once()

			w := doRequest(router, http.MethodPost, "/api/orders/"+projectID.String()+"/generate-documentation", "")
			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.NotEmpty(t, resp.Error)
			assert.Empty(t, resp.Details, "production responses carry no details")
			assert.Empty(t, resp.Trace)
		})
	}
}

func TestServiceError_DevelopmentIncludesTrace(t *testing.T) {
	router, svc := setupRouter(t, false)
	projectID := uuid.New()
	stageErr := &pipeline.StageFailureError{Stage: pipeline.StageWriter, Err: fmt.Errorf("decode: %w", &ai.ParseError{Preview: "oops"})}
	svc.On("GenerateDocumentation", mock.Anything, projectID).Return(nil, stageErr).Once()

	w := doRequest(router, http.MethodPost, "/api/orders/"+projectID.String()+"/generate-documentation", "")
	require.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "Documentation stage writer failed", resp.Error)
	assert.Equal(t, stageErr.Error(), resp.Details)
	assert.Len(t, resp.Trace, 3)
}

func TestGenerateDocumentation_Async(t *testing.T) {
	router, svc := setupRouter(t, true)
	projectID := uuid.New()
	taskID := uuid.New()
	token, err := middleware.GenerateTestJWT("user-7", nil, testSecret, time.Minute)
	require.NoError(t, err)

	svc.On("GenerateDocumentationAsync", mock.Anything, projectID, "user-7").Return(taskID, nil).Once()
	w := doRequest(router, http.MethodPost, "/api/orders/"+projectID.String()+"/generate-documentation?async=true", "",
		"Authorization", "Bearer "+token)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"taskId":%q}`, taskID), w.Body.String())

	svc.On("GenerateDocumentationAsync", mock.Anything, projectID, "").Return(uuid.Nil, taskmanager.ErrTooManyTasks).Once()
	w = doRequest(router, http.MethodPost, "/api/orders/"+projectID.String()+"/generate-documentation?async=1", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestGetTask(t *testing.T) {
	router, svc := setupRouter(t, true)
	taskID := uuid.New()
	task := taskmanager.Task{ID: taskID, OwnerID: "user-7", Kind: service.TaskKindGenerateDocumentation, Status: taskmanager.TaskStatusRunning}
	svc.On("GetTask", mock.Anything, taskID).Return(task, nil).Twice()

	token, err := middleware.GenerateTestJWT("user-7", nil, testSecret, time.Minute)
	require.NoError(t, err)
	w := doRequest(router, http.MethodGet, "/api/tasks/"+taskID.String(), "", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"running"`)

	// Чужая задача не раскрывается.
	w = doRequest(router, http.MethodGet, "/api/tasks/"+taskID.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	unknown := uuid.New()
	svc.On("GetTask", mock.Anything, unknown).Return(taskmanager.Task{}, taskmanager.ErrTaskNotFound).Once()
	w = doRequest(router, http.MethodGet, "/api/tasks/"+unknown.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDocumentation(t *testing.T) {
	router, svc := setupRouter(t, true)
	projectID := uuid.New()
	project := &models.Project{
		ID:    projectID,
		Title: "Shop",
		Documentation: &models.Documentation{
			FullDocument: "# overview\n\nA **shop**",
			Version:      1,
		},
	}
	svc.On("GetProject", mock.Anything, projectID).Return(project, nil)

	w := doRequest(router, http.MethodGet, "/api/orders/"+projectID.String()+"/documentation", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# overview\n\nA **shop**", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")

	w = doRequest(router, http.MethodGet, "/api/orders/"+projectID.String()+"/documentation?format=html", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<strong>shop</strong>")

	w = doRequest(router, http.MethodGet, "/api/orders/"+projectID.String()+"/documentation?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDocumentation_NotGenerated(t *testing.T) {
	router, svc := setupRouter(t, true)
	projectID := uuid.New()
	svc.On("GetProject", mock.Anything, projectID).Return(&models.Project{ID: projectID}, nil).Once()

	w := doRequest(router, http.MethodGet, "/api/orders/"+projectID.String()+"/documentation", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListProjects(t *testing.T) {
	router, svc := setupRouter(t, true)
	svc.On("ListProjects", mock.Anything, service.ListParams{
		PhoneNumber: "+1",
		Status:      models.StatusDocumentation,
		Cursor:      "abc",
		Limit:       10,
	}).Return(&service.ProjectPage{NextCursor: "next"}, nil).Once()

	w := doRequest(router, http.MethodGet, "/api/orders?phoneNumber=%2B1&status=documentation&cursor=abc&limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"projects":[],"nextCursor":"next"}`, w.Body.String())

	w = doRequest(router, http.MethodGet, "/api/orders?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProjectByPhone(t *testing.T) {
	router, svc := setupRouter(t, true)
	project := &models.Project{ID: uuid.New(), PhoneNumber: "+911234567890"}
	svc.On("GetProjectByPhone", mock.Anything, "+911234567890").Return(project, nil).Once()

	w := doRequest(router, http.MethodGet, "/api/orders/phone/+911234567890", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), project.ID.String())
}

func TestClearCache_RequiresAdmin(t *testing.T) {
	router, svc := setupRouter(t, true)

	w := doRequest(router, http.MethodDelete, "/api/admin/cache", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	userToken, err := middleware.GenerateTestJWT("user-1", []string{"user"}, testSecret, time.Minute)
	require.NoError(t, err)
	w = doRequest(router, http.MethodDelete, "/api/admin/cache", "", "Authorization", "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken, err := middleware.GenerateTestJWT("admin-1", []string{"admin"}, testSecret, time.Minute)
	require.NoError(t, err)
	svc.On("ClearCache", mock.Anything, "abc*").Return(int64(12), nil).Once()
	w = doRequest(router, http.MethodDelete, "/api/admin/cache?pattern=abc*", "", "Authorization", "Bearer "+adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":12}`, w.Body.String())
}

func TestUnwrapChain(t *testing.T) {
	root := errors.New("root")
	err := fmt.Errorf("outer: %w", errors.Join(root, errors.New("sibling")))
	chain := unwrapChain(err)
	assert.Equal(t, err.Error(), chain[0])
	assert.Contains(t, chain, "root")
	assert.Contains(t, chain, "sibling")
}
