package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NotifyFlow/internal/contract"
	"NotifyFlow/internal/delivery/handlers"
	"NotifyFlow/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockService мок для NotificationService
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateNotification(ctx context.Context, params domain.CreateNotificationParams) (*domain.Notification, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockService) GetByCorrelationID(ctx context.Context, correlationID string) (*domain.Notification, error) {
	args := m.Called(ctx, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockService) ApplyReceipt(ctx context.Context, receipt contract.DeliveryReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

// MockAdmin мок для QueueAdmin
type MockAdmin struct {
	mock.Mock
}

func (m *MockAdmin) PurgeQueue(alias string) (int, error) {
	args := m.Called(alias)
	return args.Int(0), args.Error(1)
}

func (m *MockAdmin) PurgeAll() (map[string]int, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func setupRouter(service *MockService, admin *MockAdmin) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	h := handlers.NewHandlersSet(service, admin)
	router.POST("/notify", h.CreateNotificationHandler)
	router.GET("/notify/:correlation_id", h.GetNotificationHandler)
	router.POST("/admin/queues/purge", h.PurgeAllQueuesHandler)
	router.POST("/admin/queues/:alias/purge", h.PurgeQueueHandler)
	return router
}

func sampleNotification() *domain.Notification {
	now := time.Now()
	return &domain.Notification{
		ID:            uuid.New(),
		Recipient:     "user@example.com",
		Subject:       "Добро пожаловать",
		Channel:       contract.ChannelEmail,
		Template:      contract.TemplateWelcome,
		CorrelationID: "corr-1",
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func createBody() []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"recipient":    "user@example.com",
		"subject":      "Добро пожаловать",
		"channels":     []string{"email"},
		"template":     "WELCOME",
		"payload_type": "welcome",
		"payload": map[string]string{
			"user_name":       "ivan",
			"activation_link": "https://example.com/a",
		},
	})
	return body
}

func TestCreateNotificationHandler_Success(t *testing.T) {
	service := new(MockService)
	admin := new(MockAdmin)

	service.On("CreateNotification", mock.Anything, mock.MatchedBy(func(p domain.CreateNotificationParams) bool {
		welcome, ok := p.Payload.(contract.WelcomePayload)
		return ok && welcome.UserName == "ivan" &&
			len(p.Channels) == 1 && p.Channels[0] == contract.ChannelEmail
	})).Return(sampleNotification(), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notify", bytes.NewReader(createBody()))
	req.Header.Set("Content-Type", "application/json")
	setupRouter(service, admin).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)

	var resp map[string]handlers.NotificationResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "corr-1", resp["result"].CorrelationID)
	assert.Equal(t, "pending", resp["result"].Status)
}

func TestCreateNotificationHandler_InvalidJSON(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notify", bytes.NewReader([]byte("{not json")))
	setupRouter(new(MockService), new(MockAdmin)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateNotificationHandler_MissingFields(t *testing.T) {
	body, _ := json.Marshal(map[string]interface{}{"recipient": "user@example.com"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notify", bytes.NewReader(body))
	setupRouter(new(MockService), new(MockAdmin)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateNotificationHandler_UnsupportedChannel(t *testing.T) {
	body, _ := json.Marshal(map[string]interface{}{
		"recipient":    "user@example.com",
		"subject":      "s",
		"channels":     []string{"push"},
		"template":     "WELCOME",
		"payload_type": "welcome",
		"payload":      map[string]string{"user_name": "ivan"},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notify", bytes.NewReader(body))
	setupRouter(new(MockService), new(MockAdmin)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateNotificationHandler_UnknownPayloadType(t *testing.T) {
	body, _ := json.Marshal(map[string]interface{}{
		"recipient":    "user@example.com",
		"subject":      "s",
		"channels":     []string{"email"},
		"template":     "WELCOME",
		"payload_type": "push_token",
		"payload":      map[string]string{"token": "abc"},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notify", bytes.NewReader(body))
	setupRouter(new(MockService), new(MockAdmin)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetNotificationHandler_Success(t *testing.T) {
	service := new(MockService)

	service.On("GetByCorrelationID", mock.Anything, "corr-1").Return(sampleNotification(), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notify/corr-1", nil)
	setupRouter(service, new(MockAdmin)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetNotificationHandler_NotFound(t *testing.T) {
	service := new(MockService)

	service.On("GetByCorrelationID", mock.Anything, "corr-missing").Return(nil, domain.ErrNotFound)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notify/corr-missing", nil)
	setupRouter(service, new(MockAdmin)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPurgeQueueHandler_Success(t *testing.T) {
	admin := new(MockAdmin)

	admin.On("PurgeQueue", "request-dlq").Return(5, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/queues/request-dlq/purge", nil)
	setupRouter(new(MockService), admin).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	admin.AssertExpectations(t)
}

func TestPurgeAllQueuesHandler_Success(t *testing.T) {
	admin := new(MockAdmin)

	admin.On("PurgeAll").Return(map[string]int{"request": 2, "receipt": 0}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/queues/purge", nil)
	setupRouter(new(MockService), admin).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	admin.AssertExpectations(t)
}
