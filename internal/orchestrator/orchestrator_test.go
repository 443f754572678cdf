package orchestrator_test

import (
	"context"
	"errors"
	"testing"

	"NotifyFlow/internal/contract"
	"NotifyFlow/internal/domain"
	"NotifyFlow/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockProvider мок для ChannelProvider
type MockProvider struct {
	mock.Mock
	channel contract.Channel
}

func (m *MockProvider) Channel() contract.Channel {
	return m.channel
}

func (m *MockProvider) Process(ctx context.Context, req contract.Request) (*domain.DispatchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DispatchResult), args.Error(1)
}

// MockFactory мок для ProviderFactory
type MockFactory struct {
	mock.Mock
}

func (m *MockFactory) Get(ch contract.Channel) (domain.ChannelProvider, error) {
	args := m.Called(ch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.ChannelProvider), args.Error(1)
}

// MockReceiptPublisher мок для ReceiptPublisher
type MockReceiptPublisher struct {
	mock.Mock
}

func (m *MockReceiptPublisher) Publish(ctx context.Context, receipt contract.DeliveryReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func makeRequest(t *testing.T, channels ...contract.Channel) contract.Request {
	t.Helper()
	envelope, err := contract.NewEnvelope(
		"user@example.com", "Добро пожаловать", contract.TemplateWelcome, channels, "corr-100")
	assert.NoError(t, err)
	return contract.Request{
		Envelope: envelope,
		Payload:  contract.WelcomePayload{UserName: "ivan", ActivationLink: "https://example.com/a"},
	}
}

func TestOrchestrator_Handle_SingleChannelSuccess(t *testing.T) {
	factory := new(MockFactory)
	receipts := new(MockReceiptPublisher)
	provider := &MockProvider{channel: contract.ChannelEmail}

	req := makeRequest(t, contract.ChannelEmail)

	factory.On("Get", contract.ChannelEmail).Return(provider, nil)
	provider.On("Process", mock.Anything, req).
		Return(&domain.DispatchResult{Vendor: "smtp", Details: map[string]string{"vendor": "smtp"}}, nil)
	receipts.On("Publish", mock.Anything, mock.MatchedBy(func(r contract.DeliveryReceipt) bool {
		return r.Status == contract.StatusDelivered &&
			r.Channel == contract.ChannelEmail &&
			r.CorrelationID == "corr-100"
	})).Return(nil)

	err := orchestrator.New(factory, receipts).Handle(context.Background(), req, false)

	assert.NoError(t, err)
	receipts.AssertNumberOfCalls(t, "Publish", 1)
}

func TestOrchestrator_Handle_ChannelIsolation(t *testing.T) {
	// Падение одного канала не мешает остальным: email падает,
	// sms отрабатывает, сообщение не уходит на повтор.
	factory := new(MockFactory)
	receipts := new(MockReceiptPublisher)
	emailProvider := &MockProvider{channel: contract.ChannelEmail}
	smsProvider := &MockProvider{channel: contract.ChannelSMS}

	req := makeRequest(t, contract.ChannelEmail, contract.ChannelSMS)

	factory.On("Get", contract.ChannelEmail).Return(emailProvider, nil)
	factory.On("Get", contract.ChannelSMS).Return(smsProvider, nil)
	emailProvider.On("Process", mock.Anything, req).
		Return(nil, domain.Permanent(errors.New("smtp relay is not configured")))
	smsProvider.On("Process", mock.Anything, req).
		Return(&domain.DispatchResult{Vendor: "stdout"}, nil)
	receipts.On("Publish", mock.Anything, mock.Anything).Return(nil)

	err := orchestrator.New(factory, receipts).Handle(context.Background(), req, false)

	assert.NoError(t, err)
	smsProvider.AssertExpectations(t)

	// По каждому каналу своя квитанция со своим статусом.
	statuses := make(map[contract.Channel]contract.DeliveryStatus)
	for _, call := range receipts.Calls {
		r := call.Arguments.Get(1).(contract.DeliveryReceipt)
		statuses[r.Channel] = r.Status
	}
	assert.Equal(t, contract.StatusFailed, statuses[contract.ChannelEmail])
	assert.Equal(t, contract.StatusDelivered, statuses[contract.ChannelSMS])
}

func TestOrchestrator_Handle_AllPermanentFailures(t *testing.T) {
	// Все каналы упали по конфигурации: ошибка неустранимая,
	// сообщение должно уйти в dead-letter без повторов.
	factory := new(MockFactory)
	receipts := new(MockReceiptPublisher)

	req := makeRequest(t, contract.ChannelSMS)

	permanentErr := domain.Permanent(domain.ErrVendorNotConfigured)
	factory.On("Get", contract.ChannelSMS).Return(nil, permanentErr)
	receipts.On("Publish", mock.Anything, mock.Anything).Return(nil)

	err := orchestrator.New(factory, receipts).Handle(context.Background(), req, false)

	assert.Error(t, err)
	assert.True(t, domain.IsPermanent(err))
}

func TestOrchestrator_Handle_TransientFailureRetriable(t *testing.T) {
	// Временный сбой: ошибка возвращается на повтор, квитанция о неуспехе
	// не публикуется, пока повторы не исчерпаны.
	factory := new(MockFactory)
	receipts := new(MockReceiptPublisher)
	provider := &MockProvider{channel: contract.ChannelEmail}

	req := makeRequest(t, contract.ChannelEmail)

	factory.On("Get", contract.ChannelEmail).Return(provider, nil)
	provider.On("Process", mock.Anything, req).
		Return(nil, errors.New("dial tcp: i/o timeout"))

	err := orchestrator.New(factory, receipts).Handle(context.Background(), req, false)

	assert.Error(t, err)
	assert.False(t, domain.IsPermanent(err))
	receipts.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOrchestrator_Handle_MixedFailuresStayRetryable(t *testing.T) {
	// Временный сбой на одном канале и неустранимый на другом, причем
	// неустранимый встречается последним: итоговая ошибка не должна
	// классифицироваться как неустранимая, иначе временный канал
	// потеряет свой повтор.
	factory := new(MockFactory)
	receipts := new(MockReceiptPublisher)
	smsProvider := &MockProvider{channel: contract.ChannelSMS}

	req := makeRequest(t, contract.ChannelSMS, contract.ChannelEmail)

	factory.On("Get", contract.ChannelSMS).Return(smsProvider, nil)
	smsProvider.On("Process", mock.Anything, req).
		Return(nil, errors.New("dial tcp: i/o timeout"))
	factory.On("Get", contract.ChannelEmail).
		Return(nil, domain.Permanent(domain.ErrVendorNotConfigured))
	receipts.On("Publish", mock.Anything, mock.Anything).Return(nil)

	err := orchestrator.New(factory, receipts).Handle(context.Background(), req, false)

	assert.Error(t, err)
	assert.False(t, domain.IsPermanent(err))
}

func TestOrchestrator_Handle_FinalAttemptPublishesTransientFailureReceipt(t *testing.T) {
	// Повторы исчерпаны: временный сбой становится окончательным исходом
	// и продюсер должен узнать о нем из квитанции.
	factory := new(MockFactory)
	receipts := new(MockReceiptPublisher)
	provider := &MockProvider{channel: contract.ChannelEmail}

	req := makeRequest(t, contract.ChannelEmail)

	factory.On("Get", contract.ChannelEmail).Return(provider, nil)
	provider.On("Process", mock.Anything, req).
		Return(nil, errors.New("dial tcp: i/o timeout"))
	receipts.On("Publish", mock.Anything, mock.MatchedBy(func(r contract.DeliveryReceipt) bool {
		return r.Status == contract.StatusFailed && r.Channel == contract.ChannelEmail
	})).Return(nil)

	err := orchestrator.New(factory, receipts).Handle(context.Background(), req, true)

	assert.Error(t, err)
	receipts.AssertExpectations(t)
}

func TestOrchestrator_Handle_FailureReceiptCarriesReason(t *testing.T) {
	factory := new(MockFactory)
	receipts := new(MockReceiptPublisher)
	provider := &MockProvider{channel: contract.ChannelEmail}

	req := makeRequest(t, contract.ChannelEmail)

	factory.On("Get", contract.ChannelEmail).Return(provider, nil)
	provider.On("Process", mock.Anything, req).
		Return(nil, domain.Permanent(errors.New("mailbox unavailable")))
	receipts.On("Publish", mock.Anything, mock.MatchedBy(func(r contract.DeliveryReceipt) bool {
		return r.Status == contract.StatusFailed && r.ErrorMessage == "permanent: mailbox unavailable"
	})).Return(nil)

	_ = orchestrator.New(factory, receipts).Handle(context.Background(), req, false)

	receipts.AssertExpectations(t)
}

func TestOrchestrator_Handle_ReceiptPublishFailureDoesNotRetry(t *testing.T) {
	// Отправка состоялась, публикация квитанции упала: повтор сообщения
	// привел бы к дублю отправки, поэтому Handle возвращает nil.
	factory := new(MockFactory)
	receipts := new(MockReceiptPublisher)
	provider := &MockProvider{channel: contract.ChannelEmail}

	req := makeRequest(t, contract.ChannelEmail)

	factory.On("Get", contract.ChannelEmail).Return(provider, nil)
	provider.On("Process", mock.Anything, req).
		Return(&domain.DispatchResult{Vendor: "smtp"}, nil)
	receipts.On("Publish", mock.Anything, mock.Anything).
		Return(errors.New("broker unavailable"))

	err := orchestrator.New(factory, receipts).Handle(context.Background(), req, false)

	assert.NoError(t, err)
}
