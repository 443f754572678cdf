package contract_test

import (
	"testing"

	"NotifyFlow/internal/contract"
	"github.com/stretchr/testify/assert"
)

func TestNewReceipt_Delivered(t *testing.T) {
	r, err := contract.NewReceipt(
		"corr-1", contract.ChannelEmail, contract.StatusDelivered, "user@example.com", "")

	assert.NoError(t, err)
	assert.Equal(t, "corr-1", r.CorrelationID)
	assert.Equal(t, contract.StatusDelivered, r.Status)
	assert.NotEmpty(t, r.EventID)
	assert.Equal(t, contract.Version, r.Version)
}

func TestNewReceipt_FailedRequiresErrorMessage(t *testing.T) {
	_, err := contract.NewReceipt(
		"corr-1", contract.ChannelEmail, contract.StatusFailed, "user@example.com", "")

	assert.ErrorIs(t, err, contract.ErrMissingErrorMessage)
}

func TestNewReceipt_FailedWithReason(t *testing.T) {
	r, err := contract.NewReceipt(
		"corr-1", contract.ChannelSMS, contract.StatusFailed, "+79990000000", "gateway timeout")

	assert.NoError(t, err)
	assert.Equal(t, "gateway timeout", r.ErrorMessage)
}

func TestNewReceipt_InvalidStatus(t *testing.T) {
	_, err := contract.NewReceipt(
		"corr-1", contract.ChannelEmail, contract.DeliveryStatus("LOST"), "user@example.com", "")

	assert.ErrorIs(t, err, contract.ErrInvalidDeliveryStatus)
}

func TestNewReceipt_BlankCorrelationID(t *testing.T) {
	_, err := contract.NewReceipt(
		"", contract.ChannelEmail, contract.StatusDelivered, "user@example.com", "")

	assert.ErrorIs(t, err, contract.ErrBlankCorrelationID)
}

func TestDeliveryStatus_IsFailure(t *testing.T) {
	assert.True(t, contract.StatusFailed.IsFailure())
	assert.True(t, contract.StatusBounced.IsFailure())
	assert.False(t, contract.StatusDelivered.IsFailure())
	assert.False(t, contract.StatusOpened.IsFailure())
	assert.False(t, contract.StatusClicked.IsFailure())
}

func TestReceipt_WithDetail(t *testing.T) {
	r, err := contract.NewReceipt(
		"corr-1", contract.ChannelEmail, contract.StatusDelivered, "user@example.com", "")
	assert.NoError(t, err)

	r = r.WithDetail("vendor", "smtp").WithDetail("message_id", "abc")
	assert.Equal(t, "smtp", r.ProviderDetails["vendor"])
	assert.Equal(t, "abc", r.ProviderDetails["message_id"])
}

func TestEncodeDecodeReceipt_RoundTrip(t *testing.T) {
	r, err := contract.NewReceipt(
		"corr-7", contract.ChannelSMS, contract.StatusBounced, "+79990000000", "number disconnected")
	assert.NoError(t, err)

	body, err := contract.EncodeReceipt(r)
	assert.NoError(t, err)

	decoded, err := contract.DecodeReceipt(body)
	assert.NoError(t, err)
	assert.Equal(t, r.CorrelationID, decoded.CorrelationID)
	assert.Equal(t, r.Status, decoded.Status)
	assert.Equal(t, r.ErrorMessage, decoded.ErrorMessage)
}

func TestDecodeReceipt_Invalid(t *testing.T) {
	_, err := contract.DecodeReceipt([]byte(`{"correlation_id":"corr-1","channel":"email","status":"FAILED"}`))
	assert.ErrorIs(t, err, contract.ErrMissingErrorMessage)
}
