package notifyagent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"property-search/internal/common/config"
	apperrors "property-search/internal/common/errors"
	"property-search/internal/common/logger"
	"property-search/internal/models"
)

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, propertyID int64, input models.NewEnquiry) (models.EnquiryReceipt, error) {
	args := m.Called(ctx, propertyID, input)
	return args.Get(0).(models.EnquiryReceipt), args.Error(1)
}

func createValidInput() *Input {
	return &Input{
		PropertyID: 4,
		Enquiry: models.NewEnquiry{
			Name:    "Lina",
			Email:   "lina@example.com",
			Message: "Can I view it on Saturday?",
		},
	}
}

func TestHandler_Execute_Success(t *testing.T) {
	sub := new(MockSubmitter)
	input := createValidInput()
	sub.On("Submit", mock.Anything, int64(4), input.Enquiry).Return(models.EnquiryReceipt{
		Enquiry:  models.Enquiry{ID: "enq-9", PropertyID: 4},
		Channels: []string{"email"},
	}, nil)

	h := NewHandler(NewConfig(config.WorkerConfig{}), sub, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, "enq-9", out.EnquiryID)
	assert.Equal(t, []string{"email"}, out.Channels)
	sub.AssertExpectations(t)
}

func TestHandler_Execute_MissingProperty(t *testing.T) {
	sub := new(MockSubmitter)
	h := NewHandler(NewConfig(config.WorkerConfig{}), sub, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})

	assert.True(t, apperrors.IsValidation(err))
	sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_DeliveryFailureIsRetried(t *testing.T) {
	sub := new(MockSubmitter)
	sub.On("Submit", mock.Anything, int64(4), mock.Anything).Return(models.EnquiryReceipt{},
		apperrors.NewNotificationSendFailedError("email", errors.New("throttled")))

	h := NewHandler(NewConfig(config.WorkerConfig{}), sub, logger.NewTestLogger(t))
	_, err := h.Execute(context.Background(), createValidInput())

	require.Error(t, err)
	bpmn := apperrors.ConvertToBPMNError(apperrors.Normalize(err))
	assert.Equal(t, string(apperrors.ErrCodeNotificationSendFailed), bpmn.Code)
	assert.Equal(t, 3, bpmn.Retries)
}
