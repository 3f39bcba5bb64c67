package enquiry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/common/logger"
	"property-search/internal/models"
	"property-search/internal/repository/memory"
)

type sentEmail struct {
	to, replyTo, subject, body string
}

type fakeEmail struct {
	sent []sentEmail
	err  error
}

func (f *fakeEmail) SendText(_ context.Context, to, replyTo, subject, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentEmail{to, replyTo, subject, body})
	return "msg-1", nil
}

type fakeSMS struct {
	phones []string
	err    error
}

func (f *fakeSMS) SendSMS(_ context.Context, phone, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.phones = append(f.phones, phone)
	return "sms-1", nil
}

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	agent, err := store.Agents().Create(ctx, models.NewAgent{Name: "Sara", Email: "sara@example.com", Phone: "+971500000001"})
	require.NoError(t, err)
	_, err = store.Properties().Create(ctx, models.NewProperty{
		Title: "Marina flat", Type: models.TypeApartment, Purpose: models.PurposeSale,
		Price: 1_200_000, Area: 900, Location: "Dubai Marina", AgentID: agent.ID,
	})
	require.NoError(t, err)
	return store
}

func validInput() models.NewEnquiry {
	return models.NewEnquiry{Name: " Lina ", Email: "lina@example.com", Phone: "+971555555555", Message: "Is it still available?"}
}

func fixedOptions() []Option {
	return []Option{
		WithIDGenerator(func() string { return "enq-1" }),
		WithClock(func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }),
	}
}

func TestSubmit_DeliversOnEnabledChannels(t *testing.T) {
	email := &fakeEmail{}
	sms := &fakeSMS{}
	svc := NewService(newStore(t), logger.NewTestLogger(t), append(fixedOptions(), WithEmail(email), WithSMS(sms))...)

	receipt, err := svc.Submit(context.Background(), 1, validInput())

	require.NoError(t, err)
	assert.Equal(t, "enq-1", receipt.Enquiry.ID)
	assert.Equal(t, "Lina", receipt.Enquiry.Name)
	assert.Equal(t, []string{ChannelEmail, ChannelSMS}, receipt.Channels)

	require.Len(t, email.sent, 1)
	assert.Equal(t, "sara@example.com", email.sent[0].to)
	assert.Equal(t, "lina@example.com", email.sent[0].replyTo)
	assert.Contains(t, email.sent[0].subject, "Marina flat")
	assert.Contains(t, email.sent[0].body, "Is it still available?")
	assert.Equal(t, []string{"+971500000001"}, sms.phones)
}

func TestSubmit_NoChannelsOnlyLogs(t *testing.T) {
	svc := NewService(newStore(t), logger.NewTestLogger(t), fixedOptions()...)

	receipt, err := svc.Submit(context.Background(), 1, validInput())

	require.NoError(t, err)
	assert.Empty(t, receipt.Channels)
	assert.Equal(t, int64(1), receipt.Enquiry.PropertyID)
}

func TestSubmit_Errors(t *testing.T) {
	t.Run("invalid input", func(t *testing.T) {
		svc := NewService(newStore(t), logger.NewTestLogger(t))
		in := validInput()
		in.Email = "not-an-email"

		_, err := svc.Submit(context.Background(), 1, in)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unknown property", func(t *testing.T) {
		svc := NewService(newStore(t), logger.NewTestLogger(t))

		_, err := svc.Submit(context.Background(), 9, validInput())
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("email failure", func(t *testing.T) {
		sms := &fakeSMS{}
		svc := NewService(newStore(t), logger.NewTestLogger(t),
			WithEmail(&fakeEmail{err: errors.New("throttled")}), WithSMS(sms))

		_, err := svc.Submit(context.Background(), 1, validInput())
		assert.True(t, apperrors.IsExternal(err))
		std, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, std.Code)
		assert.Empty(t, sms.phones)
	})

	t.Run("sms failure", func(t *testing.T) {
		svc := NewService(newStore(t), logger.NewTestLogger(t), WithSMS(&fakeSMS{err: errors.New("opted out")}))

		_, err := svc.Submit(context.Background(), 1, validInput())
		assert.True(t, apperrors.IsExternal(err))
	})
}
