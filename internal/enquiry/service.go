// Package enquiry routes buyer contact requests to the listing agent.
package enquiry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/common/logger"
	"property-search/internal/common/validation"
	"property-search/internal/models"
	"property-search/internal/repository"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

type EmailSender interface {
	SendText(ctx context.Context, to, replyTo, subject, body string) (string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Service struct {
	store  repository.Store
	email  EmailSender
	sms    SMSSender
	newID  func() string
	now    func() time.Time
	logger logger.Logger
}

type Option func(*Service)

// WithEmail enables delivery over email. Without it enquiries are only logged.
func WithEmail(sender EmailSender) Option {
	return func(s *Service) { s.email = sender }
}

func WithSMS(sender SMSSender) Option {
	return func(s *Service) { s.sms = sender }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store repository.Store, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		newID:  func() string { return uuid.New().String() },
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.WithFields(map[string]interface{}{"component": "enquiry"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates the enquiry, resolves the listing's agent and notifies them on every
// enabled channel. The first delivery failure is returned as NOTIFICATION_SEND_FAILED.
func (s *Service) Submit(ctx context.Context, propertyID int64, input models.NewEnquiry) (models.EnquiryReceipt, error) {
	if err := validation.Struct(input); err != nil {
		return models.EnquiryReceipt{}, err
	}

	property, err := s.store.Properties().GetByID(ctx, propertyID)
	if err != nil {
		return models.EnquiryReceipt{}, err
	}
	agent, err := s.store.Agents().GetByID(ctx, property.AgentID)
	if err != nil {
		return models.EnquiryReceipt{}, err
	}

	enq := models.Enquiry{
		ID:         s.newID(),
		PropertyID: propertyID,
		Name:       strings.TrimSpace(input.Name),
		Email:      strings.TrimSpace(input.Email),
		Phone:      strings.TrimSpace(input.Phone),
		Message:    strings.TrimSpace(input.Message),
		CreatedAt:  s.now(),
	}
	log := s.logger.WithFields(map[string]interface{}{
		"enquiryId":  enq.ID,
		"propertyId": propertyID,
		"agentId":    agent.ID,
	})

	channels := []string{}
	if s.email != nil {
		msgID, err := s.email.SendText(ctx, agent.Email, enq.Email, emailSubject(property), emailBody(property, agent, enq))
		if err != nil {
			return models.EnquiryReceipt{}, apperrors.NewNotificationSendFailedError(ChannelEmail, err)
		}
		log.Debug("enquiry emailed", map[string]interface{}{"messageId": msgID})
		channels = append(channels, ChannelEmail)
	}
	if s.sms != nil && agent.Phone != "" {
		msgID, err := s.sms.SendSMS(ctx, agent.Phone, smsBody(property, enq))
		if err != nil {
			return models.EnquiryReceipt{}, apperrors.NewNotificationSendFailedError(ChannelSMS, err)
		}
		log.Debug("enquiry texted", map[string]interface{}{"messageId": msgID})
		channels = append(channels, ChannelSMS)
	}

	log.Info("enquiry submitted", map[string]interface{}{"channels": channels})
	return models.EnquiryReceipt{Enquiry: enq, Channels: channels}, nil
}

func emailSubject(p models.Property) string {
	return fmt.Sprintf("New enquiry: %s (#%d)", p.Title, p.ID)
}

func emailBody(p models.Property, agent models.Agent, e models.Enquiry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", agent.Name)
	fmt.Fprintf(&b, "%s is interested in \"%s\" in %s (listing #%d).\n\n", e.Name, p.Title, p.Location, p.ID)
	fmt.Fprintf(&b, "Email: %s\n", e.Email)
	if e.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", e.Phone)
	}
	fmt.Fprintf(&b, "\n%s\n", e.Message)
	return b.String()
}

func smsBody(p models.Property, e models.Enquiry) string {
	contact := e.Email
	if e.Phone != "" {
		contact = e.Phone
	}
	return fmt.Sprintf("New enquiry for #%d %s from %s (%s)", p.ID, p.Title, e.Name, contact)
}
