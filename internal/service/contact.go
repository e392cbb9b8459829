package service

import (
	"context"

	"gorm.io/datatypes"

	"github.com/personality-predictor/backend/internal/constants"
	"github.com/personality-predictor/backend/internal/dto"
	apperrors "github.com/personality-predictor/backend/internal/errors"
	"github.com/personality-predictor/backend/internal/model"
	ctxutil "github.com/personality-predictor/backend/pkg/context"
	"github.com/personality-predictor/backend/pkg/logger"
	"github.com/personality-predictor/backend/pkg/validation"
)

type ContactService struct {
	contacts  ContactStore
	sanitizer *validation.Sanitizer
}

func NewContactService(contacts ContactStore, sanitizer *validation.Sanitizer) *ContactService {
	if sanitizer == nil {
		sanitizer = validation.NewSanitizer()
	}
	return &ContactService{contacts: contacts, sanitizer: sanitizer}
}

// Submit stores a contact message as pending. Free text is stripped of
// markup; fields that are empty afterwards are rejected.
func (s *ContactService) Submit(ctx context.Context, req *dto.ContactRequest) (*model.Contact, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "SubmitContact")

	contact := &model.Contact{
		FirstName: s.sanitizer.Text(req.FirstName),
		LastName:  s.sanitizer.Text(req.LastName),
		Email:     normalizeEmail(req.Email),
		Subject:   s.sanitizer.Text(req.Subject),
		Message:   s.sanitizer.Text(req.Message),
		Status:    constants.ContactStatusPending,
		Meta: datatypes.JSONMap{
			"client_ip":  ctxutil.GetClientIP(ctx),
			"user_agent": ctxutil.GetUserAgent(ctx),
			"request_id": ctxutil.GetRequestID(ctx),
		},
	}

	if contact.FirstName == "" || contact.LastName == "" || contact.Subject == "" || contact.Message == "" {
		logger.InfoWithContext(ctx, "Contact rejected: empty after sanitising").Log()
		return nil, apperrors.ErrInvalidInput
	}

	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Contact message received").
		Uint("contact_id", contact.ID).
		Log()

	return contact, nil
}
