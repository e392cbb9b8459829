package repository

import (
	"context"
	"time"

	"github.com/personality-predictor/backend/internal/model"
	ctxutil "github.com/personality-predictor/backend/pkg/context"
	"github.com/personality-predictor/backend/pkg/logger"
	"gorm.io/gorm"
)

type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create persists a contact submission.
func (r *ContactRepository) Create(ctx context.Context, contact *model.Contact) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "Create")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	start := time.Now()
	result := r.db.WithContext(ctx).Create(contact)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to create contact").
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.LogDatabase("insert", "contacts", duration.Milliseconds())
	logger.InfoWithContext(ctx, "Contact stored").
		Uint("contact_id", contact.ID).
		String("status", contact.Status).
		Duration(duration).
		Log()

	return nil
}
