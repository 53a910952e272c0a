package interfaces

import (
	"context"

	"github.com/customeros/mailforward/internal/models"
)

type EmailParser interface {
	Parse(ctx context.Context, raw *models.RawMessage) *models.Email
}

type EmailComposer interface {
	Compose(ctx context.Context, email *models.Email) (*models.ForwardedEmail, error)
}

type ForwardPipeline interface {
	Run(ctx context.Context) (*models.RunResult, error)
}

type RunReporter interface {
	LastResult() *models.RunResult
}
