package credential

import (
	"context"
	"time"

	"woocart-bridge/internal/domain"
)

type Repository interface {
	GetByConsumerKey(ctx context.Context, hashedKey string) (*domain.APICredential, error)
	TouchLastAccess(ctx context.Context, keyID int64, at time.Time) error
	Create(ctx context.Context, c domain.APICredential) (*domain.APICredential, error)
}
