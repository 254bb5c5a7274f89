package images

import (
	"context"
	"fmt"
	"strings"

	"marketplace/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Resolver turns a product image URL supplied by a vendor into the URL
// that is stored with the product.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

type resolver struct {
	fetcher *Fetcher
	store   Store
	logger  *zap.Logger
}

// NewResolver creates a Resolver. With a nil store the validated source URL
// is kept as is.
func NewResolver(fetcher *Fetcher, store Store, logger *zap.Logger) Resolver {
	return &resolver{fetcher: fetcher, store: store, logger: logger}
}

func (r *resolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", nil
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "", domain.ErrInvalidImage
	}

	img, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		r.logger.Warn("Rejected product image",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return "", domain.ErrInvalidImage
	}

	if r.store == nil {
		return rawURL, nil
	}

	key := "products/" + uuid.NewString() + img.Extension
	storedURL, err := r.store.Put(ctx, key, img)
	if err != nil {
		return "", fmt.Errorf("failed to store product image: %w", err)
	}

	r.logger.Info("Stored product image",
		zap.String("source", rawURL),
		zap.String("key", key),
	)

	return storedURL, nil
}
