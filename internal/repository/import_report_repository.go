package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/coursetrack-api/internal/models"
	"github.com/noah-isme/coursetrack-api/pkg/cache"
	appErrors "github.com/noah-isme/coursetrack-api/pkg/errors"
)

// ImportReportRepository keeps finished batch results in Redis so admins can
// download a row-by-row report after the upload request has returned.
type ImportReportRepository struct {
	client *redis.Client
}

// NewImportReportRepository constructs the repository. A nil client turns
// every read into a cache miss and every write into a no-op.
func NewImportReportRepository(client *redis.Client) *ImportReportRepository {
	return &ImportReportRepository{client: client}
}

func reportKey(batchID string) string {
	return cache.Key("import", "report", batchID)
}

// Save stores the result under its batch id.
func (r *ImportReportRepository) Save(ctx context.Context, result *models.ImportResult, ttl time.Duration) error {
	if r.client == nil || result == nil {
		return nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal import report %s: %w", result.BatchID, err)
	}

	if err := r.client.Set(ctx, reportKey(result.BatchID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set import report %s: %w", result.BatchID, err)
	}
	return nil
}

// Find loads a stored result, returning appErrors.ErrCacheMiss when absent.
func (r *ImportReportRepository) Find(ctx context.Context, batchID string) (*models.ImportResult, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, reportKey(batchID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get import report %s: %w", batchID, err)
	}

	var result models.ImportResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("unmarshal import report %s: %w", batchID, err)
	}
	return &result, nil
}

// Close releases the underlying Redis connection if present.
func (r *ImportReportRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
