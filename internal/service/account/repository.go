package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"go.uber.org/zap"
)

// Repository stores sender -> UID bindings in enka_accounts.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRepository(db *sql.DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get returns the binding for senderID, or nil when the sender never bound an account.
func (r *Repository) Get(ctx context.Context, senderID string) (*domain.AccountBinding, error) {
	query := `
		SELECT sender_id, uid, updated_at
		FROM enka_accounts
		WHERE sender_id = $1
	`

	var binding domain.AccountBinding
	err := r.db.QueryRowContext(ctx, query, senderID).Scan(&binding.SenderID, &binding.UID, &binding.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &binding, nil
}

// Bind validates uid and stores it for senderID, replacing any earlier binding.
func (r *Repository) Bind(ctx context.Context, senderID, uid string) (string, error) {
	normalized, err := domain.ValidateUID(uid)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO enka_accounts (sender_id, uid, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (sender_id) DO UPDATE SET uid = excluded.uid, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, senderID, normalized); err != nil {
		return "", fmt.Errorf("failed to bind account: %w", err)
	}

	r.logger.Info("Account bound",
		zap.String("sender_id", senderID),
		zap.String("uid", normalized),
	)
	return normalized, nil
}
