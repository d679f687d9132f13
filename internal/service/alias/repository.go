package alias

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"go.uber.org/zap"
)

// Repository persists registered aliases in character_aliases.
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

// List returns every alias in registration order.
func (r *Repository) List(ctx context.Context) ([]domain.AliasEntry, error) {
	query := `
		SELECT character_id, alias, created_at
		FROM character_aliases
		ORDER BY created_at, character_id, alias
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}
	defer rows.Close()

	var entries []domain.AliasEntry
	for rows.Next() {
		var (
			id    string
			entry domain.AliasEntry
		)
		if err := rows.Scan(&id, &entry.Alias, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		entry.CharacterID = domain.CharacterID(id)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate aliases: %w", err)
	}

	return entries, nil
}

// Insert stores an alias. It reports false when the alias already exists.
func (r *Repository) Insert(ctx context.Context, id domain.CharacterID, alias string) (bool, error) {
	query := `
		INSERT INTO character_aliases (character_id, alias)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, string(id), alias)
	if err != nil {
		return false, fmt.Errorf("failed to insert alias: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	r.logger.Debug("Alias stored",
		zap.String("character_id", string(id)),
		zap.String("alias", alias),
		zap.Bool("inserted", affected > 0),
	)

	return affected > 0, nil
}

// Delete removes an alias. Reports whether a row was deleted.
func (r *Repository) Delete(ctx context.Context, alias string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM character_aliases WHERE alias = $1`, alias)
	if err != nil {
		return false, fmt.Errorf("failed to delete alias: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return affected > 0, nil
}
