package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/msomdec/tempo/internal/domain"
)

// MagicLinkRepository stores hashed single-use sign-in tokens.
type MagicLinkRepository struct {
	db *sql.DB
}

func NewMagicLinkRepository(db *DB) *MagicLinkRepository {
	return &MagicLinkRepository{db: db.SqlDB}
}

func (r *MagicLinkRepository) Create(ctx context.Context, link *domain.MagicLink) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO magic_links (token_hash, user_id, expires_at) VALUES (?, ?, ?)`,
		link.TokenHash, link.UserID, link.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert magic link: %w", err)
	}
	return nil
}

func (r *MagicLinkRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (*domain.MagicLink, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE magic_links SET used_at = ?
		 WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?`,
		now.Unix(), tokenHash, now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("consume magic link: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrLinkExpired
	}

	var (
		link      domain.MagicLink
		expiresAt int64
		usedAt    int64
	)
	err = r.db.QueryRowContext(ctx,
		`SELECT token_hash, user_id, expires_at, used_at FROM magic_links WHERE token_hash = ?`,
		tokenHash,
	).Scan(&link.TokenHash, &link.UserID, &expiresAt, &usedAt)
	if err != nil {
		return nil, fmt.Errorf("query magic link: %w", err)
	}
	link.ExpiresAt = time.Unix(expiresAt, 0)
	used := time.Unix(usedAt, 0)
	link.UsedAt = &used
	return &link, nil
}
