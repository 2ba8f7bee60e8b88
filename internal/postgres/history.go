package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/playerstats-api/internal/domain"
)

// textureBaseURL prefixes every Mojang texture reference; the content hash is
// the trailing path segment after it.
const textureBaseURL = "textures.minecraft.net/texture/"

// textureHash extracts the content hash from a texture URL. Returns "" when
// the reference does not carry the known base.
func textureHash(url string) string {
	idx := strings.Index(url, textureBaseURL)
	if idx < 0 {
		return ""
	}
	hash := url[idx+len(textureBaseURL):]
	if hash == "" || strings.Contains(hash, "/") {
		return ""
	}
	return hash
}

// RecordIdentity reconciles one observed identity against the three
// append-only history series. All sub-updates share a single transaction:
// any failure rolls back the whole reconciliation.
func (r *Repository) RecordIdentity(ctx context.Context, identity domain.Identity) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning history transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.reconcileUsername(ctx, tx, identity.UUID, identity.Username); err != nil {
		return err
	}

	if identity.SkinURL != nil {
		if hash := textureHash(*identity.SkinURL); hash != "" {
			if err := insertTextureRow(ctx, tx, "player_skin_history", "skin_hash", identity.UUID, hash); err != nil {
				return err
			}
		}
	}

	if identity.CapeURL != nil {
		if hash := textureHash(*identity.CapeURL); hash != "" {
			if err := insertTextureRow(ctx, tx, "player_cape_history", "cape_hash", identity.UUID, hash); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing history transaction: %w", err)
	}
	return nil
}

// usernameRow is the slice of a history row that reconciliation looks at.
type usernameRow struct {
	ID       int64
	Username string
}

// bumpCurrentRow reports whether an observed name continues the current row.
// Only a case-insensitive match against the latest row is bumped in place;
// anything else appends, including a return to a name used before. Closed
// rows are never touched, so a player cycling back to an old name gets a new
// row rather than a rewrite of their earlier period.
func bumpCurrentRow(latest *usernameRow, observed string) bool {
	return latest != nil && strings.EqualFold(latest.Username, observed)
}

// reconcileUsername bumps the current row in place when the observed name
// matches it case-insensitively (keeping the latest casing), and inserts a
// new row for any other observed value. The bump targets the latest row by
// id so historical case-variant rows stay immutable.
func (r *Repository) reconcileUsername(ctx context.Context, tx pgx.Tx, uuid, username string) error {
	var latest *usernameRow
	var row usernameRow
	err := tx.QueryRow(ctx, `
		SELECT id, username
		FROM player_username_history
		WHERE uuid = $1
		ORDER BY last_seen_at DESC, id DESC
		LIMIT 1
	`, uuid).Scan(&row.ID, &row.Username)

	if err != nil && err != pgx.ErrNoRows {
		return fmt.Errorf("reading latest username: %w", err)
	}
	if err == nil {
		latest = &row
	}

	if bumpCurrentRow(latest, username) {
		_, err := tx.Exec(ctx, `
			UPDATE player_username_history
			SET username = $2, last_seen_at = NOW()
			WHERE id = $1
		`, latest.ID, username)
		if err != nil {
			return fmt.Errorf("bumping username row: %w", err)
		}
		return nil
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO player_username_history (uuid, username)
		VALUES ($1, $2)
	`, uuid, username); err != nil {
		return fmt.Errorf("inserting username row: %w", err)
	}
	return nil
}

// insertTextureRow appends to a texture series; a duplicate (uuid, hash) is a
// no-op since rows are immutable once inserted.
func insertTextureRow(ctx context.Context, tx pgx.Tx, table, hashColumn, uuid, hash string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (uuid, %s)
		VALUES ($1, $2)
		ON CONFLICT (uuid, %s) DO NOTHING
	`, table, hashColumn, hashColumn)

	if _, err := tx.Exec(ctx, query, uuid, hash); err != nil {
		return fmt.Errorf("inserting %s row: %w", table, err)
	}
	return nil
}

// UsernameHistory returns the recorded username series for one player, most
// recent first.
func (r *Repository) UsernameHistory(ctx context.Context, uuid string) ([]UsernameEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT username, first_seen_at::TEXT, last_seen_at::TEXT
		FROM player_username_history
		WHERE uuid = $1
		ORDER BY last_seen_at DESC, id DESC
	`, uuid)
	if err != nil {
		return nil, fmt.Errorf("reading username history: %w", err)
	}
	defer rows.Close()

	var entries []UsernameEntry
	for rows.Next() {
		var e UsernameEntry
		if err := rows.Scan(&e.Username, &e.FirstSeenAt, &e.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scanning username history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// UsernameEntry is one row of the username history series.
type UsernameEntry struct {
	Username    string `json:"username"`
	FirstSeenAt string `json:"first_seen_at"`
	LastSeenAt  string `json:"last_seen_at"`
}
