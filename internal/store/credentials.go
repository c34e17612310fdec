package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Credential is the persisted signed-in principal.
type Credential struct {
	PrincipalID string
	Email       string
	IDToken     string
	ExpiresAt   time.Time
}

// SaveCredential stores c as the current credential, replacing any previous one.
func (s *Store) SaveCredential(ctx context.Context, c Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (slot, principal_id, email, id_token, expires_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			principal_id = excluded.principal_id,
			email        = excluded.email,
			id_token     = excluded.id_token,
			expires_at   = excluded.expires_at
	`, c.PrincipalID, c.Email, c.IDToken, formatTime(c.ExpiresAt))
	if err != nil {
		return storageErr("save credential", err)
	}
	return nil
}

// LoadCredential returns the current credential.
// Returns found=false if nobody is signed in.
func (s *Store) LoadCredential(ctx context.Context) (c Credential, found bool, err error) {
	var expiresAt string
	err = s.db.QueryRowContext(ctx, `
		SELECT principal_id, email, id_token, expires_at
		FROM credentials
		WHERE slot = 1
	`).Scan(&c.PrincipalID, &c.Email, &c.IDToken, &expiresAt)
	if err == sql.ErrNoRows {
		return Credential{}, false, nil
	}
	if err != nil {
		return Credential{}, false, storageErr("load credential", err)
	}
	if c.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return Credential{}, false, storageErr("load credential", fmt.Errorf("expires_at: %w", err))
	}
	return c, true, nil
}

// ClearCredential removes the current credential. Clearing when nobody is
// signed in is not an error.
func (s *Store) ClearCredential(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return storageErr("clear credential", err)
	}
	return nil
}
