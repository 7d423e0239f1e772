package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// CreateIdentity inserts a new identity with the given public key and
// returns its id. Keys are provisioned out-of-band; this is used by
// setup tooling and tests.
func (s *Store) CreateIdentity(publicKey []byte) (int64, error) {
	var id int64
	err := withRetry(func() error {
		res, err := s.db.Exec(`INSERT INTO identities (public_key) VALUES (?)`, publicKey)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("create identity: %w", err)
	}
	return id, nil
}

// GetIdentity returns the identity row for id, revoked or not.
// The caller decides what a revoked key means.
func (s *Store) GetIdentity(id int64) (*Identity, error) {
	row := s.db.QueryRow(
		`SELECT id, public_key, revoked_at, last_used_at FROM identities WHERE id = ?`, id)

	var ident Identity
	err := row.Scan(&ident.ID, &ident.PublicKey, &ident.RevokedAt, &ident.LastUsedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity %d: %w", id, err)
	}
	return &ident, nil
}

// RevokeIdentity marks the identity's key revoked. Revocation is
// permanent: a revoked key never authenticates again.
func (s *Store) RevokeIdentity(id int64) error {
	return withRetry(func() error {
		res, err := s.db.Exec(
			`UPDATE identities SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`, now(), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// Already revoked or absent — either way the key is dead.
			return nil
		}
		return nil
	})
}

// TouchIdentity updates last_used_at. Called fire-and-forget after a
// successful authentication; failures are the caller's to log and drop.
func (s *Store) TouchIdentity(id int64) error {
	return withRetry(func() error {
		_, err := s.db.Exec(`UPDATE identities SET last_used_at = ? WHERE id = ?`, now(), id)
		return err
	})
}
