package identity

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists users and credentials in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpsertUser creates or replaces a user record keyed by name.
func (r *Repository) UpsertUser(ctx context.Context, user User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (name, email, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET email = EXCLUDED.email, role = EXCLUDED.role
	`, user.Name, user.Email, user.Role)
	return err
}

// UpsertCredential creates or replaces the credential for an email.
func (r *Repository) UpsertCredential(ctx context.Context, cred Credential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (email, password_hash, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role
	`, cred.Email, cred.PasswordHash, cred.Role)
	return err
}

// GetUserByEmail returns the user for an email, or nil when unknown.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT name, email, role FROM users WHERE email = $1
	`, email)
	var user User
	if err := row.Scan(&user.Name, &user.Email, &user.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetCredential returns the credential for an email, or nil when unknown.
func (r *Repository) GetCredential(ctx context.Context, email string) (*Credential, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT email, password_hash, role FROM credentials WHERE email = $1
	`, email)
	var cred Credential
	if err := row.Scan(&cred.Email, &cred.PasswordHash, &cred.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}
