package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixhub/realtime-backend/internal/core/domain"
	apperrors "github.com/fixhub/realtime-backend/internal/core/errors"
	"github.com/fixhub/realtime-backend/internal/core/ports"
)

// CredentialRepository looks up API keys issued to register terminals and
// integrations.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

var _ ports.CredentialRepository = (*CredentialRepository)(nil)

func NewCredentialRepository(pool *pgxpool.Pool) ports.CredentialRepository {
	return &CredentialRepository{pool: pool}
}

func (r *CredentialRepository) GetAPICredential(ctx context.Context, keyID string) (*domain.APICredential, error) {
	const query = `
SELECT key_id, secret_hash, principal_id, display_name, role, tenant_id, revoked
FROM api_credentials
WHERE key_id = $1
`

	row := r.pool.QueryRow(ctx, query, keyID)

	var (
		cred     domain.APICredential
		roleText string
		tenantID pgtype.Text
	)
	err := row.Scan(
		&cred.KeyID,
		&cred.SecretHash,
		&cred.Principal.ID,
		&cred.Principal.DisplayName,
		&roleText,
		&tenantID,
		&cred.Revoked,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	role, err := domain.ParseRole(roleText)
	if err != nil {
		// A row with an unknown role cannot authenticate anyone.
		return nil, apperrors.ErrNotFound
	}
	cred.Principal.Role = role
	cred.Principal.TenantID = textOrEmpty(tenantID)

	return &cred, nil
}
