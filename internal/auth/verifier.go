package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/fixhub/realtime-backend/internal/core/domain"
	apperrors "github.com/fixhub/realtime-backend/internal/core/errors"
	"github.com/fixhub/realtime-backend/internal/core/ports"
)

// apiKeyPrefix marks a credential as an API key. Keys have the form
// "key_<key-id>.<secret>"; everything else is treated as a JWT.
const apiKeyPrefix = "key_"

// Verifier validates opaque credentials and resolves them to a principal.
// It accepts two credential forms: signed JWTs issued by the POS backend and
// long-lived API keys stored hashed in the database.
type Verifier struct {
	tokens      *TokenManager
	credentials ports.CredentialRepository
}

var _ ports.Authenticator = (*Verifier)(nil)

func NewVerifier(tokens *TokenManager, credentials ports.CredentialRepository) *Verifier {
	return &Verifier{tokens: tokens, credentials: credentials}
}

// Verify resolves a credential to a principal. Returned errors distinguish
// expired credentials, invalid credentials, and verification-backend outages.
func (v *Verifier) Verify(ctx context.Context, credential string) (*domain.Principal, error) {
	if credential == "" {
		return nil, apperrors.ErrInvalidCredential
	}
	if strings.HasPrefix(credential, apiKeyPrefix) {
		return v.verifyAPIKey(ctx, credential)
	}
	return v.verifyToken(credential)
}

func (v *Verifier) verifyToken(tokenString string) (*domain.Principal, error) {
	claims, err := v.tokens.ValidateToken(tokenString)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrCredentialExpired
		}
		return nil, apperrors.ErrInvalidCredential
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return nil, apperrors.ErrInvalidCredential
	}

	return &domain.Principal{
		ID:          claims.PrincipalID,
		DisplayName: claims.DisplayName,
		Role:        role,
		TenantID:    claims.TenantID,
	}, nil
}

func (v *Verifier) verifyAPIKey(ctx context.Context, credential string) (*domain.Principal, error) {
	keyID, secret, ok := strings.Cut(strings.TrimPrefix(credential, apiKeyPrefix), ".")
	if !ok || keyID == "" || secret == "" {
		return nil, apperrors.ErrInvalidCredential
	}

	cred, err := v.credentials.GetAPICredential(ctx, keyID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredential
		}
		// Lookup failure is an outage, not a bad credential.
		return nil, fmt.Errorf("%w: %v", apperrors.ErrAuthUnavailable, err)
	}

	if cred.Revoked {
		return nil, apperrors.ErrCredentialExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.SecretHash), []byte(secret)); err != nil {
		return nil, apperrors.ErrInvalidCredential
	}

	principal := cred.Principal
	return &principal, nil
}
