// Package auth provides HMAC-based API key authentication for the navigation API.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// callerKey is the context key for storing the authenticated caller.
const callerKey = contextKey("caller")

// lastUsedThrottle bounds how often last_used_at is rewritten for a busy key.
const lastUsedThrottle = time.Minute

// Caller identifies the API key that authenticated a request.
type Caller struct {
	APIKeyID string
	Name     string
}

// Queries defines the database operations needed for authentication.
// Implemented by *db.Queries.
type Queries interface {
	GetContext(ctx context.Context, name string, dest interface{}, args ...interface{}) error
	ExecContext(ctx context.Context, name string, args ...interface{}) (sql.Result, error)
}

// Authenticator validates API keys using HMAC-SHA256 signatures.
// Holds in-memory secret map for O(1) lookup and queries for key verification.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
	logger  zerolog.Logger
	now     func() time.Time
}

// NewAuthenticator creates an authenticator with HMAC secrets and query interface.
func NewAuthenticator(secrets map[string][]byte, queries Queries, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		secrets: secrets,
		queries: queries,
		logger:  logger.With().Str("component", "auth").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate validates an API key and returns the caller it belongs to.
// Each failure mode has its own error so the interceptor can map it to a code.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (Caller, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return Caller{}, err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return Caller{}, ErrUnknownKey
	}

	computedHash := ComputeHMAC(secret, apiKey)

	// key_hash is unique, so at most one row matches
	var result struct {
		APIKeyID   string       `db:"api_key_id"`
		Name       string       `db:"name"`
		RevokedAt  sql.NullTime `db:"revoked_at"`
		LastUsedAt sql.NullTime `db:"last_used_at"`
	}

	err = a.queries.GetContext(ctx, "get-api-key-by-hash", &result, computedHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Caller{}, ErrInvalidKey
	}
	if err != nil {
		return Caller{}, fmt.Errorf("database error: %w", err)
	}

	if result.RevokedAt.Valid {
		return Caller{}, ErrKeyRevoked
	}

	now := a.now()
	if shouldUpdateLastUsed(result.LastUsedAt, now) {
		if _, err := a.queries.ExecContext(ctx, "update-last-used", now, result.APIKeyID); err != nil {
			a.logger.Warn().Err(err).Str("api_key_id", result.APIKeyID).Msg("failed to record key usage")
		}
	}

	return Caller{APIKeyID: result.APIKeyID, Name: result.Name}, nil
}

func shouldUpdateLastUsed(lastUsed sql.NullTime, now time.Time) bool {
	if !lastUsed.Valid {
		return true
	}
	return now.Sub(lastUsed.Time) > lastUsedThrottle
}

// UnaryInterceptor returns gRPC interceptor that authenticates requests.
// Methods listed in skip (full method names) bypass authentication.
func (a *Authenticator) UnaryInterceptor(skip ...string) grpc.UnaryServerInterceptor {
	open := make(map[string]bool, len(skip))
	for _, m := range skip {
		open[m] = true
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if open[info.FullMethod] {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		apiKeys := md.Get("x-api-key")
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		caller, err := a.Authenticate(ctx, apiKeys[0])
		if err != nil {
			if errors.Is(err, ErrKeyRevoked) {
				return nil, status.Error(codes.PermissionDenied, err.Error())
			}
			// Database failures are retryable, not an authentication verdict
			if strings.Contains(err.Error(), "database error") {
				a.logger.Error().Err(err).Str("method", info.FullMethod).Msg("authentication unavailable")
				return nil, status.Error(codes.Unavailable, err.Error())
			}
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		return handler(WithCaller(ctx, caller), req)
	}
}

// WithCaller returns a context carrying the authenticated caller.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext extracts the authenticated caller from context.
// Returns false if the request was not authenticated.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey).(Caller)
	return caller, ok
}
