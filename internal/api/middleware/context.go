package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	ownerIDKey      contextKey = "owner_id"
	keyPrefixKey    contextKey = "key_prefix"
	apiKeyScopesKey contextKey = "api_key_scopes"
	requestInfoKey  contextKey = "request_info"
)

// requestInfo is installed by Logger before the handler chain runs, so that
// identity resolved further in (by Authenticate) reaches the access log.
type requestInfo struct {
	ownerID   uuid.UUID
	keyPrefix string
}

func withRequestInfo(ctx context.Context) (context.Context, *requestInfo) {
	info := &requestInfo{}
	return context.WithValue(ctx, requestInfoKey, info), info
}

// recordIdentity copies the authenticated owner into the enclosing
// requestInfo, if Logger installed one.
func recordIdentity(ctx context.Context, ownerID uuid.UUID, prefix string) {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.ownerID = ownerID
		info.keyPrefix = prefix
	}
}

// identityAttrs returns owner_id and key_prefix log attributes once a
// request has been authenticated.
func identityAttrs(ctx context.Context) []any {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok && info.ownerID != uuid.Nil {
		return []any{"owner_id", info.ownerID.String(), "key_prefix", info.keyPrefix}
	}
	if id, ok := ctx.Value(ownerIDKey).(uuid.UUID); ok {
		return []any{"owner_id", id.String()}
	}
	return nil
}

// WithOwnerID returns ctx carrying the authenticated review owner.
func WithOwnerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerIDKey, id)
}

// OwnerID returns the review owner resolved by Authenticate.
func OwnerID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(ownerIDKey).(uuid.UUID)
	return id, ok
}

// WithKeyPrefix returns ctx carrying the API key prefix used for rate limiting.
func WithKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func keyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

func withScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, apiKeyScopesKey, scopes)
}

func scopes(r *http.Request) []string {
	s, _ := r.Context().Value(apiKeyScopesKey).([]string)
	return s
}
