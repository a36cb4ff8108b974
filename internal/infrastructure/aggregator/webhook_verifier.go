package aggregator

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// VerificationHeader carries the signed JWT on every inbound webhook.
const VerificationHeader = "Plaid-Verification"

const defaultMaxWebhookAge = 5 * time.Minute

var (
	ErrMissingVerification = errors.New("missing webhook verification token")
	ErrInvalidVerification = errors.New("invalid webhook verification token")
	ErrStaleWebhook        = errors.New("webhook verification token is too old")
	ErrBodyMismatch        = errors.New("webhook body does not match signed digest")
)

// KeyFetcher resolves a signing key id to its JWK
type KeyFetcher interface {
	GetWebhookVerificationKey(ctx context.Context, keyID string) (*VerificationKeyResponse, error)
}

type verificationClaims struct {
	jwt.RegisteredClaims
	RequestBodySHA256 string `json:"request_body_sha256"`
}

// WebhookVerifier checks the ES256 signature and body digest of inbound webhooks.
// Keys are cached per key id for the life of the verifier.
type WebhookVerifier struct {
	keys   KeyFetcher
	maxAge time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]*keyfunc.JWKS
}

// NewWebhookVerifier creates a verifier backed by the given key source
func NewWebhookVerifier(keys KeyFetcher) *WebhookVerifier {
	return &WebhookVerifier{
		keys:   keys,
		maxAge: defaultMaxWebhookAge,
		now:    time.Now,
		cache:  make(map[string]*keyfunc.JWKS),
	}
}

// Verify validates token against the raw request body
func (v *WebhookVerifier) Verify(ctx context.Context, token string, body []byte) error {
	if token == "" {
		return ErrMissingVerification
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}))

	unverified, _, err := parser.ParseUnverified(token, &verificationClaims{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVerification, err)
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return fmt.Errorf("%w: missing kid", ErrInvalidVerification)
	}

	jwks, err := v.jwksFor(ctx, kid)
	if err != nil {
		return err
	}

	claims := &verificationClaims{}
	if _, err := parser.ParseWithClaims(token, claims, jwks.Keyfunc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVerification, err)
	}

	if claims.IssuedAt == nil {
		return fmt.Errorf("%w: missing iat", ErrInvalidVerification)
	}
	if v.now().Sub(claims.IssuedAt.Time) > v.maxAge {
		return ErrStaleWebhook
	}

	sum := sha256.Sum256(body)
	digest := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(digest), []byte(claims.RequestBodySHA256)) != 1 {
		return ErrBodyMismatch
	}

	return nil
}

func (v *WebhookVerifier) jwksFor(ctx context.Context, kid string) (*keyfunc.JWKS, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if jwks, ok := v.cache[kid]; ok {
		return jwks, nil
	}

	resp, err := v.keys.GetWebhookVerificationKey(ctx, kid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch verification key %s: %w", kid, err)
	}

	set, err := json.Marshal(struct {
		Keys []json.RawMessage `json:"keys"`
	}{Keys: []json.RawMessage{resp.Key}})
	if err != nil {
		return nil, fmt.Errorf("failed to build key set: %w", err)
	}

	jwks, err := keyfunc.NewJSON(set)
	if err != nil {
		return nil, fmt.Errorf("failed to parse verification key %s: %w", kid, err)
	}

	v.cache[kid] = jwks
	return jwks, nil
}
