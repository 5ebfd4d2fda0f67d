package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(key string) *JWTService {
	return NewJWTService(JWTConfig{SigningKey: key})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestService("test-secret-key-for-testing-only")

	token, expiresAt, err := svc.GenerateToken("ops", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, DefaultIssuer, claims.Issuer)
	assert.Equal(t, ScopeAdmin, claims.Scope)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_DefaultExpiry(t *testing.T) {
	svc := newTestService("k")

	_, expiresAt, err := svc.GenerateToken("ops", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenExpiry), expiresAt, 5*time.Second)
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := newTestService("test-secret-key-for-testing-only")

	for _, token := range []string{"", "not.a.valid.jwt", "xxx.yyy.zzz"} {
		_, err := svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
	}
}

func TestJWTService_WrongSigningKey(t *testing.T) {
	token, _, err := newTestService("key-one").GenerateToken("ops", time.Hour)
	require.NoError(t, err)

	_, err = newTestService("key-two").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_Expired(t *testing.T) {
	svc := newTestService("k")
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := svc.GenerateToken("ops", time.Hour)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTService_WrongAudience(t *testing.T) {
	token, _, err := NewJWTService(JWTConfig{SigningKey: "k", Audience: "other"}).GenerateToken("ops", time.Hour)
	require.NoError(t, err)

	_, err = newTestService("k").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_MissingScope(t *testing.T) {
	now := time.Now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    DefaultIssuer,
		Subject:   "ops",
		Audience:  jwt.ClaimStrings{DefaultAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = newTestService("k").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInsufficient)
}

func TestJWTService_NoSigningKey(t *testing.T) {
	svc := newTestService("")

	_, _, err := svc.GenerateToken("ops", time.Hour)
	assert.ErrorIs(t, err, ErrNoSigningKey)

	_, err = svc.ValidateToken("a.b.c")
	assert.ErrorIs(t, err, ErrNoSigningKey)
}

func TestJWTService_EmptySubject(t *testing.T) {
	_, _, err := newTestService("k").GenerateToken("", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySubject)
}
