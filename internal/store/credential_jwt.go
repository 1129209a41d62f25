package store

import (
	"errors"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"roombook/pkg/domain"
)

// JWTCredentialStore issues and validates stateless HS256 capability
// tokens. The verified key travels inside the signed token, so using the
// grant always re-proves key knowledge without server-side state.
type JWTCredentialStore struct {
	secret []byte
	ttl    time.Duration
}

type credentialClaims struct {
	Action string `json:"act"`
	Key    string `json:"key"`
	jwt.RegisteredClaims
}

// NewJWTCredentialStore builds a stateless JWT credential store.
func NewJWTCredentialStore(secret string, ttl time.Duration) *JWTCredentialStore {
	return &JWTCredentialStore{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Grant signs a credential token for the reservation and action.
func (s *JWTCredentialStore) Grant(reservationID int64, action domain.Action, key string) (string, domain.Credential, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := credentialClaims{
		Action: string(action),
		Key:    key,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(reservationID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.Credential{}, err
	}
	return token, domain.Credential{
		ReservationID: reservationID,
		Action:        action,
		Key:           key,
		ExpiresAt:     expiresAt,
	}, nil
}

// Resolve validates a token; an invalid or expired token is
// (zero, false, nil) rather than an error, matching the Redis store.
func (s *JWTCredentialStore) Resolve(token string) (domain.Credential, bool, error) {
	var claims credentialClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return domain.Credential{}, false, nil
	}
	reservationID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return domain.Credential{}, false, nil
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return domain.Credential{
		ReservationID: reservationID,
		Action:        domain.Action(claims.Action),
		Key:           claims.Key,
		ExpiresAt:     expiresAt,
	}, true, nil
}

// Revoke is a no-op for stateless JWT; provided for interface parity.
func (s *JWTCredentialStore) Revoke(_ string) error {
	return nil
}
