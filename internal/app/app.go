package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"roombook/internal/store"
	"roombook/pkg/domain"
)

// DefaultTimeZone is the reference zone for every "now" comparison.
// All temporal checks go through this single zone; mixing UTC and
// server-local time is exactly the off-by-one-hour bug this avoids.
const DefaultTimeZone = "Europe/Berlin"

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string
	CredentialTTL time.Duration
	TimeZone      string

	// Store and Credentials override the backends built from the fields
	// above; tests inject the in-memory store here.
	Store       store.Store
	Credentials store.CredentialStore

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// App wires the reservation store, the credential store, and the
// reference clock into the booking operations.
type App struct {
	store store.Store
	creds store.CredentialStore
	zone  *time.Location
	now   func() time.Time
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.CredentialTTL == 0 {
		cfg.CredentialTTL = 15 * time.Minute
	}
	zoneName := cfg.TimeZone
	if zoneName == "" {
		zoneName = DefaultTimeZone
	}
	zone, err := time.LoadLocation(zoneName)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", zoneName, err)
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	creds := cfg.Credentials
	if creds == nil {
		switch {
		case cfg.JWTSecret != "":
			creds = store.NewJWTCredentialStore(cfg.JWTSecret, cfg.CredentialTTL)
		case cfg.RedisAddr != "":
			creds = store.NewRedisCredentialStore(cfg.RedisAddr, cfg.RedisPassword, cfg.CredentialTTL)
		default:
			return nil, fmt.Errorf("credential store required (jwtSecret or redisAddr)")
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &App{
		store: dataStore,
		creds: creds,
		zone:  zone,
		now:   now,
	}, nil
}

// CreatedReservation bundles a new reservation with its plaintext keys.
// The keys are shown exactly once; only their hashes are stored.
type CreatedReservation struct {
	Reservation domain.Reservation `json:"reservation"`
	PrivateKey  string             `json:"privateKey"`
	PublicKey   string             `json:"publicKey"`
}

// CreateReservation validates the candidate, generates its key pair, and
// persists it if the slot is free. The availability check and the insert
// run in one transaction inside the store.
func (a *App) CreateReservation(ctx context.Context, cand domain.Reservation) (CreatedReservation, error) {
	if errs := a.validate(cand); len(errs) > 0 {
		return CreatedReservation{}, errs
	}

	privateKey := uuid.NewString()
	publicKey := uuid.NewString()
	privateHash, err := bcrypt.GenerateFromPassword([]byte(privateKey), bcrypt.DefaultCost)
	if err != nil {
		return CreatedReservation{}, fmt.Errorf("hash private key: %w", err)
	}
	publicHash, err := bcrypt.GenerateFromPassword([]byte(publicKey), bcrypt.DefaultCost)
	if err != nil {
		return CreatedReservation{}, fmt.Errorf("hash public key: %w", err)
	}

	now := a.now().UTC()
	res := cand
	res.ID = 0
	res.PrivateKeyHash = string(privateHash)
	res.PublicKeyHash = string(publicHash)
	res.CreatedAt = now
	res.UpdatedAt = now

	if err := a.store.CreateChecked(ctx, &res); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return CreatedReservation{}, ErrConflict
		}
		return CreatedReservation{}, fmt.Errorf("create reservation: %w", err)
	}
	slog.Info("reservation created", "id", res.ID, "room", res.Room, "date", res.Date.String())
	return CreatedReservation{
		Reservation: res,
		PrivateKey:  privateKey,
		PublicKey:   publicKey,
	}, nil
}

// EditReservation rewrites a reservation after authorizing the credential
// and re-validating the update. The new slot is checked with the
// reservation's own prior interval excluded.
func (a *App) EditReservation(ctx context.Context, id int64, upd domain.Reservation, credentialToken string) (domain.Reservation, error) {
	current, err := a.authorize(ctx, domain.ActionEdit, id, credentialToken)
	if err != nil {
		return domain.Reservation{}, err
	}
	if errs := a.validate(upd); len(errs) > 0 {
		return domain.Reservation{}, errs
	}

	res := upd
	res.ID = id
	// Keys are immutable for the lifetime of the reservation.
	res.PrivateKeyHash = current.PrivateKeyHash
	res.PublicKeyHash = current.PublicKeyHash
	res.CreatedAt = current.CreatedAt
	res.UpdatedAt = a.now().UTC()

	if err := a.store.UpdateChecked(ctx, &res); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return domain.Reservation{}, ErrConflict
		case errors.Is(err, store.ErrNotFound):
			return domain.Reservation{}, ErrNotFound
		}
		return domain.Reservation{}, fmt.Errorf("update reservation: %w", err)
	}
	slog.Info("reservation updated", "id", id)
	return res, nil
}

// DeleteReservation removes a reservation after authorizing the
// credential, and revokes the spent grant.
func (a *App) DeleteReservation(ctx context.Context, id int64, credentialToken string) error {
	if _, err := a.authorize(ctx, domain.ActionDelete, id, credentialToken); err != nil {
		return err
	}
	found, err := a.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if !found {
		return ErrNotFound
	}
	if err := a.creds.Revoke(credentialToken); err != nil {
		slog.Warn("revoke spent credential", "id", id, "err", err)
	}
	slog.Info("reservation deleted", "id", id)
	return nil
}

// GetReservation retrieves a reservation by ID.
func (a *App) GetReservation(ctx context.Context, id int64) (domain.Reservation, error) {
	res, ok, err := a.store.Get(ctx, id)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	if !ok {
		return domain.Reservation{}, ErrNotFound
	}
	return res, nil
}

// ListFilter selects which side of "now" ListReservations returns.
type ListFilter string

const (
	FilterUpcoming ListFilter = "upcoming"
	FilterPast     ListFilter = "past"
)

// ListReservations returns reservations on one side of the current time
// in the reference zone, ordered by (date, startTime) ascending.
func (a *App) ListReservations(ctx context.Context, filter ListFilter) ([]domain.Reservation, error) {
	now := a.now().In(a.zone)
	today := domain.DateOf(now)
	minutes := domain.TimeOfDay(now.Hour()*60 + now.Minute())
	if filter == FilterPast {
		return a.store.ListPast(ctx, today, minutes)
	}
	return a.store.ListUpcoming(ctx, today, minutes)
}

// VerifyPrivateKey checks the supplied private key against the stored
// hash and, on match, issues a capability token scoped to the reservation
// and the stated intent.
func (a *App) VerifyPrivateKey(ctx context.Context, id int64, key string, action domain.Action) (string, domain.Credential, error) {
	if !action.Valid() {
		return "", domain.Credential{}, ValidationErrors{{Field: "returnAction", Message: "action must be edit or delete"}}
	}
	res, ok, err := a.store.Get(ctx, id)
	if err != nil {
		return "", domain.Credential{}, fmt.Errorf("get reservation: %w", err)
	}
	if !ok {
		return "", domain.Credential{}, ErrNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(res.PrivateKeyHash), []byte(key)) != nil {
		slog.Warn("private key verification failed", "id", id)
		return "", domain.Credential{}, ErrForbidden
	}
	token, cred, err := a.creds.Grant(id, action, key)
	if err != nil {
		return "", domain.Credential{}, fmt.Errorf("grant credential: %w", err)
	}
	slog.Info("private key verified", "id", id, "action", action)
	return token, cred, nil
}

// VerifyPublicKey checks the supplied public key and, on match, returns
// the reservation details. No state is established; the grant is
// single-use by construction.
func (a *App) VerifyPublicKey(ctx context.Context, id int64, key string) (domain.Reservation, error) {
	res, ok, err := a.store.Get(ctx, id)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	if !ok {
		return domain.Reservation{}, ErrNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(res.PublicKeyHash), []byte(key)) != nil {
		slog.Warn("public key verification failed", "id", id)
		return domain.Reservation{}, ErrForbidden
	}
	return res, nil
}

// authorize resolves a credential token and checks it against the
// requested action and the reservation's current stored key, not the
// state at grant time. A grant for a different reservation or intent
// never authorizes.
func (a *App) authorize(ctx context.Context, action domain.Action, id int64, credentialToken string) (domain.Reservation, error) {
	res, ok, err := a.store.Get(ctx, id)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	if !ok {
		return domain.Reservation{}, ErrNotFound
	}
	cred, ok, err := a.creds.Resolve(credentialToken)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("resolve credential: %w", err)
	}
	if !ok || cred.ReservationID != id || cred.Action != action {
		return domain.Reservation{}, ErrForbidden
	}
	if bcrypt.CompareHashAndPassword([]byte(res.PrivateKeyHash), []byte(cred.Key)) != nil {
		return domain.Reservation{}, ErrForbidden
	}
	return res, nil
}
