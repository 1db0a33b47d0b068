// Package postgres is the relational UserRepository adapter. It speaks
// database/sql through the pgx stdlib driver and realizes the
// compare-and-set contract with a conditional UPDATE on the version
// column.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	authcore "github.com/raymandgroup/authcore"
	"github.com/raymandgroup/authcore/repo/postgres/migrations"
)

const uniqueViolation = "23505"

// DBTX is the subset of *sql.DB the repository relies on, kept narrow
// so tests and transactions can stand in for a live pool.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository defines a public type used by authcore APIs.
//
// Repository instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Repository struct {
	db DBTX
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs
// them against the provided database connection.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

const accountColumns = `id, identity, display_name, credential_hash, verified,
        email_verification_code, email_verification_expiry, last_verification_resend_at,
        login_challenge_code, login_challenge_expiry, last_challenge_resend_at,
        password_reset_token, password_reset_expiry, password_reset_history,
        created_at, version`

// Create describes the create operation and its observable behavior.
//
// Create may return an error when input validation, dependency calls, or security checks fail.
// Create does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Repository) Create(ctx context.Context, account *authcore.Account) error {
	history, err := json.Marshal(account.PasswordResetHistory)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	query := `INSERT INTO accounts (` + accountColumns + `)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)`

	account.Version = 1
	_, err = r.db.ExecContext(ctx, query,
		account.ID, account.Identity, account.DisplayName, account.CredentialHash, account.Verified,
		account.EmailVerificationCode, account.EmailVerificationExpiry, account.LastVerificationResendAt,
		account.LoginChallengeCode, account.LoginChallengeExpiry, account.LastChallengeResendAt,
		account.PasswordResetToken, account.PasswordResetExpiry, history,
		account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return authcore.ErrAccountExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindByIdentity describes the findbyidentity operation and its observable behavior.
//
// FindByIdentity may return an error when input validation, dependency calls, or security checks fail.
// FindByIdentity does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Repository) FindByIdentity(ctx context.Context, identity string) (*authcore.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE identity = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, identity))
}

// FindByID describes the findbyid operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or security checks fail.
// FindByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Repository) FindByID(ctx context.Context, id string) (*authcore.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// Update describes the update operation and its observable behavior.
//
// Update is the compare-and-set write: the row is only touched when its
// stored version equals the caller's snapshot, and the version column
// advances with the write. A zero-row result distinguishes a conflict
// from a missing account by re-probing the id.
func (r *Repository) Update(ctx context.Context, account *authcore.Account) error {
	history, err := json.Marshal(account.PasswordResetHistory)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	query := `UPDATE accounts SET
            display_name = $3, credential_hash = $4, verified = $5,
            email_verification_code = $6, email_verification_expiry = $7, last_verification_resend_at = $8,
            login_challenge_code = $9, login_challenge_expiry = $10, last_challenge_resend_at = $11,
            password_reset_token = $12, password_reset_expiry = $13, password_reset_history = $14,
            version = version + 1
         WHERE id = $1 AND version = $2`

	res, err := r.db.ExecContext(ctx, query,
		account.ID, account.Version,
		account.DisplayName, account.CredentialHash, account.Verified,
		account.EmailVerificationCode, account.EmailVerificationExpiry, account.LastVerificationResendAt,
		account.LoginChallengeCode, account.LoginChallengeExpiry, account.LastChallengeResendAt,
		account.PasswordResetToken, account.PasswordResetExpiry, history)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		if _, err := r.FindByID(ctx, account.ID); errors.Is(err, authcore.ErrUserNotFound) {
			return authcore.ErrUserNotFound
		}
		return authcore.ErrVersionConflict
	}

	account.Version++
	return nil
}

func (r *Repository) scanAccount(row *sql.Row) (*authcore.Account, error) {
	var (
		account authcore.Account

		verificationCode sql.NullString
		verificationExp  sql.NullTime
		verificationAt   sql.NullTime
		challengeCode    sql.NullString
		challengeExp     sql.NullTime
		challengeAt      sql.NullTime
		resetToken       sql.NullString
		resetExp         sql.NullTime
		history          []byte
	)

	err := row.Scan(
		&account.ID, &account.Identity, &account.DisplayName, &account.CredentialHash, &account.Verified,
		&verificationCode, &verificationExp, &verificationAt,
		&challengeCode, &challengeExp, &challengeAt,
		&resetToken, &resetExp, &history,
		&account.CreatedAt, &account.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authcore.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	account.EmailVerificationCode = nullString(verificationCode)
	account.EmailVerificationExpiry = nullTime(verificationExp)
	account.LastVerificationResendAt = nullTime(verificationAt)
	account.LoginChallengeCode = nullString(challengeCode)
	account.LoginChallengeExpiry = nullTime(challengeExp)
	account.LastChallengeResendAt = nullTime(challengeAt)
	account.PasswordResetToken = nullString(resetToken)
	account.PasswordResetExpiry = nullTime(resetExp)

	if len(history) > 0 {
		if err := json.Unmarshal(history, &account.PasswordResetHistory); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
	}
	return &account, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
