package accounts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var IncrementFailedAttemptsSQL = `UPDATE "accounts" AS "acc"
SET
	"failed_attempts" = "failed_attempts" + 1,
	"last_failed_attempt" = ?
WHERE
	("acc".id = ?);`

var ResetFailedAttemptsSQL = `UPDATE "accounts" AS "acc"
SET
	"failed_attempts" = 0,
	"last_failed_attempt" = NULL
WHERE
	("acc".id = ?);`

// Accounts is the bun-backed account repository. It satisfies
// CredentialStore on top of the generic repository surface.
type Accounts interface {
	repository.Repository[*Account]
	CredentialStore
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ CredentialStore                 = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return a.findByColumn(ctx, "email", email)
}

func (a *accounts) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.findByColumn(ctx, "id", id.String())
}

func (a *accounts) FindByVerificationToken(ctx context.Context, token string) (*Account, error) {
	return a.findByColumn(ctx, "verification_token", token)
}

func (a *accounts) FindByResetToken(ctx context.Context, token string) (*Account, error) {
	return a.findByColumn(ctx, "reset_token", token)
}

func (a *accounts) findByColumn(ctx context.Context, column, value string) (*Account, error) {
	record := &Account{}

	err := a.db.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					column: value,
				})
		}
		return nil, err
	}

	return record, nil
}

// InsertUnique persists a new account, relying on the unique email index to
// reject duplicates. The existence check and the write are one statement.
func (a *accounts) InsertUnique(ctx context.Context, record *Account) (*Account, error) {
	prepareAccountDefaults(record)

	created, err := a.Repository.CreateTx(ctx, a.db, record)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "email already registered").
				WithCode(goerrors.CodeConflict).
				WithTextCode(TextCodeEmailTaken).
				WithMetadata(map[string]any{"email": record.Email})
		}
		return nil, err
	}

	return created, nil
}

// Update applies the given column values to one account. Keys are applied in
// sorted order so generated SQL is stable.
func (a *accounts) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return ErrNoUpdatableFields
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("updated_at = ?", time.Now())

	for _, k := range keys {
		q = q.Set("? = ?", bun.Ident(k), fields[k])
	}

	res, err := q.Where("?TableAlias.id = ?", id.String()).Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *accounts) IncrementFailedAttempts(ctx context.Context, id uuid.UUID, at time.Time) error {
	// NOTE: done in SQL so concurrent failures never lose an increment.
	_, err := a.db.NewRaw(IncrementFailedAttemptsSQL, at, id.String()).Exec(ctx)
	return err
}

func (a *accounts) ResetFailedAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewRaw(ResetFailedAttemptsSQL, id.String()).Exec(ctx)
	return err
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.EnsureRole()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "Duplicate entry")
}
