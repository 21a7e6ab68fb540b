// Package postgres implements the LedgerStore on PostgreSQL via database/sql
// and lib/pq. Each unit of work is one database transaction; the schema's
// foreign keys back up the reconciler's explicit integrity checks.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/interfaces"
	"github.com/ledgerbook/ledgerbook/internal/ledgererr"
	"github.com/ledgerbook/ledgerbook/internal/models"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the ledger tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(uow interfaces.UnitOfWork) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	if err := fn(&unitOfWork{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

// mapError translates driver failures into the ledger error taxonomy.
// Constraint violations normally never reach this point: the service checks
// referential integrity and delete-blocking explicitly inside the unit of
// work, and the schema constraints only catch what a concurrent writer
// slipped past those checks.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23503": // foreign_key_violation
			return ledgererr.Wrap(ledgererr.KindReferentialIntegrity, err, "foreign key violation")
		case "23505": // unique_violation
			return ledgererr.Wrap(ledgererr.KindIntegrityConflict, err, "unique constraint violation")
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return ledgererr.Wrap(ledgererr.KindConcurrencyConflict, err, "write conflict")
		}
	}
	return ledgererr.Wrap(ledgererr.KindStore, err, "storage failure")
}

type unitOfWork struct {
	tx *sql.Tx
}

func (u *unitOfWork) AccountsByUser(ctx context.Context, userID string) ([]models.Account, error) {
	const query = `SELECT id, user_id, name, currency, balance FROM accounts WHERE user_id = $1 ORDER BY id`
	rows, err := u.tx.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		if err := rows.Scan(&account.ID, &account.UserID, &account.Name, &account.Currency, &account.Balance); err != nil {
			return nil, mapError(err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return accounts, nil
}

func (u *unitOfWork) InsertAccount(ctx context.Context, account models.Account) (models.Account, error) {
	account.ID = uuid.NewString()
	const query = `INSERT INTO accounts (id, user_id, name, currency, balance) VALUES ($1, $2, $3, $4, $5)`
	if _, err := u.tx.ExecContext(ctx, query, account.ID, account.UserID, account.Name, account.Currency, account.Balance); err != nil {
		return models.Account{}, mapError(err)
	}
	return account, nil
}

func (u *unitOfWork) UpdateAccount(ctx context.Context, account models.Account) error {
	const query = `UPDATE accounts SET name = $1, currency = $2 WHERE id = $3 AND user_id = $4`
	res, err := u.tx.ExecContext(ctx, query, account.Name, account.Currency, account.ID, account.UserID)
	return requireRow(res, err, "account", account.ID)
}

func (u *unitOfWork) DeleteAccount(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM accounts WHERE id = $1 AND user_id = $2`
	res, err := u.tx.ExecContext(ctx, query, id, userID)
	return requireRow(res, err, "account", id)
}

func (u *unitOfWork) AccountReferenced(ctx context.Context, userID, accountID string) (bool, error) {
	const query = `SELECT 1 FROM postings p
		JOIN transactions t ON t.id = p.transaction_id
		WHERE p.account_id = $1 AND t.user_id = $2 LIMIT 1`
	var one int
	err := u.tx.QueryRowContext(ctx, query, accountID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapError(err)
	}
	return true, nil
}

func (u *unitOfWork) AddToBalance(ctx context.Context, userID, accountID string, delta decimal.Decimal) error {
	const query = `UPDATE accounts SET balance = balance + $1 WHERE id = $2 AND user_id = $3`
	res, err := u.tx.ExecContext(ctx, query, delta, accountID, userID)
	return requireRow(res, err, "account", accountID)
}

func (u *unitOfWork) SetBalance(ctx context.Context, userID, accountID string, balance decimal.Decimal) error {
	const query = `UPDATE accounts SET balance = $1 WHERE id = $2 AND user_id = $3`
	res, err := u.tx.ExecContext(ctx, query, balance, accountID, userID)
	return requireRow(res, err, "account", accountID)
}

func (u *unitOfWork) TransactionByID(ctx context.Context, userID, id string) (models.Transaction, error) {
	const query = `SELECT id, user_id, description, date, type, tags FROM transactions WHERE id = $1 AND user_id = $2`
	tx, err := scanTransaction(u.tx.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, ledgererr.New(ledgererr.KindNotFound, "transaction %q not found", id)
	}
	if err != nil {
		return models.Transaction{}, mapError(err)
	}
	tx.Postings, err = u.postingsOf(ctx, tx.ID)
	if err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var tx models.Transaction
	var date time.Time
	var tags pq.StringArray
	if err := row.Scan(&tx.ID, &tx.UserID, &tx.Description, &date, &tx.Type, &tags); err != nil {
		return models.Transaction{}, err
	}
	tx.Date = models.DateOf(date)
	tx.Tags = []string(tags)
	return tx, nil
}

func (u *unitOfWork) postingsOf(ctx context.Context, transactionID string) ([]models.Posting, error) {
	const query = `SELECT id, transaction_id, account_id, amount FROM postings WHERE transaction_id = $1 ORDER BY id`
	rows, err := u.tx.QueryContext(ctx, query, transactionID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var postings []models.Posting
	for rows.Next() {
		var posting models.Posting
		if err := rows.Scan(&posting.ID, &posting.TransactionID, &posting.AccountID, &posting.Amount); err != nil {
			return nil, mapError(err)
		}
		postings = append(postings, posting)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return postings, nil
}

func (u *unitOfWork) TransactionsByUser(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.Transaction, error) {
	query := `SELECT id, user_id, description, date, type, tags FROM transactions WHERE user_id = $1`
	args := []any{userID}
	if filter.Description != "" {
		args = append(args, "%"+filter.Description+"%")
		query += fmt.Sprintf(" AND description ILIKE $%d", len(args))
	}
	if !filter.Date.IsZero() {
		args = append(args, filter.Date.Time())
		query += fmt.Sprintf(" AND date = $%d", len(args))
	}
	if len(filter.Tags) > 0 {
		args = append(args, pq.Array(filter.Tags))
		query += fmt.Sprintf(" AND tags && $%d", len(args))
	}
	query += orderClause(filter)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := u.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, mapError(err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	for i := range transactions {
		transactions[i].Postings, err = u.postingsOf(ctx, transactions[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return transactions, nil
}

// orderClause builds the ORDER BY from the filter's sort column. The column
// name comes from a fixed allowlist, never from user input; the id
// tie-break stays ascending so paging is stable in either direction.
func orderClause(filter models.TransactionFilter) string {
	column := "date"
	if filter.SortColumn == models.SortByDescription {
		column = "description"
	}
	if filter.SortDescending {
		return fmt.Sprintf(" ORDER BY %s DESC, id", column)
	}
	return fmt.Sprintf(" ORDER BY %s, id", column)
}

func (u *unitOfWork) InsertTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	tx.ID = uuid.NewString()
	tx.Postings = nil
	const query = `INSERT INTO transactions (id, user_id, description, date, type, tags) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := u.tx.ExecContext(ctx, query, tx.ID, tx.UserID, tx.Description, tx.Date.Time(), tx.Type, pq.Array(tx.Tags)); err != nil {
		return models.Transaction{}, mapError(err)
	}
	return tx, nil
}

func (u *unitOfWork) UpdateTransaction(ctx context.Context, tx models.Transaction) error {
	const query = `UPDATE transactions SET description = $1, date = $2, type = $3, tags = $4 WHERE id = $5 AND user_id = $6`
	res, err := u.tx.ExecContext(ctx, query, tx.Description, tx.Date.Time(), tx.Type, pq.Array(tx.Tags), tx.ID, tx.UserID)
	return requireRow(res, err, "transaction", tx.ID)
}

func (u *unitOfWork) DeleteTransaction(ctx context.Context, userID, id string) error {
	// Postings go with it via ON DELETE CASCADE.
	const query = `DELETE FROM transactions WHERE id = $1 AND user_id = $2`
	res, err := u.tx.ExecContext(ctx, query, id, userID)
	return requireRow(res, err, "transaction", id)
}

func (u *unitOfWork) DeleteAllTransactions(ctx context.Context, userID string) error {
	const query = `DELETE FROM transactions WHERE user_id = $1`
	if _, err := u.tx.ExecContext(ctx, query, userID); err != nil {
		return mapError(err)
	}
	return nil
}

func (u *unitOfWork) InsertPosting(ctx context.Context, posting models.Posting) (models.Posting, error) {
	posting.ID = uuid.NewString()
	const query = `INSERT INTO postings (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`
	if _, err := u.tx.ExecContext(ctx, query, posting.ID, posting.TransactionID, posting.AccountID, posting.Amount); err != nil {
		return models.Posting{}, mapError(err)
	}
	return posting, nil
}

func (u *unitOfWork) UpdatePosting(ctx context.Context, posting models.Posting) error {
	const query = `UPDATE postings SET account_id = $1, amount = $2 WHERE id = $3 AND transaction_id = $4`
	res, err := u.tx.ExecContext(ctx, query, posting.AccountID, posting.Amount, posting.ID, posting.TransactionID)
	return requireRow(res, err, "posting", posting.ID)
}

func (u *unitOfWork) DeletePosting(ctx context.Context, transactionID, id string) error {
	const query = `DELETE FROM postings WHERE id = $1 AND transaction_id = $2`
	res, err := u.tx.ExecContext(ctx, query, id, transactionID)
	return requireRow(res, err, "posting", id)
}

func (u *unitOfWork) SumPostingsByAccount(ctx context.Context, userID string) (map[string]decimal.Decimal, error) {
	const query = `SELECT p.account_id, SUM(p.amount) FROM postings p
		JOIN transactions t ON t.id = p.transaction_id
		WHERE t.user_id = $1 GROUP BY p.account_id`
	rows, err := u.tx.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	sums := make(map[string]decimal.Decimal)
	for rows.Next() {
		var accountID string
		var sum decimal.Decimal
		if err := rows.Scan(&accountID, &sum); err != nil {
			return nil, mapError(err)
		}
		sums[accountID] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return sums, nil
}

// requireRow maps a zero-row write to a not-found error; ownership scoping
// makes another user's row look absent.
func requireRow(res sql.Result, err error, entity, id string) error {
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return ledgererr.New(ledgererr.KindNotFound, "%s %q not found", entity, id)
	}
	return nil
}

// Compile-time checks.
var (
	_ interfaces.LedgerStore = (*Store)(nil)
	_ interfaces.UnitOfWork  = (*unitOfWork)(nil)
)
