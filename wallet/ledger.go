package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ledger performs the balance-mutating wallet operations spec.md §4.11
// requires a row-level pessimistic lock for, via a raw *sql.DB (the pgx
// stdlib connection from platform/database.OpenRaw) rather than GORM —
// GORM's query builder has no portable `SELECT ... FOR UPDATE` affordance
// for the single-statement read-lock-then-mutate pattern this needs.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// InitiateWithdrawal validates amountCents against the tenant's configured
// minimum and current balance, creates a pending withdrawal Transaction,
// and debits the wallet immediately — all inside one row-locked
// transaction so a concurrent withdrawal can never overdraw the wallet.
func (l *Ledger) InitiateWithdrawal(ctx context.Context, tenantID, initiatorUserID string, amountCents, minCents int64) (*Transaction, error) {
	if amountCents < minCents {
		return nil, fmt.Errorf("wallet: amount %d below tenant minimum %d", amountCents, minCents)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("wallet: begin withdrawal tx: %w", err)
	}
	defer tx.Rollback()

	var walletID string
	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT id, balance_cents FROM tenant_wallets WHERE tenant_id = $1 FOR UPDATE`, tenantID,
	).Scan(&walletID, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wallet: lock wallet row: %w", err)
	}

	if balance < amountCents {
		return nil, ErrInsufficientFunds
	}

	txnID := uuid.NewString()
	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (id, tenant_id, wallet_id, type, status, amount_cents, initiator_user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		txnID, tenantID, walletID, TxnWithdrawal, TxnPending, amountCents, initiatorUserID, now,
	); err != nil {
		return nil, fmt.Errorf("wallet: insert withdrawal transaction: %w", err)
	}

	newBalance := balance - amountCents
	if _, err := tx.ExecContext(ctx,
		`UPDATE tenant_wallets SET balance_cents = $1, updated_at = $2 WHERE id = $3`,
		newBalance, now, walletID,
	); err != nil {
		return nil, fmt.Errorf("wallet: debit wallet: %w", err)
	}

	if err := l.insertAudit(ctx, tx, tenantID, walletID, txnID, "withdrawal_initiated", initiatorUserID, balance, newBalance); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("wallet: commit withdrawal tx: %w", err)
	}

	return &Transaction{
		ID: txnID, TenantID: tenantID, WalletID: walletID, Type: TxnWithdrawal, Status: TxnPending,
		AmountCents: amountCents, InitiatorUserID: initiatorUserID, CreatedAt: now, UpdatedAt: now,
	}, nil
}

// CompleteWithdrawal marks a pending withdrawal completed after a
// successful external payout dispatch. Caller (the four-eyes approval
// handler) has already verified approverUserID != transaction's
// initiator via rbac.ValidateFourEyes before calling this.
func (l *Ledger) CompleteWithdrawal(ctx context.Context, tenantID, transactionID, approverUserID string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("wallet: begin completion tx: %w", err)
	}
	defer tx.Rollback()

	var walletID string
	err = tx.QueryRowContext(ctx,
		`SELECT wallet_id FROM transactions WHERE tenant_id = $1 AND id = $2 AND status = $3 FOR UPDATE`,
		tenantID, transactionID, TxnPending,
	).Scan(&walletID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("wallet: lock transaction row: %w", err)
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1, approver_user_id = $2, updated_at = $3 WHERE id = $4`,
		TxnCompleted, approverUserID, now, transactionID,
	); err != nil {
		return fmt.Errorf("wallet: complete transaction: %w", err)
	}

	if err := l.insertAudit(ctx, tx, tenantID, walletID, transactionID, "withdrawal_completed", approverUserID, 0, 0); err != nil {
		return err
	}

	return tx.Commit()
}

// FailWithdrawal re-credits the wallet for a withdrawal whose external
// payout dispatch failed, and marks the transaction failed.
func (l *Ledger) FailWithdrawal(ctx context.Context, tenantID, transactionID, approverUserID string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("wallet: begin failure tx: %w", err)
	}
	defer tx.Rollback()

	var walletID string
	var amount int64
	err = tx.QueryRowContext(ctx,
		`SELECT wallet_id, amount_cents FROM transactions WHERE tenant_id = $1 AND id = $2 AND status = $3 FOR UPDATE`,
		tenantID, transactionID, TxnPending,
	).Scan(&walletID, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("wallet: lock transaction row: %w", err)
	}

	var balance int64
	if err := tx.QueryRowContext(ctx,
		`SELECT balance_cents FROM tenant_wallets WHERE id = $1 FOR UPDATE`, walletID,
	).Scan(&balance); err != nil {
		return fmt.Errorf("wallet: lock wallet row: %w", err)
	}

	now := time.Now()
	newBalance := balance + amount
	if _, err := tx.ExecContext(ctx,
		`UPDATE tenant_wallets SET balance_cents = $1, updated_at = $2 WHERE id = $3`,
		newBalance, now, walletID,
	); err != nil {
		return fmt.Errorf("wallet: re-credit wallet: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1, approver_user_id = $2, updated_at = $3 WHERE id = $4`,
		TxnFailed, approverUserID, now, transactionID,
	); err != nil {
		return fmt.Errorf("wallet: fail transaction: %w", err)
	}

	if err := l.insertAudit(ctx, tx, tenantID, walletID, transactionID, "withdrawal_failed", approverUserID, balance, newBalance); err != nil {
		return err
	}

	return tx.Commit()
}

func (l *Ledger) insertAudit(ctx context.Context, tx *sql.Tx, tenantID, walletID, transactionID, action, actorUserID string, before, after int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_audits (id, tenant_id, wallet_id, transaction_id, action, actor_user_id, balance_before, balance_after, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.NewString(), tenantID, walletID, transactionID, action, actorUserID, before, after, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("wallet: insert audit row: %w", err)
	}
	return nil
}
