package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions. Document writes and their
// change notifications run inside one transaction so listeners never see a
// notification for an uncommitted write.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
