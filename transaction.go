package qail

import (
	"github.com/qail-io/qail-go/pkg/ast"
	"github.com/qail-io/qail-go/pkg/types"
)

// BeginTx opens a transaction block. The transaction status of the
// connection is tracked from the status byte of every ReadyForQuery message.
func (c *Conn) BeginTx() error {
	_, err := c.Execute(ast.BeginTx())
	return err
}

// CommitTx commits the current transaction block.
func (c *Conn) CommitTx() error {
	_, err := c.Execute(ast.CommitTx())
	return err
}

// RollbackTx rolls back the current transaction block. A rollback is the
// only command accepted while the transaction is in the failed state.
func (c *Conn) RollbackTx() error {
	_, err := c.Execute(ast.RollbackTx())
	return err
}

// Savepoint establishes a savepoint with the given name inside the current
// transaction block.
func (c *Conn) Savepoint(name string) error {
	_, err := c.Execute(ast.NewSavepoint(name))
	return err
}

// ReleaseSavepoint releases the savepoint with the given name.
func (c *Conn) ReleaseSavepoint(name string) error {
	_, err := c.Execute(ast.Release(name))
	return err
}

// RollbackTo rolls back to the savepoint with the given name, recovering a
// failed transaction back to the savepoint boundary.
func (c *Conn) RollbackTo(name string) error {
	_, err := c.Execute(ast.RollbackTo(name))
	return err
}

// InTransaction returns whether the connection is inside a transaction
// block, failed or otherwise.
func (c *Conn) InTransaction() bool {
	return c.txStatus == types.TxActive || c.txStatus == types.TxFailed
}

// InFailedTransaction returns whether the connection is inside a failed
// transaction block. Every command except a rollback is rejected until the
// transaction is rolled back.
func (c *Conn) InFailedTransaction() bool {
	return c.txStatus == types.TxFailed
}
