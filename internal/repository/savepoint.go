package repository

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
)

var savepointName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Savepoints issues SAVEPOINT statements so a single failed statement can be
// undone without aborting the surrounding transaction.
type Savepoints struct{}

// NewSavepoints constructs a Savepoints helper.
func NewSavepoints() *Savepoints {
	return &Savepoints{}
}

func (s *Savepoints) Create(ctx context.Context, tx *sqlx.Tx, name string) error {
	return s.exec(ctx, tx, "SAVEPOINT ", name)
}

func (s *Savepoints) RollbackTo(ctx context.Context, tx *sqlx.Tx, name string) error {
	return s.exec(ctx, tx, "ROLLBACK TO SAVEPOINT ", name)
}

func (s *Savepoints) Release(ctx context.Context, tx *sqlx.Tx, name string) error {
	return s.exec(ctx, tx, "RELEASE SAVEPOINT ", name)
}

func (s *Savepoints) exec(ctx context.Context, tx *sqlx.Tx, stmt, name string) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	// identifiers cannot be bound as parameters
	if !savepointName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := tx.ExecContext(ctx, stmt+name); err != nil {
		return fmt.Errorf("%s%s: %w", stmt, name, err)
	}
	return nil
}
