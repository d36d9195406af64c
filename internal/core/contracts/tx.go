package contracts

import "context"

// Transactor runs fn inside one storage transaction; repository calls made
// with the derived context join it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
