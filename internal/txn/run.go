package txn

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/cellstore/internal/store"
)

// Program is straight-line transaction logic. It performs storage work only
// through t and must return once Do reports an error it cannot handle.
type Program[R any] func(t *T) (R, error)

// T is a program's handle on its transaction.
type T struct {
	effects chan Effect
	results chan reply
	aborted chan struct{}
}

type reply struct {
	res Result
	err error
}

type outcome[R any] struct {
	value R
	err   error
}

// Do suspends the program until the driver has performed e, then returns the
// effect's result. After the transaction is aborted Do returns ErrCancelled
// without performing e.
func (t *T) Do(e Effect) (Result, error) {
	select {
	case t.effects <- e:
	case <-t.aborted:
		return Result{}, ErrCancelled
	}
	r := <-t.results
	return r.res, r.err
}

// Run executes prog as one atomic transaction over tables.
//
// The program runs on its own goroutine and suspends at every effect; the
// calling goroutine drives the native transaction and resumes the program
// with each effect's result. Run returns prog's result only after the
// transaction has committed. If ctx ends first the transaction is rolled
// back and Run returns an error matching ErrCancelled. Engine failures are
// returned as *StorageError; any error prog returns is returned unchanged and
// rolls the transaction back.
//
// The program goroutine has always exited when Run returns.
func Run[R any](ctx context.Context, db *store.Store, mode store.Mode, tables []string, prog Program[R]) (R, error) {
	var zero R
	if err := ctx.Err(); err != nil {
		return zero, cancelled(err)
	}

	tx, err := db.Begin(ctx, mode, tables...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, cancelled(ctxErr)
		}
		return zero, &StorageError{Op: "begin", Cause: err}
	}
	defer tx.Rollback()

	t := &T{
		effects: make(chan Effect),
		results: make(chan reply),
		aborted: make(chan struct{}),
	}
	done := make(chan outcome[R], 1)

	go func() {
		var o outcome[R]
		defer func() {
			if r := recover(); r != nil {
				o = outcome[R]{err: programPanic{value: r}}
			}
			done <- o
		}()
		o.value, o.err = prog(t)
	}()

	d := &driver{tx: tx}
	for {
		select {
		case <-ctx.Done():
			close(t.aborted)
			<-done
			tx.Rollback()
			slog.Debug("transaction cancelled",
				"mode", mode,
				"tables", tables,
				"effects", d.effects,
			)
			return zero, cancelled(ctx.Err())

		case e := <-t.effects:
			res, err := d.exec(ctx, e)
			t.results <- reply{res: res, err: err}

		case o := <-done:
			if o.err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return zero, cancelled(ctxErr)
				}
				return zero, o.err
			}
			if d.failure != nil {
				return zero, d.failure
			}
			if err := ctx.Err(); err != nil {
				return zero, cancelled(err)
			}
			if err := tx.Commit(); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return zero, cancelled(ctxErr)
				}
				return zero, &StorageError{Op: "commit", Cause: err}
			}
			slog.Debug("transaction committed",
				"mode", mode,
				"tables", tables,
				"effects", d.effects,
			)
			return o.value, nil
		}
	}
}

// driver performs effects against the native transaction.
type driver struct {
	tx      *store.Tx
	effects int

	// failure is the first engine error, kept so a program that swallows it
	// still cannot commit.
	failure *StorageError
}

func (d *driver) exec(ctx context.Context, e Effect) (Result, error) {
	d.effects++

	var (
		res Result
		err error
	)
	switch e := e.(type) {
	case GetEffect:
		res.Value, res.Found, err = d.tx.Get(ctx, e.Table, e.Key)
	case PutEffect:
		err = d.tx.Put(ctx, e.Table, e.Key, e.Value)
	case DeleteEffect:
		err = d.tx.Delete(ctx, e.Table, e.Key)
	case IterateEffect:
		return d.iterate(ctx, e)
	default:
		return res, fmt.Errorf("unsupported effect %T", e)
	}
	if err != nil {
		return res, d.fail(ctx, e, err)
	}
	return res, nil
}

// iterate keeps the cursor loop inside the driver: the callback sees every
// row and the program is resumed once when the loop ends.
func (d *driver) iterate(ctx context.Context, e IterateEffect) (Result, error) {
	var (
		res   Result
		cbErr error
	)
	err := d.tx.Scan(ctx, e.Query, func(r store.Record) (bool, error) {
		if err := ctx.Err(); err != nil {
			cbErr = cancelled(err)
			return false, cbErr
		}
		res.Rows++
		step, err := callStep(e.Fn, r)
		if err != nil {
			cbErr = err
			return false, err
		}
		return step == Continue, nil
	})
	if cbErr != nil {
		return res, cbErr
	}
	if err != nil {
		return res, d.fail(ctx, e, err)
	}
	return res, nil
}

func (d *driver) fail(ctx context.Context, e Effect, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return cancelled(ctxErr)
	}
	se := &StorageError{Op: e.String(), Cause: err}
	if d.failure == nil {
		d.failure = se
	}
	return se
}

func callStep(fn func(store.Record) (Step, error), r store.Record) (step Step, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = programPanic{value: v}
		}
	}()
	return fn(r)
}
