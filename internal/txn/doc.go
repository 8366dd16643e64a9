// Package txn runs straight-line storage programs as single atomic
// transactions.
//
// A Program reads and writes through a *T. Each call to (*T).Do hands an
// Effect (get, put, delete or iterate) to the driver loop in Run and suspends
// the program until the driver answers. The driver alone touches the native
// store.Tx, so the program never shares it across goroutines.
//
// Iteration keeps the cursor in the driver: the IterateEffect callback sees
// each row in turn and the program is resumed once, after the callback
// returns Break or the rows run out.
//
// Run returns only after the transaction commits. Cancelling the context
// rolls the transaction back and yields ErrCancelled; a program error or an
// engine failure (*StorageError) also rolls back. No write from a failed Run
// is ever visible.
//
//	n, err := txn.Run(ctx, db, store.ReadWrite, []string{"pois"},
//		func(t *txn.T) (int, error) {
//			p, ok, err := txn.Get[Poi](t, "pois", guid)
//			...
//			return 1, txn.Put(t, "pois", guid, p)
//		})
package txn
