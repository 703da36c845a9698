// Package store provides concrete owners built on package lifecycle, one
// for each way an owner can hold resources:
//
//	Buffer          raw only     one heap block              sealed
//	Journal         raw + owned  scratch block + *os.File    extensible
//	IndexedJournal  raw + owned  extends Journal with an index block and file
//	Mirror          owned only   two Buffers                 no fallback
//
// Every constructor acquires all of its resources or releases the ones it
// got and fails with an acquisition error. Every operation fails with a
// used-after-release error once the value is released.
//
//	h, err := heap.New(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	defer h.Release()
//
//	j, err := store.OpenIndexedJournal(h, "events.log", 1024)
//	if err != nil {
//	    return err
//	}
//	defer j.Release()
//
// An IndexedJournal is a Journal: releasing it through its embedded
// *Journal releases the index level first, then the journal level.
//
// Values in this package are not safe for concurrent use.
package store
