// Package resource provides an integer handle table with free-list reuse.
//
// A Table maps compact handles to Go values. Removed slots are recycled,
// and every recycle bumps the slot's generation so a stale handle never
// resolves to the value that reused its slot:
//
//	table := resource.NewTable[span]()
//
//	h, err := table.Insert(span{off: 64, size: 32})
//	v, ok := table.Get(h)
//	v, ok = table.Remove(h) // ok == true
//	_, ok = table.Remove(h) // ok == false, h is stale
//
// Handle 0 is reserved and always invalid.
//
// # Closing
//
// Close drops every live value and rejects further inserts. Values that
// implement Dropper have Drop called once during Close.
//
// Table is safe for concurrent use.
package resource
