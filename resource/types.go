package resource

import "fmt"

// Handle is an opaque reference to a slot in a Table.
// The low 32 bits hold the slot index plus one, the high 32 bits the
// slot generation. Handle 0 is reserved and always invalid.
type Handle uint64

func makeHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index+1))
}

// Index returns the slot index, or -1 for the zero handle.
func (h Handle) Index() int {
	return int(uint32(h)) - 1
}

// Generation returns the slot generation the handle was issued for.
func (h Handle) Generation() uint32 {
	return uint32(h >> 32)
}

func (h Handle) String() string {
	if h == 0 {
		return "handle(nil)"
	}
	return fmt.Sprintf("handle(%d#%d)", h.Index(), h.Generation())
}

// Dropper is optionally implemented by table values that need cleanup
// when the table is closed.
type Dropper interface {
	Drop()
}
