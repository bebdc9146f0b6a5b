package preview

import "github.com/MohamedFakhry2007/imaging-report-generator/api/internal/upload"

// Slot holds at most one preview handle. Acquiring a new preview always
// releases the current one first, so a slot can never leak a handle it
// has superseded. A Slot is not safe for concurrent use; it belongs to
// whoever owns the selection (a controller).
type Slot struct {
	store *Store
	cur   Handle
}

// Acquire releases the current preview (if any) and creates one for f.
func (sl *Slot) Acquire(f upload.File) Handle {
	sl.Release()
	sl.cur = sl.store.create(f)
	return sl.cur
}

// Release drops the current preview. Safe to call on an empty slot.
func (sl *Slot) Release() {
	if sl.cur.IsZero() {
		return
	}
	sl.store.Release(sl.cur.ID)
	sl.cur = Handle{}
}

func (sl *Slot) Current() Handle { return sl.cur }
