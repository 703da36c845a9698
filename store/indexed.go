package store

import (
	"encoding/binary"
	"math"
	"os"
	"runtime"

	"github.com/wippyai/disposable"
	"github.com/wippyai/disposable/errors"
	"github.com/wippyai/disposable/heap"
	"github.com/wippyai/disposable/lifecycle"
)

const (
	indexedName = "store.IndexedJournal"
	indexEntry  = 4
)

// IndexedJournal is a Journal with random access by record number. It
// extends the journal's owner with its own level: an index block holding
// record offsets in heap memory, and the index file at path+".idx".
// Release, whether called on the IndexedJournal or on its embedded
// *Journal, releases the index level before the journal level.
type IndexedJournal struct {
	*Journal
	index     *heap.Block
	indexFile *os.File
	count     uint32
	capacity  uint32
}

// OpenIndexedJournal opens or creates an indexed journal at path holding
// at most capacity records.
func OpenIndexedJournal(h *heap.Heap, path string, capacity uint32, opts ...lifecycle.Option) (*IndexedJournal, error) {
	if capacity == 0 || capacity > math.MaxUint32/indexEntry {
		return nil, errors.InvalidInput(errors.PhaseAcquire, "index capacity out of range")
	}

	s := lifecycle.NewScope()
	defer s.Close()

	j, err := OpenJournal(h, path, opts...)
	if err != nil {
		return nil, err
	}
	_ = s.Add(j)

	index, err := h.Alloc(capacity * indexEntry)
	if err != nil {
		return nil, errors.AcquisitionFailed(indexedName, "index block", err)
	}
	_ = s.AddHandle(index)

	f, err := os.OpenFile(path+".idx", os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.AcquisitionFailed(indexedName, "index file", err)
	}
	file := disposable.FromCloser(f)
	_ = s.Add(file)

	data, err := readAll(f)
	if err != nil {
		return nil, errors.AcquisitionFailed(indexedName, "index file", err)
	}
	if len(data)%indexEntry != 0 || uint64(len(data)/indexEntry) > uint64(capacity) {
		return nil, errors.AcquisitionFailed(indexedName, "index file",
			errors.InvalidInput(errors.PhaseAcquire, "index size does not match capacity"))
	}
	if err := index.Write(0, data); err != nil {
		return nil, errors.AcquisitionFailed(indexedName, "index block", err)
	}

	if err := j.Extend(lifecycle.Level{
		Name:    indexedName,
		Handles: []disposable.Handle{index},
		Owned:   []disposable.Disposable{file},
	}); err != nil {
		return nil, errors.AcquisitionFailed(indexedName, "journal level", err)
	}

	s.Dismiss()
	return &IndexedJournal{
		Journal:   j,
		index:     index,
		indexFile: f,
		count:     uint32(len(data) / indexEntry),
		capacity:  capacity,
	}, nil
}

// Append writes a record and indexes it. It returns the record number.
func (ij *IndexedJournal) Append(record []byte) (int, error) {
	if err := ij.Guard(); err != nil {
		return 0, err
	}
	if ij.count == ij.capacity {
		return 0, errors.New(errors.PhaseOperation, errors.KindInvalidInput).
			Type(ij.Name()).
			Detail("index full at %d records", ij.capacity).
			Build()
	}

	off, err := ij.Journal.Append(record)
	if err != nil {
		return 0, err
	}
	if off > math.MaxUint32 {
		return 0, errors.New(errors.PhaseOperation, errors.KindOutOfBounds).
			Type(ij.Name()).
			Value(off).
			Detail("record offset exceeds index range").
			Build()
	}

	slot := ij.count * indexEntry
	if err := ij.index.WriteUint32(slot, uint32(off)); err != nil {
		return 0, err
	}
	runtime.KeepAlive(ij)

	var entry [indexEntry]byte
	binary.LittleEndian.PutUint32(entry[:], uint32(off))
	if _, err := ij.indexFile.Write(entry[:]); err != nil {
		return 0, errors.Wrap(errors.PhaseOperation, errors.KindIO, err, "append to index")
	}

	ij.count++
	return int(ij.count - 1), nil
}

// Lookup returns record number i.
func (ij *IndexedJournal) Lookup(i int) ([]byte, error) {
	if err := ij.Guard(); err != nil {
		return nil, err
	}
	if i < 0 || uint64(i) >= uint64(ij.count) {
		return nil, errors.New(errors.PhaseOperation, errors.KindOutOfBounds).
			Type(ij.Name()).
			Value(i).
			Detail("record %d of %d", i, ij.count).
			Build()
	}

	off, err := ij.index.ReadUint32(uint32(i) * indexEntry)
	runtime.KeepAlive(ij)
	if err != nil {
		return nil, err
	}
	return ij.ReadAt(int64(off))
}

// Count returns the number of indexed records, zero after release.
func (ij *IndexedJournal) Count() int {
	if ij.Released() {
		return 0
	}
	return int(ij.count)
}

// Sync commits the journal and its index to stable storage.
func (ij *IndexedJournal) Sync() error {
	if err := ij.Journal.Sync(); err != nil {
		return err
	}
	if err := ij.indexFile.Sync(); err != nil {
		return errors.Wrap(errors.PhaseOperation, errors.KindIO, err, "sync index")
	}
	return nil
}
