package store

import (
	"encoding/binary"
	"io"
	"os"
	"runtime"

	"github.com/wippyai/disposable"
	"github.com/wippyai/disposable/errors"
	"github.com/wippyai/disposable/heap"
	"github.com/wippyai/disposable/lifecycle"
)

const (
	journalName = "store.Journal"

	// ScratchSize is the size of a journal's scratch block.
	ScratchSize = 4096

	frameHeader = 4

	// MaxRecordSize is the largest record a journal accepts.
	MaxRecordSize = ScratchSize - frameHeader
)

// Journal appends length-prefixed records to a file. Each record is framed
// in a raw scratch block before it is written out. The file is an owned
// disposable: a dropped journal frees its scratch block but leaves the
// file to the os.File finalizer.
//
// Journal can be extended; see IndexedJournal.
type Journal struct {
	*lifecycle.Owner
	scratch *heap.Block
	file    *os.File
	path    string
	records int
	size    int64
}

// OpenJournal opens or creates the journal at path. Existing records are
// kept and counted.
func OpenJournal(h *heap.Heap, path string, opts ...lifecycle.Option) (*Journal, error) {
	s := lifecycle.NewScope()
	defer s.Close()

	scratch, err := h.Alloc(ScratchSize)
	if err != nil {
		return nil, errors.AcquisitionFailed(journalName, "scratch block", err)
	}
	_ = s.AddHandle(scratch)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.AcquisitionFailed(journalName, "file "+path, err)
	}
	file := disposable.FromCloser(f)
	_ = s.Add(file)

	data, err := readAll(f)
	if err != nil {
		return nil, errors.AcquisitionFailed(journalName, "file "+path, err)
	}
	frames, err := decodeFrames(data)
	if err != nil {
		return nil, errors.AcquisitionFailed(journalName, "file "+path, err)
	}

	j := &Journal{
		scratch: scratch,
		file:    f,
		path:    path,
		records: len(frames),
		size:    int64(len(data)),
	}
	j.Owner = lifecycle.New(lifecycle.Level{
		Name:    journalName,
		Handles: []disposable.Handle{scratch},
		Owned:   []disposable.Disposable{file},
	}, opts...)

	s.Dismiss()
	return j, nil
}

// Append writes one record and returns its offset in the file.
func (j *Journal) Append(record []byte) (int64, error) {
	if err := j.Guard(); err != nil {
		return 0, err
	}
	if len(record) > MaxRecordSize {
		return 0, errors.New(errors.PhaseOperation, errors.KindInvalidInput).
			Type(j.Name()).
			Detail("record of %d bytes exceeds %d", len(record), MaxRecordSize).
			Build()
	}

	n := uint32(len(record))
	if err := j.scratch.WriteUint32(0, n); err != nil {
		return 0, err
	}
	if err := j.scratch.Write(frameHeader, record); err != nil {
		return 0, err
	}
	frame, err := j.scratch.Read(0, frameHeader+n)
	if err != nil {
		return 0, err
	}
	runtime.KeepAlive(j)

	off := j.size
	if _, err := j.file.Write(frame); err != nil {
		return 0, errors.Wrap(errors.PhaseOperation, errors.KindIO, err, "append to "+j.path)
	}
	j.size += int64(len(frame))
	j.records++
	return off, nil
}

// ReadAt returns the record starting at file offset off.
func (j *Journal) ReadAt(off int64) ([]byte, error) {
	if err := j.Guard(); err != nil {
		return nil, err
	}
	if off < 0 || off+frameHeader > j.size {
		return nil, errors.New(errors.PhaseOperation, errors.KindOutOfBounds).
			Type(j.Name()).
			Value(off).
			Detail("no record at offset %d", off).
			Build()
	}

	var hdr [frameHeader]byte
	if _, err := j.file.ReadAt(hdr[:], off); err != nil {
		return nil, errors.Wrap(errors.PhaseOperation, errors.KindIO, err, "read record header")
	}
	record := make([]byte, binary.LittleEndian.Uint32(hdr[:]))
	if _, err := j.file.ReadAt(record, off+frameHeader); err != nil {
		return nil, errors.Wrap(errors.PhaseOperation, errors.KindIO, err, "read record")
	}
	return record, nil
}

// Records returns every record in append order.
func (j *Journal) Records() ([][]byte, error) {
	if err := j.Guard(); err != nil {
		return nil, err
	}
	data, err := readAll(j.file)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseOperation, errors.KindIO, err, "read "+j.path)
	}
	return decodeFrames(data)
}

// Len returns the number of records, zero after release.
func (j *Journal) Len() int {
	if j.Released() {
		return 0
	}
	return j.records
}

// Sync commits the file to stable storage.
func (j *Journal) Sync() error {
	if err := j.Guard(); err != nil {
		return err
	}
	if err := j.file.Sync(); err != nil {
		return errors.Wrap(errors.PhaseOperation, errors.KindIO, err, "sync "+j.path)
	}
	return nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

func readAll(f *os.File) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	data := make([]byte, info.Size())
	if _, err := f.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return data, nil
}

func decodeFrames(data []byte) ([][]byte, error) {
	var frames [][]byte
	for len(data) > 0 {
		if len(data) < frameHeader {
			return nil, errors.InvalidInput(errors.PhaseOperation, "truncated record header")
		}
		n := binary.LittleEndian.Uint32(data)
		data = data[frameHeader:]
		if uint64(n) > uint64(len(data)) {
			return nil, errors.InvalidInput(errors.PhaseOperation, "truncated record")
		}
		frames = append(frames, append([]byte(nil), data[:n]...))
		data = data[n:]
	}
	return frames, nil
}
