package main

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/disposable/heap"
	"github.com/wippyai/disposable/lifecycle"
	"github.com/wippyai/disposable/store"
)

const (
	bufferCapacity = 256
	indexCapacity  = 64
	collectRounds  = 20
	collectPause   = 10 * time.Millisecond
)

type object interface {
	Release() error
	Released() bool
}

// session runs steps against named store objects sharing one heap.
// Events from every object land in one ordered log.
type session struct {
	heap    *heap.Heap
	log     *lifecycle.Log
	logger  *zap.Logger
	objects map[string]object
	dir     string
	seen    int
	pending int // fallbacks expected from dropped objects
}

type opFunc func(*session, Step) (string, error)

var ops = map[string]opFunc{
	"new":     (*session).create,
	"write":   (*session).write,
	"work":    (*session).work,
	"release": (*session).release,
	"drop":    (*session).drop,
	"collect": (*session).collect,
}

func newSession(ctx context.Context, dir string, maxPages uint32, logger *zap.Logger) (*session, error) {
	h, err := heap.New(ctx, &heap.Config{MaxPages: maxPages}, lifecycle.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create heap: %w", err)
	}
	return &session{
		heap:    h,
		log:     &lifecycle.Log{},
		logger:  logger,
		objects: make(map[string]object),
		dir:     dir,
	}, nil
}

func (s *session) options() []lifecycle.Option {
	return []lifecycle.Option{
		lifecycle.WithObserver(s.log),
		lifecycle.WithLogger(s.logger),
		lifecycle.WithGoroutineCheck(),
	}
}

// exec runs one step and returns its result line.
func (s *session) exec(st Step) (string, error) {
	op, ok := ops[st.Op]
	if !ok {
		return "", fmt.Errorf("unknown op %q", st.Op)
	}
	return op(s, st)
}

// events returns the events recorded since the previous call.
func (s *session) events() []string {
	all := s.log.Strings()
	if s.seen >= len(all) {
		return nil
	}
	out := all[s.seen:]
	s.seen = len(all)
	return out
}

func (s *session) lookup(name string) (object, error) {
	o, ok := s.objects[name]
	if !ok {
		return nil, fmt.Errorf("no object named %q", name)
	}
	return o, nil
}

func (s *session) create(st Step) (string, error) {
	if st.Name == "" {
		return "", fmt.Errorf("new: missing name")
	}
	if _, ok := s.objects[st.Name]; ok {
		return "", fmt.Errorf("object %q already exists", st.Name)
	}

	var (
		o   object
		err error
	)
	path := filepath.Join(s.dir, st.Name+".log")
	switch st.Kind {
	case "buffer":
		o, err = store.NewBuffer(s.heap, bufferCapacity, s.options()...)
	case "journal":
		o, err = store.OpenJournal(s.heap, path, s.options()...)
	case "indexed":
		o, err = store.OpenIndexedJournal(s.heap, path, indexCapacity, s.options()...)
	case "mirror":
		o, err = store.NewMirror(s.heap, bufferCapacity, s.options()...)
	default:
		return "", fmt.Errorf("unknown kind %q (buffer, journal, indexed, mirror)", st.Kind)
	}
	if err != nil {
		return "", err
	}

	s.objects[st.Name] = o
	return fmt.Sprintf("created %s %s", st.Kind, st.Name), nil
}

func (s *session) write(st Step) (string, error) {
	o, err := s.lookup(st.Name)
	if err != nil {
		return "", err
	}
	data := []byte(st.Data)

	switch o := o.(type) {
	case *store.Buffer:
		n, err := o.Write(data)
		return fmt.Sprintf("wrote %d bytes", n), err
	case *store.Mirror:
		n, err := o.Write(data)
		return fmt.Sprintf("wrote %d bytes to both copies", n), err
	case *store.IndexedJournal:
		n, err := o.Append(data)
		return fmt.Sprintf("appended record %d", n), err
	case *store.Journal:
		off, err := o.Append(data)
		return fmt.Sprintf("appended at offset %d", off), err
	}
	return "", fmt.Errorf("%s: cannot write", st.Name)
}

func (s *session) work(st Step) (string, error) {
	o, err := s.lookup(st.Name)
	if err != nil {
		return "", err
	}

	switch o := o.(type) {
	case *store.Buffer:
		data, err := o.Bytes()
		return fmt.Sprintf("contents %q", data), err
	case *store.Mirror:
		data, err := o.Bytes()
		return fmt.Sprintf("contents %q", data), err
	case *store.IndexedJournal:
		last := o.Count() - 1
		if last < 0 {
			if !o.Released() {
				return "no records", nil
			}
			last = 0
		}
		rec, err := o.Lookup(last)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("record %d = %q", last, rec), nil
	case *store.Journal:
		recs, err := o.Records()
		return fmt.Sprintf("%d records", len(recs)), err
	}
	return "", fmt.Errorf("%s: no work defined", st.Name)
}

func (s *session) release(st Step) (string, error) {
	o, err := s.lookup(st.Name)
	if err != nil {
		return "", err
	}

	if st.Kind == "base" {
		ij, ok := o.(*store.IndexedJournal)
		if !ok {
			return "", fmt.Errorf("%s: release base applies to indexed journals", st.Name)
		}
		var base *store.Journal = ij.Journal
		return "released through *store.Journal", base.Release()
	}

	was := o.Released()
	if err := o.Release(); err != nil {
		return "", err
	}
	if was {
		return "already released, nothing to do", nil
	}
	return "released", nil
}

// drop forgets an object without releasing it, leaving it to its fallback.
func (s *session) drop(st Step) (string, error) {
	o, err := s.lookup(st.Name)
	if err != nil {
		return "", err
	}
	n := armedFallbacks(o)
	s.pending += n
	delete(s.objects, st.Name)
	return fmt.Sprintf("dropped %s, %d fallback(s) pending", st.Name, n), nil
}

func armedFallbacks(o object) int {
	switch o := o.(type) {
	case *store.Buffer:
		return boolInt(o.FallbackArmed())
	case *store.Mirror:
		return boolInt(o.Primary().FallbackArmed()) + boolInt(o.Secondary().FallbackArmed())
	case *store.IndexedJournal:
		return boolInt(o.FallbackArmed())
	case *store.Journal:
		return boolInt(o.FallbackArmed())
	}
	return 0
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// collect runs the garbage collector until every dropped object's
// fallback has fired, or gives up after a few rounds.
func (s *session) collect(Step) (string, error) {
	count := func() int { return len(s.log.Filter(lifecycle.EventFallbackFired)) }
	before := count()

	for i := 0; i < collectRounds && count()-before < s.pending; i++ {
		runtime.GC()
		time.Sleep(collectPause)
	}

	fired := count() - before
	s.pending -= fired
	if s.pending < 0 {
		s.pending = 0
	}
	s.logger.Debug("collect finished", zap.Int("fired", fired), zap.Int("pending", s.pending))
	return fmt.Sprintf("%d fallback(s) ran", fired), nil
}

func (s *session) names() []string {
	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// close releases every remaining object, then the heap.
func (s *session) close() error {
	var err error
	for _, name := range s.names() {
		err = multierr.Append(err, s.objects[name].Release())
	}
	s.objects = nil
	return multierr.Append(err, s.heap.Release())
}
