package benchmark

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"writebench/storage"
)

// fakeSink records what the content generator and worker do with a sink.
type fakeSink struct {
	mu        sync.Mutex
	writes    []int
	bytes     int64
	hsyncs    int
	hflushes  int
	closed    bool
	aborted   bool
	writeErr  error
	failAfter int // fail the write after this many successful chunks, 0 disables
	syncErr   error
	closeErr  error
	onWrite   func()
}

func (s *fakeSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onWrite != nil {
		s.onWrite()
	}
	if s.writeErr != nil && len(s.writes) >= s.failAfter {
		return 0, s.writeErr
	}
	s.writes = append(s.writes, len(p))
	s.bytes += int64(len(p))
	return len(p), nil
}

func (s *fakeSink) Hsync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hsyncs++
	return s.syncErr
}

func (s *fakeSink) Hflush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hflushes++
	return s.syncErr
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.closeErr
}

func (s *fakeSink) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
	return nil
}

// fakeSession is an in-memory storage.Session.
type fakeSession struct {
	mu        sync.Mutex
	existing  map[string]bool
	sinks     map[string]*fakeSink
	sizes     map[string]int64
	deleted   []string
	createErr error
	newSink   func(name string) *fakeSink
	hang      bool // Size and Delete block until their context is done

	creates  atomic.Int64
	active   atomic.Int64 // sinks created and not yet released
	closed   atomic.Bool
	closedAt int64 // tasks still active when Close was called
	closeN   atomic.Int64
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		existing: map[string]bool{},
		sinks:    map[string]*fakeSink{},
		sizes:    map[string]int64{},
	}
}

func (s *fakeSession) Exists(ctx context.Context, name string) (bool, error) {
	if s.closed.Load() {
		return false, errors.New("session closed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existing[name], nil
}

func (s *fakeSession) Create(ctx context.Context, name string, opts storage.CreateOptions) (storage.Sink, error) {
	if s.closed.Load() {
		return nil, errors.New("session closed")
	}
	s.creates.Add(1)
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existing[name] {
		return nil, storage.ErrExist
	}
	sink := &fakeSink{}
	if s.newSink != nil {
		sink = s.newSink(name)
	}
	s.existing[name] = true
	s.sinks[name] = sink
	s.active.Add(1)
	return &trackedSink{fakeSink: sink, session: s, name: name}, nil
}

func (s *fakeSession) Size(ctx context.Context, name string) (int64, error) {
	if s.hang {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if size, ok := s.sizes[name]; ok {
		return size, nil
	}
	sink, ok := s.sinks[name]
	if !ok {
		return 0, errors.New("not found")
	}
	return sink.bytes, nil
}

func (s *fakeSession) Delete(ctx context.Context, name string) error {
	if s.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.existing, name)
	s.deleted = append(s.deleted, name)
	return nil
}

func (s *fakeSession) Close() error {
	s.closedAt = s.active.Load()
	s.closeN.Add(1)
	s.closed.Store(true)
	return nil
}

func (s *fakeSession) sink(name string) *fakeSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sinks[name]
}

// trackedSink counts releases so tests can see whether the session was
// closed while a sink was still open.
type trackedSink struct {
	*fakeSink
	session  *fakeSession
	name     string
	released bool
}

func (t *trackedSink) release() {
	if !t.released {
		t.released = true
		t.session.active.Add(-1)
	}
}

func (t *trackedSink) Close() error {
	defer t.release()
	return t.fakeSink.Close()
}

func (t *trackedSink) Abort() error {
	defer t.release()
	return t.fakeSink.Abort()
}

func opener(s storage.Session) Opener {
	return func(ctx context.Context, root string) (storage.Session, error) {
		return s, nil
	}
}
