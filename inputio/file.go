// Package inputio provides hls.Input adapters for local files and HTTP.
// Both satisfy the pipeline's polled, non-blocking contract: Open and
// Read return immediately and completion is observed through Result.
package inputio

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/zsiec/helix/hls"
)

type requestState struct {
	status hls.Status
	value  uint64
}

// handleTable tracks in-flight requests for a source. Request state is
// written by worker goroutines and polled from the pipeline's thread.
type handleTable struct {
	mu      sync.Mutex
	nextReq uint64
	nextRes uint64
	reqs    map[hls.Request]*requestState
}

func newHandleTable() handleTable {
	return handleTable{reqs: make(map[hls.Request]*requestState)}
}

// begin registers a pending request and returns its handle.
func (t *handleTable) begin() hls.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextReq++
	req := hls.Request(t.nextReq)
	t.reqs[req] = &requestState{status: hls.StatusPending}
	return req
}

func (t *handleTable) complete(req hls.Request, value uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st := t.reqs[req]; st != nil {
		st.status = hls.StatusComplete
		st.value = value
	}
}

func (t *handleTable) fail(req hls.Request) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st := t.reqs[req]; st != nil {
		st.status = hls.StatusError
	}
}

// poll reports a request's state, dropping it once a terminal state has
// been observed.
func (t *handleTable) poll(req hls.Request) (hls.Status, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.reqs[req]
	if !ok {
		return hls.StatusInvalid, 0
	}
	if st.status != hls.StatusPending {
		delete(t.reqs, req)
	}
	return st.status, st.value
}

func (t *handleTable) newResource() hls.Resource {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextRes++
	return hls.Resource(t.nextRes)
}

// FileSource serves presentations from the local filesystem. URLs are
// plain paths, optionally prefixed with file://.
type FileSource struct {
	log   *slog.Logger
	table handleTable

	mu    sync.Mutex
	files map[hls.Resource]*os.File
}

// NewFileSource creates a file-backed input. If log is nil,
// slog.Default() is used.
func NewFileSource(log *slog.Logger) *FileSource {
	if log == nil {
		log = slog.Default()
	}
	return &FileSource{
		log:   log.With("component", "inputio.file"),
		table: newHandleTable(),
		files: make(map[hls.Resource]*os.File),
	}
}

// Open implements hls.Input.
func (s *FileSource) Open(url string) hls.Request {
	req := s.table.begin()
	path := strings.TrimPrefix(url, "file://")
	go func() {
		f, err := os.Open(path)
		if err != nil {
			s.log.Warn("open failed", "path", path, "error", err)
			s.table.fail(req)
			return
		}
		res := s.table.newResource()
		s.mu.Lock()
		s.files[res] = f
		s.mu.Unlock()
		s.table.complete(req, uint64(res))
	}()
	return req
}

// Result implements hls.Input.
func (s *FileSource) Result(req hls.Request) (hls.Status, uint64) {
	return s.table.poll(req)
}

// Size implements hls.Input.
func (s *FileSource) Size(res hls.Resource) int64 {
	s.mu.Lock()
	f := s.files[res]
	s.mu.Unlock()
	if f == nil {
		return 0
	}
	info, err := f.Stat()
	if err != nil {
		return 0
	}
	return info.Size()
}

// Read implements hls.Input.
func (s *FileSource) Read(res hls.Resource, dst []byte) hls.Request {
	req := s.table.begin()
	s.mu.Lock()
	f := s.files[res]
	s.mu.Unlock()
	if f == nil {
		s.table.fail(req)
		return req
	}
	go func() {
		n, err := f.ReadAt(dst, 0)
		if err != nil && n < len(dst) {
			s.log.Warn("read failed", "error", err)
			s.table.fail(req)
			return
		}
		s.table.complete(req, uint64(n))
	}()
	return req
}

// Close implements hls.Input.
func (s *FileSource) Close(res hls.Resource) {
	s.mu.Lock()
	f := s.files[res]
	delete(s.files, res)
	s.mu.Unlock()
	if f != nil {
		f.Close()
	}
}
