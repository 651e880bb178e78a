package inputio

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/zsiec/helix/hls"
)

// HTTPSource fetches presentations over HTTP. Each Open downloads the
// whole object on a worker goroutine and buffers it; Read then copies
// from the buffered body. Segment-sized objects keep this cheap, and it
// matches the pull model of the pipeline: the body is fully resident
// before ReadSegment runs.
type HTTPSource struct {
	log    *slog.Logger
	client *http.Client
	table  handleTable

	mu     sync.Mutex
	bodies map[hls.Resource][]byte
}

// NewHTTPSource creates an HTTP-backed input. A nil client gets a
// default with a 30s timeout; a nil log uses slog.Default().
func NewHTTPSource(client *http.Client, log *slog.Logger) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &HTTPSource{
		log:    log.With("component", "inputio.http"),
		client: client,
		table:  newHandleTable(),
		bodies: make(map[hls.Resource][]byte),
	}
}

// Open implements hls.Input.
func (s *HTTPSource) Open(url string) hls.Request {
	req := s.table.begin()
	go func() {
		body, err := s.fetch(url)
		if err != nil {
			s.log.Warn("fetch failed", "url", url, "error", err)
			s.table.fail(req)
			return
		}
		res := s.table.newResource()
		s.mu.Lock()
		s.bodies[res] = body
		s.mu.Unlock()
		s.table.complete(req, uint64(res))
	}()
	return req
}

func (s *HTTPSource) fetch(url string) ([]byte, error) {
	resp, err := s.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Result implements hls.Input.
func (s *HTTPSource) Result(req hls.Request) (hls.Status, uint64) {
	return s.table.poll(req)
}

// Size implements hls.Input.
func (s *HTTPSource) Size(res hls.Resource) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.bodies[res]))
}

// Read implements hls.Input.
func (s *HTTPSource) Read(res hls.Resource, dst []byte) hls.Request {
	req := s.table.begin()
	s.mu.Lock()
	body, ok := s.bodies[res]
	s.mu.Unlock()
	if !ok {
		s.table.fail(req)
		return req
	}
	s.table.complete(req, uint64(copy(dst, body)))
	return req
}

// Close implements hls.Input.
func (s *HTTPSource) Close(res hls.Resource) {
	s.mu.Lock()
	delete(s.bodies, res)
	s.mu.Unlock()
}
