package hls

// Status is the completion state of a polled input request.
type Status int

const (
	StatusInvalid Status = iota
	StatusPending
	StatusComplete
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusInvalid:
		return "invalid"
	case StatusPending:
		return "pending"
	case StatusComplete:
		return "complete"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Request identifies an in-flight open or read operation. Zero is
// invalid.
type Request uint64

// Resource identifies an opened input resource. Zero is invalid.
type Resource uint64

// Input is the non-blocking I/O surface the pipeline drives. Open and
// Read return request handles that are polled with Result; no method
// may block.
type Input interface {
	// Open begins opening the resource at url. Zero means the request
	// could not be issued.
	Open(url string) Request
	// Result polls a request. For open requests the returned value is
	// the resource handle on completion; for read requests it is the
	// byte count.
	Result(req Request) (Status, uint64)
	// Size returns the total byte size of an opened resource.
	Size(res Resource) int64
	// Read begins an asynchronous read of len(dst) bytes into dst.
	Read(res Resource, dst []byte) Request
	// Close releases an opened resource.
	Close(res Resource)
}
