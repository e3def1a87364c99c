package stream

import (
	"io"
	"os"
)

// FileStream is a Base backed by a host file. pread/pwrite semantics
// give us the required zero-filled gaps for free: POSIX defines reads
// of never-written regions below the file size to return zeros.
type FileStream struct {
	file *os.File
}

// NewFileStream wraps an already opened file
func NewFileStream(f *os.File) *FileStream {
	return &FileStream{file: f}
}

// OpenFileStream opens or creates the file at path with mode 0600
func OpenFileStream(path string, create bool) (*FileStream, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0600)
	if err != nil {
		return nil, &IOError{Op: "open " + path, Err: err}
	}
	return &FileStream{file: f}, nil
}

func (s *FileStream) Read(p []byte, off int64) (int, error) {
	n, err := s.file.ReadAt(p, off)
	if err == io.EOF {
		return n, nil
	}
	if err != nil {
		return n, &IOError{Op: "pread", Err: err}
	}
	return n, nil
}

func (s *FileStream) Write(p []byte, off int64) error {
	if _, err := s.file.WriteAt(p, off); err != nil {
		return &IOError{Op: "pwrite", Err: err}
	}
	return nil
}

func (s *FileStream) Resize(size int64) error {
	if err := s.file.Truncate(size); err != nil {
		return &IOError{Op: "ftruncate", Err: err}
	}
	return nil
}

func (s *FileStream) Size() (int64, error) {
	fi, err := s.file.Stat()
	if err != nil {
		return 0, &IOError{Op: "fstat", Err: err}
	}
	return fi.Size(), nil
}

// Flush is a no-op: pwrite already lands in the host buffer cache.
// Durable persistence is the mount's fsync responsibility.
func (s *FileStream) Flush() error {
	return nil
}

// IsSparse is true: truncate-extend leaves unallocated holes on the
// unix filesystems securefs runs on.
func (s *FileStream) IsSparse() bool {
	return true
}

func (s *FileStream) Close() error {
	if err := s.file.Close(); err != nil {
		return &IOError{Op: "close", Err: err}
	}
	return nil
}
