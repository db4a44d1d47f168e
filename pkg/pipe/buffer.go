// Package pipe collects a spawned program's output through an os pipe,
// bounded to a maximum number of bytes.
package pipe

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Buffer collects what a spawned program writes to W, up to Max bytes plus
// one so overflow is detectable. Done closes once the limit is reached or
// the write end is closed everywhere; the caller must close its own copy of
// W after handing it to the child.
type Buffer struct {
	W      *os.File
	Max    int64
	Buffer *bytes.Buffer
	Done   <-chan struct{}
}

// NewPipe creates a pipe whose read end is copied into writer for up to n
// bytes. The returned channel closes when copying stops; the remainder is
// drained so the writer side never blocks or takes SIGPIPE.
func NewPipe(writer io.Writer, n int64) (<-chan struct{}, *os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	done := make(chan struct{})
	go func() {
		io.CopyN(writer, r, n)
		close(done)
		io.Copy(io.Discard, r)
		r.Close()
	}()
	return done, w, nil
}

// NewBuffer creates a Buffer collecting at most max bytes.
func NewBuffer(max int64) (*Buffer, error) {
	buffer := new(bytes.Buffer)
	done, w, err := NewPipe(buffer, max+1)
	if err != nil {
		return nil, err
	}
	return &Buffer{
		W:      w,
		Max:    max,
		Buffer: buffer,
		Done:   done,
	}, nil
}

// Overflown reports whether the program wrote more than Max bytes
func (b *Buffer) Overflown() bool {
	return int64(b.Buffer.Len()) > b.Max
}

func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer[%d/%d]", b.Buffer.Len(), b.Max)
}
