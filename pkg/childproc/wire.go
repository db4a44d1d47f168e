package childproc

import (
	"encoding/gob"
	"fmt"
	"io"
)

// handshakeMagic guards the descriptor-transfer protocol: a helper that was
// not started by a matching parent fails the handshake before touching any
// descriptor.
const handshakeMagic int32 = 43110

// WriteTo sends the magic number followed by the gob-encoded descriptor
// bundle over the handshake pipe.
func (c *Child) WriteTo(w io.Writer) error {
	var b [intSize]byte
	putInt(b[:], handshakeMagic)
	if _, err := w.Write(b[:]); err != nil {
		return fmt.Errorf("childproc: handshake write: %w", err)
	}
	if err := gob.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("childproc: handshake encode: %w", err)
	}
	return nil
}

// ReadChild reads and validates a descriptor bundle sent by WriteTo.
func ReadChild(r io.Reader) (*Child, error) {
	var b [intSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return nil, fmt.Errorf("childproc: handshake read: %w", err)
	}
	if magic := getInt(b[:]); magic != handshakeMagic {
		return nil, fmt.Errorf("childproc: bad handshake magic %#x", magic)
	}
	c := new(Child)
	if err := gob.NewDecoder(r).Decode(c); err != nil {
		return nil, fmt.Errorf("childproc: handshake decode: %w", err)
	}
	return c, nil
}
