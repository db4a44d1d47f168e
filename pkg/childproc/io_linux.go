package childproc

import (
	"golang.org/x/sys/unix"
)

// raw read / write entry points, replaced in tests
var (
	rawRead  = unix.Read
	rawWrite = unix.Write
)

// ReadFully reads len(buf) bytes from fd, retrying interrupted and partial
// reads. It returns the number of bytes read, which is less than len(buf)
// only when end of file is reached first; the caller decides whether a short
// read is a protocol violation.
func ReadFully(fd int, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		r, err := rawRead(fd, buf[n:])
		switch {
		case err == unix.EINTR:
			// interrupted, retry
		case err != nil:
			return n, err
		case r == 0:
			// end of file
			return n, nil
		default:
			n += r
		}
	}
	return n, nil
}

// WriteFully writes all of buf to fd, retrying interrupted and partial
// writes.
func WriteFully(fd int, buf []byte) error {
	n := 0
	for n < len(buf) {
		w, err := rawWrite(fd, buf[n:])
		switch {
		case err == unix.EINTR:
			// interrupted, retry
		case err != nil:
			return err
		case w == 0:
			// no progress and no error, do not spin
			return unix.EIO
		default:
			n += w
		}
	}
	return nil
}

func writeInt(fd int, v int32) error {
	var b [intSize]byte
	putInt(b[:], v)
	return WriteFully(fd, b[:])
}
