package childproc

import (
	"golang.org/x/sys/unix"
)

// closeSafely closes fd, treating the absent-descriptor sentinel as success
func closeSafely(fd int) error {
	if fd == -1 {
		return nil
	}
	return unix.Close(fd)
}

// restartableDup duplicates from onto to, retrying on interruption
func restartableDup(from, to int) error {
	for {
		err := unix.Dup3(from, to, 0)
		if err != unix.EINTR {
			return err
		}
	}
}

// moveDescriptor moves from onto to. Moving a descriptor onto itself is a
// no-op and must not close it.
func moveDescriptor(from, to int) error {
	if from == to {
		return nil
	}
	if err := restartableDup(from, to); err != nil {
		return err
	}
	return unix.Close(from)
}

// markCloseOnExec sets FD_CLOEXEC on fd if it is not already set
func markCloseOnExec(fd int) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return err
	}
	if flags&unix.FD_CLOEXEC != 0 {
		return nil
	}
	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags|unix.FD_CLOEXEC)
	return err
}
