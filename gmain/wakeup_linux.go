//go:build linux

package gmain

import "golang.org/x/sys/unix"

// createWakeFD returns a non-blocking, close-on-exec eventfd used as both
// the read and write end of the wakeup token.
func createWakeFD() (int, int, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return -1, -1, err
	}
	return fd, fd, nil
}
