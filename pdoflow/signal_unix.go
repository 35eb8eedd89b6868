package pdoflow

import "syscall"

// syscallSignalZero returns the null signal used to probe whether a
// process is still alive without sending it a real signal or reaping it.
func syscallSignalZero() syscall.Signal {
	return syscall.Signal(0)
}
