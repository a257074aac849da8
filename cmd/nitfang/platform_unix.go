//go:build !windows

package main

import (
	"os"
	"syscall"
)

func enableANSI() {
	// Unix terminals support ANSI natively, nothing to do.
}

// shutdownSignals are the signals that cancel a running command.
func shutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}
