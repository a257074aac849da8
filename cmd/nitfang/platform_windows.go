//go:build windows

package main

import (
	"os"
	"syscall"
	"unsafe"
)

var (
	kernel32           = syscall.NewLazyDLL("kernel32.dll")
	procGetConsoleMode = kernel32.NewProc("GetConsoleMode")
	procSetConsoleMode = kernel32.NewProc("SetConsoleMode")
	procGetStdHandle   = kernel32.NewProc("GetStdHandle")
)

const (
	stdErrorHandle                  = ^uintptr(0) - 12 + 1 // STD_ERROR_HANDLE = -12
	enableVirtualTerminalProcessing = 0x0004
)

// enableANSI enables ANSI escape code processing on stderr on Windows 10+.
func enableANSI() {
	handle, _, _ := procGetStdHandle.Call(stdErrorHandle)
	if handle == 0 {
		return
	}
	var mode uint32
	r, _, _ := procGetConsoleMode.Call(handle, uintptr(unsafe.Pointer(&mode)))
	if r == 0 {
		return
	}
	procSetConsoleMode.Call(handle, uintptr(mode|enableVirtualTerminalProcessing))
}

// shutdownSignals are the signals that cancel a running command.
// Windows only supports SIGINT (Ctrl+C); SIGTERM is not available.
func shutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT}
}
