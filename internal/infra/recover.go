package infra

import (
	"log/slog"
	"os"
	"runtime/debug"
)

// Recover is a top-level panic handler for main goroutines. Logs the
// panic with its stack and exits non-zero.
func Recover() {
	if r := recover(); r != nil {
		slog.Error("💥 Panic recovered", "panic", r, "stack", string(debug.Stack()))
		os.Exit(1)
	}
}
