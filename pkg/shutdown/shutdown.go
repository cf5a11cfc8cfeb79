package shutdown

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"reactdb/pkg/logger"
)

// Abort logs a startup-fatal condition and exits after a short delay
// so log sinks have time to flush.
func Abort(contextMsg string, err error) {
	logger.Error("startup_fatal", "msg", contextMsg, "error", err)
	time.Sleep(500 * time.Millisecond)
	os.Exit(2)
}

// Wait blocks until SIGINT or SIGTERM, then invokes the provided
// closers in order. Closers should be idempotent.
func Wait(closers ...func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	logger.Info("shutdown_signal", "signal", sig.String())
	for _, c := range closers {
		c()
	}
}
