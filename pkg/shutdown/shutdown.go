package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"agentdesk/pkg/logger"
)

// Fatal logs a startup-fatal error, writes a crash dump next to the DB and
// exits. Used for unrecoverable conditions before the daemon is serving.
func Fatal(contextMsg string, err error, dbPath string) {
	logger.Error("startup_fatal", "msg", contextMsg, "error", err)
	if path, derr := writeCrashDump(dbPath, contextMsg, err); derr != nil {
		fmt.Fprintf(os.Stderr, "failed to write crash dump: %v\n", derr)
	} else {
		logger.Error("startup_fatal_crashdump", "path", path)
	}
	os.Exit(2)
}

// writeCrashDump writes reason, error and all goroutine stacks to
// <dbPath>/state/crash/crash-<ts>.log and returns the path.
func writeCrashDump(dbPath, reason string, err error) (string, error) {
	dir := "./crash"
	if dbPath != "" {
		dir = filepath.Join(dbPath, "state", "crash")
	}
	if e := os.MkdirAll(dir, 0o700); e != nil {
		return "", fmt.Errorf("failed to create crash dir: %w", e)
	}

	f, ferr := os.CreateTemp(dir, ".crash-*.tmp")
	if ferr != nil {
		return "", fmt.Errorf("failed to create temp crash file: %w", ferr)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	fmt.Fprintf(f, "time: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(f, "reason: %s\n", reason)
	fmt.Fprintf(f, "error: %v\n", err)
	fmt.Fprintf(f, "\n--- goroutine stacks ---\n")
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	f.Write(buf[:n])
	f.Sync()
	f.Close()

	path := filepath.Join(dir, fmt.Sprintf("crash-%d.log", time.Now().UnixNano()))
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to move crash dump into place: %w", err)
	}
	_ = os.Chmod(path, 0o600)
	return path, nil
}

// SetupSignalHandler installs handlers for SIGINT/SIGTERM and returns a
// context cancelled when either arrives.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigc
		logger.Info("signal_received", "signal", s.String(), "msg", "shutdown requested")
		cancel()
	}()

	return ctx, cancel
}
