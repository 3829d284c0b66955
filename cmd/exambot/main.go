// Command exambot answers exam timetable queries and keeps one pinned
// notification per course channel.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Stderr.WriteString("exambot: " + err.Error() + "\n")
		os.Exit(1)
	}
}
