package scheduler

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownOnSignal returns a context that is cancelled on SIGTERM or SIGINT,
// which stops Run. The stop functions then run in order (the live hub, for
// example, so open websockets do not hold up the HTTP drain). A second
// signal exits at once.
func ShutdownOnSignal(stops ...func()) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		log.Printf("[Scheduler] %v received, stopping rollovers", sig)
		cancel()
		for _, stop := range stops {
			stop()
		}

		sig = <-sigCh
		log.Printf("[Scheduler] %v received again, exiting without drain", sig)
		os.Exit(1)
	}()

	return ctx
}
