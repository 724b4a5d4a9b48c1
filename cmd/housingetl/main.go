// Command housingetl repairs, reconciles and merges the housing, income and
// zip extracts and loads the result into a SQL database.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"housingetl/internal/etl"

	// register every storage backend; the config picks one at runtime.
	_ "housingetl/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		ev := log.Error().Err(err)
		if f, ok := etl.FailureOf(err); ok {
			ev = ev.Str("class", f.Class()).Str("record", f.Record())
		}
		ev.Msg("housingetl: failed")
		stop()
		os.Exit(1)
	}
}
