// Command gofactor administers a goFactor deployment: it creates and
// deletes client identities, registers relying services, checks service
// tokens, migrates the Postgres schema, and lints configuration files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "gofactor:", err)
		os.Exit(1)
	}
}
