package core

import (
	"context"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
)

// RunCLIInstance runs a binder until it stops on its own or the
// process is interrupted.
func RunCLIInstance(binder BrokerBinder, verbose bool) error {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx := context.Background()
	cancelCtx, cancelFunc := context.WithCancel(ctx)

	chanSignal := make(chan os.Signal, 1)
	signal.Notify(chanSignal, os.Interrupt)

	binder.Start(cancelCtx)

	select {
	case <-binder.Awaiter().Done():
	case <-chanSignal:
	}

	cancelFunc()
	return binder.Awaiter().Err()
}
