/*
Copyright © 2021 Committer API Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package core

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultHeartbeatCadence = 10 * time.Second
	DefaultCloseTimeout     = 30 * time.Second
)

// WorkerConfig identifies one processing unit and carries the
// host-owned pacing knobs.
type WorkerConfig struct {
	Topic     string
	Partition int32
	ID        int32

	// HeartbeatCadence is how long the worker waits for a batch
	// before issuing a heartbeat.
	HeartbeatCadence time.Duration

	// CloseTimeout bounds the final Close call on the committer.
	CloseTimeout time.Duration
}

// CommitPositionFunc is how the worker hands durable progress
// back to the binding. Committed holds the messages declared
// durable by the last outcome (nil for metadata-only updates,
// e.g. after a heartbeat); metadata is stored as-is, replacing
// the previous token.
type CommitPositionFunc func(committed []*Message, metadata *string)

// CommitterWorker drives the commit protocol for one
// (topic, partition, id) unit: it creates the committer through
// the factory's async path, feeds it batches from the source,
// applies the outcome/retry state machine, heartbeats through
// idle intervals and closes the committer on the way out.
//
// The worker serializes Commit, Heartbeat and Close for its
// committer, so a heartbeat is never issued while a commit is in
// flight. Exactly one goroutine runs per worker; completion is
// observable through the Awaiter.
type CommitterWorker struct {
	config         WorkerConfig
	factory        *FactoryAdapter
	source         BatchSource
	commitPosition CommitPositionFunc
	metadata       *string
	awaiter        *Awaiter
	awaitNotifier  *AwaitNotifier
	logFields      log.Fields
}

func (w *CommitterWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *CommitterWorker) Awaiter() *Awaiter {
	return w.awaiter
}

func (w *CommitterWorker) run(ctx context.Context) {
	committer, err := w.createCommitter(ctx)
	if err != nil {
		log.WithFields(w.logFields).WithField("err", err).Info("committer creation abandoned")
		w.awaitNotifier.Notify(err)
		return
	}

	err = w.processBatches(ctx, committer)
	// Close is the last call made to the committer; the Awaiter
	// fires only after it returns or times out.
	w.closeCommitter(committer)
	w.awaitNotifier.Notify(err)
}

func (w *CommitterWorker) processBatches(ctx context.Context, committer Committer) error {
	idleAttempt := 0
	wait := w.config.HeartbeatCadence
	for {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case batch, ok := <-w.source.Batches():
			timer.Stop()
			if !ok {
				return nil
			}
			if len(batch) == 0 {
				continue
			}
			if err := w.commitBatch(ctx, committer, batch); err != nil {
				return err
			}
			idleAttempt = 0
			wait = w.config.HeartbeatCadence
		case <-timer.C:
			// A full interval passed without data. Heartbeat once
			// and pace the next idle interval with the no-data
			// strategy.
			metadata, err := committer.Heartbeat(ctx, w.metadata)
			if err != nil {
				if IsUnrecoverable(err) {
					return err
				}
				// The next idle interval is a natural retry.
				log.WithFields(w.logFields).WithField("err", err).Info("heartbeat failed")
			} else {
				w.metadata = metadata
				w.commitPosition(nil, metadata)
			}

			next, ok := w.factory.NoDataBackoff().NextWait(idleAttempt)
			if !ok {
				next = w.config.HeartbeatCadence
			}
			wait = next
			idleAttempt++
		}
	}
}

// createCommitter requests a committer through the factory's
// async path, retrying recoverable failures per the create
// strategy. An unrecoverable factory error, an exhausted
// strategy, or cancellation abandons the unit.
func (w *CommitterWorker) createCommitter(ctx context.Context) (Committer, error) {
	attempt := 0
	for {
		future := w.factory.CreateAsync(w.config.Topic, w.config.Partition, w.config.ID)
		select {
		case <-ctx.Done():
			w.discardPendingCreate(future)
			return nil, ctx.Err()
		case <-future.Done():
		}

		committer, err := future.Result()
		if err == nil {
			log.WithFields(w.logFields).Info("committer created")
			return committer, nil
		}
		if IsUnrecoverable(err) {
			return nil, err
		}

		wait, ok := w.factory.CreateRetryBackoff().NextWait(attempt)
		if !ok {
			return nil, errors.Wrapf(err, "committer creation retries exhausted after %d attempts", attempt)
		}

		log.WithFields(w.logFields).WithFields(log.Fields{"err": err, "retryAttempt": attempt, "wait": wait}).Info("committer creation failed")
		if err := sleepContext(ctx, wait); err != nil {
			return nil, err
		}
		attempt++
	}
}

// commitBatch runs the outcome protocol until the whole batch is
// durable. A returned error terminates the unit; queued retries
// are abandoned at that point.
func (w *CommitterWorker) commitBatch(ctx context.Context, committer Committer, batch []*Message) error {
	pending := batch
	attempt := 0
	for {
		future := CommitAsync(ctx, committer, pending, w.metadata)
		select {
		case <-ctx.Done():
			// The in-flight call must settle before Close is
			// issued; committers are promised no overlapping
			// calls.
			w.awaitInFlight(future.Done())
			return ctx.Err()
		case <-future.Done():
		}

		outcome, err := future.Result()
		if err != nil {
			if IsUnrecoverable(err) {
				return err
			}

			// A thrown error carries no narrowing information:
			// the batch passed to the failing call is replayed in
			// full after a strategy-chosen delay.
			wait, ok := w.factory.CommitRetryBackoff().NextWait(attempt)
			if !ok {
				return errors.Wrapf(err, "commit retries exhausted after %d attempts", attempt)
			}

			log.WithFields(w.logFields).WithFields(log.Fields{"err": err, "retryAttempt": attempt, "wait": wait, "batchSize": len(pending)}).Info("commit failed")
			if err := sleepContext(ctx, wait); err != nil {
				return err
			}
			attempt++
			continue
		}
		if outcome == nil {
			return errors.New("committer returned neither an outcome nor an error")
		}

		// Any returned outcome is a successful call; the failure
		// counter starts over.
		attempt = 0

		switch outcome.Kind {
		case BatchCommitted:
			w.metadata = outcome.Metadata
			w.commitPosition(pending, outcome.Metadata)
			log.WithFields(w.logFields).WithField("batchSize", len(pending)).Debug("batch committed")
			return nil
		case RetryBatch:
			if len(outcome.Pending) == 0 {
				return errors.WithStack(ErrEmptyRetryBatch)
			}

			// Messages absent from the pending set are durable
			// now; persist them and the metadata before waiting
			// out the outcome's own delay.
			committed := subtractBatch(pending, outcome.Pending)
			w.metadata = outcome.Metadata
			w.commitPosition(committed, outcome.Metadata)
			pending = outcome.Pending

			log.WithFields(w.logFields).WithFields(log.Fields{"committed": len(committed), "pending": len(pending), "wait": outcome.RetryAfter}).Info("partial commit, retry scheduled")
			if err := sleepContext(ctx, outcome.RetryAfter); err != nil {
				return err
			}
		default:
			return errors.Errorf("unknown commit outcome kind %d", outcome.Kind)
		}
	}
}

// awaitInFlight waits out a call that was in flight when the
// unit was cancelled, bounded by the close timeout so a stuck
// committer cannot hang shutdown.
func (w *CommitterWorker) awaitInFlight(done <-chan struct{}) {
	select {
	case <-done:
	case <-time.After(w.config.CloseTimeout):
		log.WithFields(w.logFields).WithField("timeout", w.config.CloseTimeout).Info("in-flight call did not settle before shutdown")
	}
}

// discardPendingCreate waits out a creation that was in flight
// when the unit was cancelled. A committer the factory still
// produces has no worker to run it, so it is closed here.
func (w *CommitterWorker) discardPendingCreate(future *CommitterFuture) {
	select {
	case <-future.Done():
		committer, err := future.Result()
		if err == nil && committer != nil {
			w.closeCommitter(committer)
		}
	case <-time.After(w.config.CloseTimeout):
		log.WithFields(w.logFields).WithField("timeout", w.config.CloseTimeout).Info("committer creation did not settle before shutdown")
	}
}

// closeCommitter issues the final Close call, bounded by the
// configured timeout so shutdown cannot hang on an external
// resource.
func (w *CommitterWorker) closeCommitter(committer Committer) {
	done := make(chan error, 1)
	go func() {
		done <- committer.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			log.WithFields(w.logFields).WithField("err", err).Info("committer close failed")
		}
	case <-time.After(w.config.CloseTimeout):
		log.WithFields(w.logFields).WithField("timeout", w.config.CloseTimeout).Info("committer close timed out")
	}
}

// subtractBatch returns the messages of batch that are not in
// pending, preserving order. Identity is pointer first with a
// MessageID fallback so committers may rebuild message values.
func subtractBatch(batch []*Message, pending []*Message) []*Message {
	retained := make(map[*Message]struct{}, len(pending))
	retainedIDs := make(map[string]struct{}, len(pending))
	for _, m := range pending {
		retained[m] = struct{}{}
		if m.MessageID != "" {
			retainedIDs[m.MessageID] = struct{}{}
		}
	}

	committed := []*Message{}
	for _, m := range batch {
		if _, ok := retained[m]; ok {
			continue
		}
		if _, ok := retainedIDs[m.MessageID]; ok && m.MessageID != "" {
			continue
		}
		committed = append(committed, m)
	}
	return committed
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func NewCommitterWorker(config WorkerConfig, factory *FactoryAdapter, source BatchSource, commitPosition CommitPositionFunc) *CommitterWorker {
	if config.HeartbeatCadence == 0 {
		config.HeartbeatCadence = DefaultHeartbeatCadence
	}
	if config.CloseTimeout == 0 {
		config.CloseTimeout = DefaultCloseTimeout
	}

	awaiter, awaitNotifier := NewAwaiter()
	return &CommitterWorker{
		config:         config,
		factory:        factory,
		source:         source,
		commitPosition: commitPosition,
		awaiter:        awaiter,
		awaitNotifier:  awaitNotifier,
		logFields: log.Fields{
			"module":    "committer_worker",
			"topic":     config.Topic,
			"partition": config.Partition,
			"id":        config.ID,
		},
	}
}
