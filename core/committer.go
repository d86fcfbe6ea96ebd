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
)

// Committer turns batches of consumed messages into a durable
// side effect for one (topic, partition, id) unit. The host owns
// delivery, retry and pacing; implementations own only the
// persistence logic.
//
// Under the default contract the host never issues overlapping
// Commit, Heartbeat or Close calls for one instance, so
// implementations need no internal locking unless they opt into
// the async capability below.
type Committer interface {
	// Commit persists the batch. Batch is ordered and non-empty
	// and must not be mutated or reordered. Returning an error
	// makes the host retry the same batch after a delay chosen
	// by the recoverable-commit strategy, unless the error is
	// unrecoverable. Only a RetryBatch outcome can narrow the
	// retried sub-batch.
	Commit(ctx context.Context, batch []*Message, metadata *string) (*CommitOutcome, error)

	// Heartbeat is called when the host had no messages to
	// deliver for a full cadence interval. It is never called in
	// an interval that saw a Commit. The returned metadata is
	// persisted exactly as it would be after a commit.
	Heartbeat(ctx context.Context, metadata *string) (*string, error)

	// Close is the last call made to the instance. It is invoked
	// once, synchronously, and is bounded by the host's close
	// timeout.
	Close() error
}

// AsyncCommitter is the optional capability for committers that
// manage their own commit concurrency. When implemented, the
// host calls CommitAsync instead of wrapping Commit itself, and
// multiple in-flight calls may overlap; thread safety is then
// the implementer's responsibility.
type AsyncCommitter interface {
	CommitAsync(ctx context.Context, batch []*Message, metadata *string) *CommitFuture
}

// CommitFuture carries the eventual result of an asynchronous
// commit attempt.
type CommitFuture struct {
	done    chan struct{}
	outcome *CommitOutcome
	err     error
}

// Done returns the channel closed once the result is available.
func (f *CommitFuture) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the commit attempt completes.
func (f *CommitFuture) Result() (*CommitOutcome, error) {
	<-f.done
	return f.outcome, f.err
}

// CommitPromise is the completion side of a CommitFuture.
type CommitPromise struct {
	future *CommitFuture
}

// Complete resolves the future. It must be called at most once.
func (p *CommitPromise) Complete(outcome *CommitOutcome, err error) {
	p.future.outcome = outcome
	p.future.err = err
	close(p.future.done)
}

// NewCommitFuture creates a `CommitFuture` and `CommitPromise`
// pair.
func NewCommitFuture() (*CommitFuture, *CommitPromise) {
	future := &CommitFuture{done: make(chan struct{})}
	return future, &CommitPromise{future: future}
}

// CommitAsync issues a commit through the committer's async
// capability when present, or schedules the synchronous Commit
// on a goroutine and exposes it as a future.
func CommitAsync(ctx context.Context, committer Committer, batch []*Message, metadata *string) *CommitFuture {
	if ac, ok := committer.(AsyncCommitter); ok {
		return ac.CommitAsync(ctx, batch, metadata)
	}

	future, promise := NewCommitFuture()
	go func() {
		promise.Complete(committer.Commit(ctx, batch, metadata))
	}()
	return future
}
