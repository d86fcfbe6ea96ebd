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
	"time"

	"github.com/pkg/errors"
)

// ErrEmptyRetryBatch is returned when a retry outcome is
// constructed with no pending messages.
var ErrEmptyRetryBatch = errors.New("retry batch outcome requires a non-empty pending batch")

type OutcomeKind int

const (
	// BatchCommitted indicates every message in the attempted
	// batch is durable.
	BatchCommitted OutcomeKind = iota
	// RetryBatch indicates only part of the attempted batch is
	// durable and the pending remainder must be retried after
	// the outcome's own delay.
	RetryBatch
)

// CommitOutcome is the result of a single commit attempt.
// It is a closed union over OutcomeKind; use the constructors
// so the retry-batch invariant is enforced.
//
// Metadata is the opaque checkpoint token the host persists
// alongside commit position bookkeeping. A nil value clears the
// stored token.
type CommitOutcome struct {
	Kind       OutcomeKind
	Metadata   *string
	RetryAfter time.Duration
	Pending    []*Message
}

// NewBatchCommitted builds the outcome declaring the whole
// attempted batch durable.
func NewBatchCommitted(metadata *string) *CommitOutcome {
	return &CommitOutcome{
		Kind:     BatchCommitted,
		Metadata: metadata,
	}
}

// NewRetryBatch builds the outcome requesting a retry of the
// pending sub-batch after retryAfter. Pending must preserve the
// order of the attempted batch and must not be empty; an empty
// pending set is a contract violation and fails here rather
// than reaching the host's retry loop.
func NewRetryBatch(retryAfter time.Duration, pending []*Message, metadata *string) (*CommitOutcome, error) {
	if len(pending) == 0 {
		return nil, errors.WithStack(ErrEmptyRetryBatch)
	}
	return &CommitOutcome{
		Kind:       RetryBatch,
		Metadata:   metadata,
		RetryAfter: retryAfter,
		Pending:    pending,
	}, nil
}
