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
	stderrors "errors"
	"fmt"
)

// UnrecoverableErrorKind names the boundary an unrecoverable
// failure crossed.
type UnrecoverableErrorKind string

const (
	UnrecoverableCreate UnrecoverableErrorKind = "create"
	UnrecoverableCommit UnrecoverableErrorKind = "commit"
)

// UnrecoverableError marks a failure that must never be retried.
// Any error returned from a factory or committer that does not
// carry this marker is treated as recoverable and retried per
// the relevant strategy.
type UnrecoverableError struct {
	Kind UnrecoverableErrorKind
	Err  error
}

func (e *UnrecoverableError) Error() string {
	return fmt.Sprintf("unrecoverable %s failure: %v", e.Kind, e.Err)
}

func (e *UnrecoverableError) Unwrap() error {
	return e.Err
}

// NewUnrecoverableFactoryError wraps a factory creation failure
// that should abort retrying for the unit permanently.
func NewUnrecoverableFactoryError(err error) error {
	return &UnrecoverableError{Kind: UnrecoverableCreate, Err: err}
}

// NewUnrecoverableCommitError wraps a commit failure that should
// permanently stop processing for the committer instance.
func NewUnrecoverableCommitError(err error) error {
	return &UnrecoverableError{Kind: UnrecoverableCommit, Err: err}
}

// IsUnrecoverable reports whether err carries the unrecoverable
// marker anywhere in its chain. The host checks this once at the
// factory/committer boundary.
func IsUnrecoverable(err error) bool {
	var ue *UnrecoverableError
	return stderrors.As(err, &ue)
}
