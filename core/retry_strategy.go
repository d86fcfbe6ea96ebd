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

	"golang.org/x/exp/rand"
)

// RetryStrategy maps an attempt index to the wait before the
// next attempt. The second result is false once the strategy is
// exhausted and no further attempts should be made.
//
// A strategy holds no mutable state of its own. The caller owns
// the attempt counter, so one strategy instance can be shared by
// any number of concurrent retry loops.
type RetryStrategy interface {
	NextWait(attempt int) (time.Duration, bool)
}

// RandomBackoff waits for a duration sampled uniformly between
// Min and Max. It never reports exhaustion.
type RandomBackoff struct {
	Min time.Duration
	Max time.Duration
}

func (b *RandomBackoff) NextWait(attempt int) (time.Duration, bool) {
	if b.Max <= b.Min {
		return b.Min, true
	}
	return b.Min + time.Duration(rand.Int63n(int64(b.Max-b.Min)+1)), true
}

func NewRandomBackoff(min, max time.Duration) *RandomBackoff {
	return &RandomBackoff{Min: min, Max: max}
}

// ExponentialBackoff waits for Base doubled attempt times,
// truncated at Cap. A zero MaxAttempts retries indefinitely,
// otherwise the strategy is exhausted once attempt reaches
// MaxAttempts.
type ExponentialBackoff struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

func (b *ExponentialBackoff) NextWait(attempt int) (time.Duration, bool) {
	if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
		return 0, false
	}

	wait := b.Base
	for i := 0; i < attempt; i++ {
		if wait >= b.Cap {
			return b.Cap, true
		}
		wait <<= 1
	}
	if wait > b.Cap {
		wait = b.Cap
	}
	return wait, true
}

func NewExponentialBackoff(base, cap time.Duration, maxAttempts int) *ExponentialBackoff {
	return &ExponentialBackoff{Base: base, Cap: cap, MaxAttempts: maxAttempts}
}
