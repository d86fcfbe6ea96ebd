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
	"sync"
	"time"

	"github.com/pkg/errors"
)

// CommitterFactory produces the Committer instances of one
// process. A factory is created once, owns the lifecycle of
// every committer it hands out, and is closed exactly once at
// host shutdown after all of them are torn down.
type CommitterFactory interface {
	// Create builds the committer for one (topic, partition, id)
	// unit. When invoked through the default async path it is
	// serialized by the host adapter's lock, so implementations
	// need no locking of their own. A recoverable error is
	// retried per the create strategy; wrap with
	// NewUnrecoverableFactoryError to abort the unit permanently.
	Create(topic string, partition int32, id int32) (Committer, error)

	// Close is called once, synchronously, during host shutdown.
	Close() error
}

// AsyncCommitterFactory is the optional capability for factories
// that implement truly concurrent creation. When implemented the
// host never calls Create, and the serialized-lock guarantee no
// longer applies; the recommended practice is for such a
// factory's Create to return NewUnrecoverableFactoryError so an
// accidental synchronous invocation is loud.
type AsyncCommitterFactory interface {
	CreateAsync(topic string, partition int32, id int32) *CommitterFuture
}

// The three pacing knobs and the topic filter are optional
// capabilities; FactoryAdapter falls back to the defaults below
// for any the factory does not supply.
type NoDataBackoffSupplier interface {
	NoDataBackoff() RetryStrategy
}

type CommitRetryBackoffSupplier interface {
	CommitRetryBackoff() RetryStrategy
}

type CreateRetryBackoffSupplier interface {
	CreateRetryBackoff() RetryStrategy
}

type TopicFilterSupplier interface {
	TopicFilter() TopicFilter
}

// TopicFilter is consulted by the host before attaching a
// committer to a topic. It is created once per factory and
// immutable thereafter.
type TopicFilter interface {
	Accept(topic string) bool
}

type TopicFilterFunc func(topic string) bool

func (f TopicFilterFunc) Accept(topic string) bool {
	return f(topic)
}

// AcceptAllTopics is the default topic filter.
var AcceptAllTopics TopicFilter = TopicFilterFunc(func(string) bool { return true })

func DefaultNoDataBackoff() RetryStrategy {
	return NewRandomBackoff(time.Second, 5*time.Second)
}

func DefaultCommitRetryBackoff() RetryStrategy {
	return NewRandomBackoff(time.Second, 5*time.Second)
}

func DefaultCreateRetryBackoff() RetryStrategy {
	return NewExponentialBackoff(250*time.Millisecond, 30*time.Second, 0)
}

// CommitterFuture carries the eventual result of an
// asynchronous committer creation.
type CommitterFuture struct {
	done      chan struct{}
	committer Committer
	err       error
}

func (f *CommitterFuture) Done() <-chan struct{} {
	return f.done
}

// Result blocks until creation completes.
func (f *CommitterFuture) Result() (Committer, error) {
	<-f.done
	return f.committer, f.err
}

// CommitterPromise is the completion side of a CommitterFuture.
type CommitterPromise struct {
	future *CommitterFuture
}

// Complete resolves the future. It must be called at most once.
func (p *CommitterPromise) Complete(committer Committer, err error) {
	p.future.committer = committer
	p.future.err = err
	close(p.future.done)
}

// NewCommitterFuture creates a `CommitterFuture` and
// `CommitterPromise` pair.
func NewCommitterFuture() (*CommitterFuture, *CommitterPromise) {
	future := &CommitterFuture{done: make(chan struct{})}
	return future, &CommitterPromise{future: future}
}

// FactoryAdapter is the host-side wrapper around a
// CommitterFactory. It owns the mutex that serializes the
// default async creation path and resolves the factory's
// optional capabilities against the package defaults, so the
// factory interface itself stays free of locking policy.
type FactoryAdapter struct {
	factory     CommitterFactory
	createMutex sync.Mutex

	noDataBackoff      RetryStrategy
	commitRetryBackoff RetryStrategy
	createRetryBackoff RetryStrategy
	topicFilter        TopicFilter
}

// CreateAsync schedules committer creation on a goroutine. When
// the factory supplies its own async path that path is used
// as-is; otherwise the synchronous Create is serialized through
// the adapter's lock, held only for the duration of one call, so
// at most one Create executes at a time regardless of how many
// units request committers concurrently.
func (a *FactoryAdapter) CreateAsync(topic string, partition int32, id int32) *CommitterFuture {
	if af, ok := a.factory.(AsyncCommitterFactory); ok {
		return af.CreateAsync(topic, partition, id)
	}

	future, promise := NewCommitterFuture()
	go func() {
		a.createMutex.Lock()
		defer a.createMutex.Unlock()
		promise.Complete(a.factory.Create(topic, partition, id))
	}()
	return future
}

func (a *FactoryAdapter) Close() error {
	return a.factory.Close()
}

func (a *FactoryAdapter) NoDataBackoff() RetryStrategy {
	return a.noDataBackoff
}

func (a *FactoryAdapter) CommitRetryBackoff() RetryStrategy {
	return a.commitRetryBackoff
}

func (a *FactoryAdapter) CreateRetryBackoff() RetryStrategy {
	return a.createRetryBackoff
}

func (a *FactoryAdapter) TopicFilter() TopicFilter {
	return a.topicFilter
}

// NewFactoryAdapter wraps factory, resolving its optional
// capabilities once. Strategy and filter instances are shared
// read-only by all workers of the factory.
func NewFactoryAdapter(factory CommitterFactory) *FactoryAdapter {
	a := &FactoryAdapter{
		factory:            factory,
		noDataBackoff:      DefaultNoDataBackoff(),
		commitRetryBackoff: DefaultCommitRetryBackoff(),
		createRetryBackoff: DefaultCreateRetryBackoff(),
		topicFilter:        AcceptAllTopics,
	}

	if s, ok := factory.(NoDataBackoffSupplier); ok {
		a.noDataBackoff = s.NoDataBackoff()
	}
	if s, ok := factory.(CommitRetryBackoffSupplier); ok {
		a.commitRetryBackoff = s.CommitRetryBackoff()
	}
	if s, ok := factory.(CreateRetryBackoffSupplier); ok {
		a.createRetryBackoff = s.CreateRetryBackoff()
	}
	if s, ok := factory.(TopicFilterSupplier); ok {
		a.topicFilter = s.TopicFilter()
	}
	return a
}

// FactoryBuilder constructs a factory from a flat string
// configuration. Every factory implementation must be
// constructible this way; it is how the host builds factories it
// only knows by name.
type FactoryBuilder func(config map[string]string) (CommitterFactory, error)

var (
	factoryBuildersMutex sync.Mutex
	factoryBuilders      = map[string]FactoryBuilder{}
)

// RegisterFactory makes a factory available to BuildFactory
// under the given name. Typically called from an init function
// of the package providing the factory.
func RegisterFactory(name string, builder FactoryBuilder) {
	factoryBuildersMutex.Lock()
	defer factoryBuildersMutex.Unlock()
	factoryBuilders[name] = builder
}

// BuildFactory constructs the factory registered under name with
// the supplied configuration.
func BuildFactory(name string, config map[string]string) (CommitterFactory, error) {
	factoryBuildersMutex.Lock()
	builder, ok := factoryBuilders[name]
	factoryBuildersMutex.Unlock()

	if !ok {
		return nil, errors.Errorf("unknown committer factory %q", name)
	}
	return builder(config)
}
