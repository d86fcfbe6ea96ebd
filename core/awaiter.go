package core

// AwaitNotifier is the signalling counterpart of an `Awaiter`.
type AwaitNotifier struct {
	done chan struct{}
	err  error
}

// Notify records err as the exit reason of the current
// goroutine and signals the `Awaiter`. It must be called at
// most once.
func (n *AwaitNotifier) Notify(err error) {
	n.err = err
	close(n.done)
}

// Awaiter is the coordination primitive used by workers and
// binders to make the completion of their goroutines observable.
// The goroutine that owns the work holds the AwaitNotifier and
// hands the Awaiter to whoever needs to wait on it, either via
// the `Done()` channel in a `select` or by blocking on `Err()`.
type Awaiter struct {
	notifier *AwaitNotifier
}

// Done returns the channel closed when the Awaiter is signaled.
func (a *Awaiter) Done() <-chan struct{} {
	return a.notifier.done
}

// Err blocks until the Awaiter is signaled and returns the
// exit reason if there was one.
func (a *Awaiter) Err() error {
	<-a.Done()
	return a.notifier.err
}

// NewAwaiter creates an `Awaiter` and `AwaitNotifier` pair.
func NewAwaiter() (*Awaiter, *AwaitNotifier) {
	notifier := &AwaitNotifier{
		done: make(chan struct{}),
	}

	return &Awaiter{notifier: notifier}, notifier
}
