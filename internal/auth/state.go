package auth

import "sync"

type AuthState string

const (
	SignedIn  AuthState = "signed_in"
	SignedOut AuthState = "signed_out"
)

type StateEvent struct {
	UserID uint64
	State  AuthState
}

// Broker fans out sign-in/sign-out events to in-process subscribers for the
// life of the server. Subscribers that fall behind have events dropped rather
// than blocking the auth path.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan StateEvent]struct{}
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan StateEvent]struct{})}
}

// Subscribe returns a receive channel and an unsubscribe func. The channel is
// closed on unsubscribe and on broker Close.
func (b *Broker) Subscribe() (<-chan StateEvent, func()) {
	ch := make(chan StateEvent, 16)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
	return ch, unsubscribe
}

func (b *Broker) Publish(ev StateEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close tears down all subscriptions. Publish and Subscribe become no-ops.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
