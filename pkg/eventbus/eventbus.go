package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const listenerTimeout = 1 * time.Minute

type Event interface {
	Name() string
}

type Listener func(ctx context.Context, event Event) error

// Bus dispatches events to listeners asynchronously. A failing or panicking
// listener never affects the publisher.
type Bus struct {
	listeners map[string][]Listener
	mu        sync.RWMutex
	wg        sync.WaitGroup
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]Listener),
		logger:    logger,
	}
}

func (b *Bus) Subscribe(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventName] = append(b.listeners[eventName], listener)
}

func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	listeners := append([]Listener(nil), b.listeners[event.Name()]...)
	b.mu.RUnlock()

	for _, listener := range listeners {
		b.wg.Add(1)
		go b.dispatch(listener, event)
	}
}

// Wait blocks until every listener started so far has returned.
func (b *Bus) Wait() {
	b.wg.Wait()
}

func (b *Bus) dispatch(l Listener, event Event) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked",
				zap.String("event", event.Name()),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	// request contexts are cancelled as soon as the handler returns
	ctx, cancel := context.WithTimeout(context.Background(), listenerTimeout)
	defer cancel()

	if err := l(ctx, event); err != nil {
		b.logger.Error("event listener failed",
			zap.String("event", event.Name()),
			zap.Error(err),
		)
	}
}
