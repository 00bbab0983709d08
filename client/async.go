package client

import (
	"context"
	"errors"
	"sync"

	"github.com/mnehpets/callspec/envelope"
)

var ErrShutdown = errors.New("client: async client shut down")

// Callback receives the outcome of a submitted call.
type Callback func(*envelope.Response, error)

type pending struct {
	ctx context.Context
	req *envelope.Request
	cb  Callback
}

// Async sends calls one at a time, in the order they were submitted, on a
// single goroutine. Callbacks run on that goroutine, so a slow callback
// delays the calls queued behind it. Calls are not retried.
type Async struct {
	client *Client
	queue  chan pending

	mu       sync.RWMutex
	closed   bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewAsync starts the consumer goroutine. queueSize bounds the calls
// waiting to be sent; values below 1 are treated as 1.
func NewAsync(c *Client, queueSize int) *Async {
	if queueSize < 1 {
		queueSize = 1
	}
	a := &Async{
		client: c,
		queue:  make(chan pending, queueSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go a.loop()
	return a
}

// Submit queues req. It blocks only while the queue is full, and returns
// ctx's error if ctx ends first. ctx also governs the call once it is sent.
func (a *Async) Submit(ctx context.Context, req *envelope.Request, cb Callback) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrShutdown
	}
	select {
	case a.queue <- pending{ctx: ctx, req: req, cb: cb}:
		return nil
	case <-a.stop:
		return ErrShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the consumer. A call already being sent completes and its
// callback runs; every call still queued is failed with ErrShutdown.
// Shutdown waits for the consumer to exit and is safe to call more than once.
func (a *Async) Shutdown() {
	a.stopOnce.Do(func() { close(a.stop) })
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	<-a.done

	for {
		select {
		case p := <-a.queue:
			a.deliver(p, nil, ErrShutdown)
		default:
			return
		}
	}
}

func (a *Async) loop() {
	defer close(a.done)
	for {
		select {
		case <-a.stop:
			return
		case p := <-a.queue:
			select {
			case <-a.stop:
				a.deliver(p, nil, ErrShutdown)
				return
			default:
			}
			resp, err := a.client.Call(p.ctx, p.req)
			a.deliver(p, resp, err)
		}
	}
}

// deliver runs the callback, keeping the consumer alive if it panics.
func (a *Async) deliver(p pending, resp *envelope.Response, err error) {
	if p.cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.client.logger.Printf("callspec: async callback panic: %v", r)
		}
	}()
	p.cb(resp, err)
}
