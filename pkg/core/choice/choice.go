// Package choice routes "which registry?" decisions out of a run.
//
// A task that needs a decision calls [Broker.Ask]. The request, carrying
// its own reply channel, is handed to whoever serves the broker (a terminal
// prompt, a preference rule, a test) and only the asking task waits. An
// unanswered request turns into [ErrChoiceTimeout] after the broker's
// timeout; it never blocks the run forever.
package choice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/modfetch/pkg/core/project"
)

// DefaultTimeout bounds how long a request waits for an answer.
const DefaultTimeout = 300 * time.Second

var (
	// ErrChoiceTimeout is returned when nobody answered in time.
	ErrChoiceTimeout = errors.New("no choice made in time")
	// ErrDeclined is returned when the answer picked none of the options.
	ErrDeclined = errors.New("choice declined")
)

// Option is one candidate of a request.
type Option struct {
	Label  string
	Source project.Source
	URL    string
}

func (o Option) String() string {
	if o.URL == "" {
		return o.Label
	}
	return fmt.Sprintf("%s (%s)", o.Label, o.URL)
}

// Request is a pending decision. Answer it exactly once with
// [Request.Reply]; later replies are dropped.
type Request struct {
	Prompt  string
	Options []Option

	reply chan int
}

// Reply answers the request with an option index. An index outside
// Options declines.
func (r *Request) Reply(index int) {
	select {
	case r.reply <- index:
	default:
	}
}

// Chooser decides a request synchronously.
type Chooser func(ctx context.Context, prompt string, options []Option) (int, error)

// Broker hands requests from tasks to a server.
type Broker struct {
	requests chan *Request
	timeout  time.Duration
}

// NewBroker creates a broker. A non-positive timeout means DefaultTimeout.
func NewBroker(timeout time.Duration) *Broker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Broker{requests: make(chan *Request), timeout: timeout}
}

// Timeout returns how long Ask waits.
func (b *Broker) Timeout() time.Duration { return b.timeout }

// Requests is the server side: every request asked appears here.
func (b *Broker) Requests() <-chan *Request { return b.requests }

// Ask publishes a request and waits for the index of the chosen option.
// The wait, including waiting for a server to pick the request up, is
// bounded by the broker timeout.
func (b *Broker) Ask(ctx context.Context, prompt string, options []Option) (int, error) {
	req := &Request{Prompt: prompt, Options: options, reply: make(chan int, 1)}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case b.requests <- req:
	case <-timer.C:
		return -1, ErrChoiceTimeout
	case <-ctx.Done():
		return -1, ctx.Err()
	}

	select {
	case i := <-req.reply:
		if i < 0 || i >= len(options) {
			return -1, ErrDeclined
		}
		return i, nil
	case <-timer.C:
		return -1, ErrChoiceTimeout
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Serve answers requests with c until ctx is done. Requests are served one
// at a time, in arrival order. A chooser error declines the request.
func (b *Broker) Serve(ctx context.Context, c Chooser) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-b.requests:
			i, err := c(ctx, req.Prompt, req.Options)
			if err != nil {
				i = -1
			}
			req.Reply(i)
		}
	}
}

// Prefer answers every request with the first option from source, and
// declines when there is none.
func Prefer(source project.Source) Chooser {
	return func(_ context.Context, _ string, options []Option) (int, error) {
		for i, o := range options {
			if o.Source == source {
				return i, nil
			}
		}
		return -1, ErrDeclined
	}
}
