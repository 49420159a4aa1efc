package marketapi

import (
	"context"
	"errors"
	"time"
)

// RequestEvent describes one finished call.
type RequestEvent struct {
	Endpoint   string
	Method     string
	Class      EndpointClass
	StatusCode int // 0 when no response arrived
	Duration   time.Duration
	Err        error
}

// Observer is notified after every call the Invoker makes.
// Implementations must not block for long and must not fail the call.
type Observer interface {
	ObserveRequest(ctx context.Context, ev RequestEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev RequestEvent)

func (f ObserverFunc) ObserveRequest(ctx context.Context, ev RequestEvent) { f(ctx, ev) }

type multiObserver []Observer

func (m multiObserver) ObserveRequest(ctx context.Context, ev RequestEvent) {
	for _, o := range m {
		o.ObserveRequest(ctx, ev)
	}
}

// Observers fans an event out to every non-nil observer.
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

// Outcome classifies an error for journals and metrics.
func Outcome(err error) string {
	var (
		apiErr      *APIError
		protocolErr *ProtocolError
		configErr   *ConfigError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.As(err, &protocolErr):
		return "protocol_error"
	case errors.As(err, &configErr):
		return "config_error"
	default:
		return "error"
	}
}
