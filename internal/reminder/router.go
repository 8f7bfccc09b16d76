package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNoRoute = errors.New("no notifier for channel")

// Router выбирает Notifier по схеме канала ("telegram:123" -> "telegram").
// Каналы без известной схемы уходят в fallback.
type Router struct {
	fallback Notifier
	routes   map[string]Notifier
}

func NewRouter(fallback Notifier) *Router {
	return &Router{fallback: fallback, routes: make(map[string]Notifier)}
}

// Handle регистрирует Notifier для схемы.
func (rt *Router) Handle(scheme string, n Notifier) {
	rt.routes[scheme] = n
}

func (rt *Router) Notify(ctx context.Context, r Reminder) error {
	if scheme, _, ok := strings.Cut(r.Channel, ":"); ok {
		if n, found := rt.routes[scheme]; found {
			return n.Notify(ctx, r)
		}
	}
	if rt.fallback == nil {
		return fmt.Errorf("%w: %q", ErrNoRoute, r.Channel)
	}
	return rt.fallback.Notify(ctx, r)
}
