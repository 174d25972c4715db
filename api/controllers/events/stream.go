// Package events streams hub notifications to HTTP clients as Server-Sent Events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/mercerie-backend/api/middleware"
	"github.com/angelmondragon/mercerie-backend/api/responses"
	"github.com/angelmondragon/mercerie-backend/internal/notifications"
	"github.com/angelmondragon/mercerie-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mercerie-backend/pkg/errors"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
)

const (
	bufferSize        = 32
	heartbeatInterval = 25 * time.Second
)

// Subscriber is the read side of the notification hub.
type Subscriber interface {
	SubscribeProductQuantityChanged(handler func(notifications.ProductQuantityChanged)) func()
	SubscribeCatalogChanged(handler func(notifications.CatalogChanged)) func()
	SubscribeOrderStatusChanged(handler func(notifications.OrderStatusChanged)) func()
	SubscribeEmployeeStatusChanged(handler func(notifications.EmployeeStatusChanged)) func()
}

type message struct {
	name    string
	payload any
}

// Stream subscribes the caller to every hub channel until the request ends.
// Order status changes reach staff and the client owning the order only;
// employee presence reaches staff only.
// Hub delivery never blocks on a slow reader: events beyond the buffer are dropped.
func Stream(hub Subscriber, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		ctx := r.Context()
		userID := middleware.UserUUIDFromContext(ctx)
		isClient := middleware.RoleFromContext(ctx) == enums.UserRoleClient

		out := make(chan message, bufferSize)
		send := func(name string, payload any) {
			select {
			case out <- message{name: name, payload: payload}:
			default:
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "channel", name), "events.dropped")
				}
			}
		}

		unsubscribe := []func(){
			hub.SubscribeProductQuantityChanged(func(e notifications.ProductQuantityChanged) {
				send(notifications.ChannelProductQuantityChanged, e)
			}),
			hub.SubscribeCatalogChanged(func(e notifications.CatalogChanged) {
				send(notifications.ChannelCatalogChanged, e)
			}),
			hub.SubscribeOrderStatusChanged(func(e notifications.OrderStatusChanged) {
				if isClient && e.ClientID != userID {
					return
				}
				send(notifications.ChannelOrderStatusChanged, e)
			}),
		}
		if !isClient {
			unsubscribe = append(unsubscribe, hub.SubscribeEmployeeStatusChanged(func(e notifications.EmployeeStatusChanged) {
				send(notifications.ChannelEmployeeStatusChanged, e)
			}))
		}
		defer func() {
			for _, fn := range unsubscribe {
				fn()
			}
		}()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		if logg != nil {
			logg.Info(ctx, "events.stream.open")
		}
		err := pump(ctx, w, flusher, out)
		if logg != nil && err != nil && ctx.Err() == nil {
			logg.Error(ctx, "events.stream.write", err)
		}
	}
}

func pump(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, out <-chan message) error {
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return err
			}
			flusher.Flush()
		case msg := <-out:
			if err := writeEvent(w, msg); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, msg message) error {
	data, err := json.Marshal(msg.payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.name, err)
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", uuid.NewString(), msg.name, data)
	return err
}
