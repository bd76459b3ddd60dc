package worker

import (
	"context"
	"log/slog"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/log"
	"expenses/internal/notify"
)

// ChangeConsumer delivers change messages from other processes.
type ChangeConsumer interface {
	ConsumeChanges(ctx context.Context, handler func(context.Context, *amqp.ChangeMessage) error, subscribed func(context.Context)) error
}

// ChangeRelay republishes changes made by other processes into the local
// hub, so local subscribers refresh as if the change were made here.
type ChangeRelay struct {
	consumer ChangeConsumer
	hub      *notify.Hub
	origin   string
}

// NewChangeRelay creates a relay that ignores messages sent by origin.
func NewChangeRelay(consumer ChangeConsumer, hub *notify.Hub, origin string) *ChangeRelay {
	return &ChangeRelay{
		consumer: consumer,
		hub:      hub,
		origin:   origin,
	}
}

// Run consumes until ctx is done.
func (r *ChangeRelay) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Change relay started",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOrigin, r.origin)
	return r.consumer.ConsumeChanges(ctx, r.HandleChangeMessage, r.Resync)
}

// Resync tells local subscribers to reload everything. It runs whenever the
// consumer (re)subscribes, since changes announced while no queue was bound
// never arrive.
func (r *ChangeRelay) Resync(ctx context.Context) {
	slog.DebugContext(ctx, "Change feed subscribed, requesting reload",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOrigin, r.origin)
	r.hub.Publish(notify.Event{Kind: notify.CollectionReloaded, At: time.Now(), Remote: true})
}

// HandleChangeMessage processes a single change message from AMQP.
func (r *ChangeRelay) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	if msg.Origin == r.origin {
		return nil
	}

	slog.DebugContext(ctx, "Relaying remote change",
		log.FieldComponent, log.ComponentWorker,
		log.FieldEventKind, string(msg.Kind),
		log.FieldOrigin, msg.Origin)

	r.hub.Publish(msg.Event())
	return nil
}
