// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/redisbackup/internal/logging"
)

// Subscriber is the subscribe side of Bus.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// EventLog logs every event published on its topics. It implements
// suture.Service.
type EventLog struct {
	subscriber Subscriber
	topics     []string
	logger     zerolog.Logger
	seen       atomic.Int64
}

// NewEventLog creates an event log service for topics.
func NewEventLog(subscriber Subscriber, topics []string) *EventLog {
	return &EventLog{
		subscriber: subscriber,
		topics:     append([]string(nil), topics...),
		logger:     logging.WithComponent("events"),
	}
}

// WithLogger replaces the destination logger.
func (l *EventLog) WithLogger(logger zerolog.Logger) *EventLog {
	l.logger = logger
	return l
}

// Seen is the number of events logged so far.
func (l *EventLog) Seen() int64 {
	return l.seen.Load()
}

// Serve subscribes to every topic and logs until ctx is cancelled.
func (l *EventLog) Serve(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, topic := range l.topics {
		messages, err := l.subscriber.Subscribe(subCtx, topic)
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range messages {
				l.handle(msg)
			}
		}()
	}

	<-ctx.Done()
	cancel()
	wg.Wait()
	return ctx.Err()
}

func (l *EventLog) handle(msg *message.Message) {
	defer msg.Ack()

	event := l.logger.Info().
		Str("event_type", msg.Metadata.Get(MetadataEventType)).
		Str("message_id", msg.UUID)
	if len(msg.Payload) > 0 {
		event = event.RawJSON("payload", msg.Payload)
	}
	event.Msg("Domain event")
	l.seen.Add(1)
}

// String implements fmt.Stringer for suture logging.
func (l *EventLog) String() string {
	return "event-log"
}
