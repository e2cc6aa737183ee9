// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/redisbackup/internal/backup"
	"github.com/tomtom215/redisbackup/internal/logging"
)

// MetadataEventType is the message metadata key holding the event topic.
const MetadataEventType = "event_type"

// ErrBusClosed is returned by Publish and Subscribe after Close.
var ErrBusClosed = errors.New("event bus is closed")

// Config controls the GoChannel pub/sub.
type Config struct {
	// OutputChannelBuffer is the per-subscriber channel buffer.
	OutputChannelBuffer int64
	// BlockPublishUntilSubscriberAck makes Publish wait for every subscriber.
	BlockPublishUntilSubscriberAck bool
}

// DefaultConfig returns a buffered, non-blocking configuration.
func DefaultConfig() Config {
	return Config{OutputChannelBuffer: 256}
}

// Bus implements backup.EventPublisher.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu     sync.RWMutex
	closed bool
}

var _ backup.EventPublisher = (*Bus)(nil)

// NewBus creates an in-process event bus.
func NewBus(cfg Config) *Bus {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            cfg.OutputChannelBuffer,
		BlockPublishUntilSubscriberAck: cfg.BlockPublishUntilSubscriberAck,
	}, logger)
	return &Bus{pubsub: pubsub}
}

// Publish encodes event and publishes it on event.Topic().
func (b *Bus) Publish(ctx context.Context, event backup.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	msg, err := NewMessage(event)
	if err != nil {
		return err
	}
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(event.Topic(), msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Topic(), err)
	}
	return nil
}

// Subscribe returns a channel of messages for topic. The channel closes when
// ctx is cancelled or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	return b.pubsub.Subscribe(ctx, topic)
}

// Close stops delivery and closes every subscriber channel.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

// NewMessage builds the Watermill message for event.
func NewMessage(event backup.Event) (*message.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("serialize %s event: %w", event.Topic(), err)
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set(MetadataEventType, event.Topic())
	return msg, nil
}
