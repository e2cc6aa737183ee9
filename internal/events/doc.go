// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

/*
Package events delivers backup domain events over Watermill.

Bus implements backup.EventPublisher on an in-process GoChannel pub/sub. Each
event becomes a Watermill message whose payload is the JSON-encoded event and
whose event_type metadata is the event topic. Bus is not persistent: a
message published to a topic with no subscribers is dropped.

EventLog is a suture service that subscribes to every backup topic and writes
one structured log line per event.

	bus := events.NewBus(events.DefaultConfig())
	defer bus.Close()

	manager := backup.NewManager(cfg, backup.Dependencies{Events: bus, ...})
	tree.AddMessagingService(events.NewEventLog(bus, backup.AllTopics))
*/
package events
