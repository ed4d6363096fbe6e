package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Handler func(ctx context.Context, event Event) error

// streamClient is the part of *redis.Client the subscriber uses.
type streamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

type Subscriber struct {
	client        streamClient
	group         string
	consumer      string
	stream        string
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
	retryInterval time.Duration
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	// RetryInterval is how often entries whose handler failed are redelivered.
	RetryInterval time.Duration
}

func NewSubscriber(client *redis.Client, config SubscriberConfig) *Subscriber {
	return newSubscriber(client, config)
}

func newSubscriber(client streamClient, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.RetryInterval == 0 {
		config.RetryInterval = 30 * time.Second
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		retryInterval: config.RetryInterval,
	}
}

// Start consumes the stream until ctx is cancelled. Entries whose handler
// fails stay unacknowledged and are handed to the handler again on start and
// every RetryInterval.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Printf("Subscriber started: stream=%s, group=%s, consumer=%s", s.stream, s.group, s.consumer)

	lastRetry := time.Time{}
	for {
		select {
		case <-ctx.Done():
			log.Printf("Subscriber stopping: %s", s.stream)
			return ctx.Err()
		default:
			if time.Since(lastRetry) >= s.retryInterval {
				if err := s.retryPending(ctx); err != nil && ctx.Err() == nil {
					log.Printf("Error retrying pending %s: %v", s.stream, err)
				}
				lastRetry = time.Now()
			}
			if err := s.readMessages(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Error reading %s: %v", s.stream, err)
				time.Sleep(time.Second)
			}
		}
	}
}

// readMessages handles entries not yet delivered to the group.
func (s *Subscriber) readMessages(ctx context.Context) error {
	_, _, err := s.readBatch(ctx, ">", s.blockDuration)
	return err
}

// retryPending walks this consumer's unacknowledged entries once, oldest first.
func (s *Subscriber) retryPending(ctx context.Context) error {
	start := "0"
	for {
		lastID, n, err := s.readBatch(ctx, start, -1)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		start = lastID
	}
}

// readBatch reads from start and handles what it got. A negative block omits
// BLOCK, which Redis ignores for history reads anyway.
func (s *Subscriber) readBatch(ctx context.Context, start string, block time.Duration) (string, int, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, start},
		Count:    s.batchSize,
		Block:    block,
	}).Result()

	if errors.Is(err, redis.Nil) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to read from stream: %w", err)
	}

	lastID, n := "", 0
	for _, stream := range streams {
		for _, message := range stream.Messages {
			lastID = message.ID
			n++
			// Pending entries trimmed from the stream come back without values.
			if len(message.Values) > 0 {
				if err := s.processMessage(ctx, message); err != nil {
					log.Printf("Failed to process message %s: %v", message.ID, err)
					continue
				}
			}
			if err := s.client.XAck(ctx, s.stream, s.group, message.ID).Err(); err != nil {
				log.Printf("Failed to ACK message %s: %v", message.ID, err)
			}
		}
	}

	return lastID, n, nil
}

func (s *Subscriber) processMessage(ctx context.Context, message redis.XMessage) error {
	eventData, ok := message.Values[eventField].(string)
	if !ok {
		return fmt.Errorf("invalid message format")
	}

	event, err := ParseEvent([]byte(eventData))
	if err != nil {
		return err
	}
	return s.handler(ctx, event)
}

// ParseEvent decodes a stream entry. Data is kept as raw JSON so amounts
// reach DecodeData without passing through float64.
func ParseEvent(data []byte) (Event, error) {
	var envelope struct {
		Type      string          `json:"type"`
		Timestamp time.Time       `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return Event{Type: envelope.Type, Timestamp: envelope.Timestamp, Data: envelope.Data}, nil
}

// DecodeData decodes the payload of an event into out.
func DecodeData(event Event, out any) error {
	raw, ok := event.Data.(json.RawMessage)
	if !ok {
		var err error
		if raw, err = json.Marshal(event.Data); err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", event.Type, err)
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", event.Type, err)
	}
	return nil
}
