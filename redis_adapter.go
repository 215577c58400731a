package socketrelay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the pub/sub channel used when none is configured.
const DefaultRedisChannel = "socketrelay#/"

// RedisAdapter shares broadcasts between several relay processes through a
// Redis pub/sub channel. Every process, the publisher included, delivers
// a broadcast to its own sockets when it receives it from the channel.
type RedisAdapter struct {
	client    redis.UniversalClient
	channel   string
	namespace *Namespace
	pubsub    *redis.PubSub
	logger    *slog.Logger
	done      chan struct{}
}

// NewRedisAdapter subscribes to channel and starts relaying its messages
// to the namespace.
func NewRedisAdapter(ctx context.Context, namespace *Namespace, client redis.UniversalClient, channel string) (*RedisAdapter, error) {
	if channel == "" {
		channel = DefaultRedisChannel
	}

	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	a := &RedisAdapter{
		client:    client,
		channel:   channel,
		namespace: namespace,
		pubsub:    pubsub,
		logger:    namespace.server.logger.With("adapter", "redis", "channel", channel),
		done:      make(chan struct{}),
	}
	go a.run()

	return a, nil
}

// Broadcast publishes the encoded packet on the channel.
func (a *RedisAdapter) Broadcast(ctx context.Context, packet *Packet) error {
	encoded, err := packet.Encode()
	if err != nil {
		return err
	}

	if err := a.client.Publish(ctx, a.channel, encoded).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", a.channel, err)
	}
	return nil
}

// Close unsubscribes and waits for the relay goroutine to stop.
func (a *RedisAdapter) Close() error {
	err := a.pubsub.Close()
	<-a.done
	return err
}

func (a *RedisAdapter) run() {
	defer close(a.done)

	for msg := range a.pubsub.Channel() {
		a.handleMessage(msg)
	}
}

func (a *RedisAdapter) handleMessage(msg *redis.Message) {
	packet, err := DecodePacket(msg.Payload)
	if err != nil || packet.Type != PacketTypeEvent {
		a.logger.Warn("dropping foreign message", "payload_len", len(msg.Payload))
		return
	}

	a.namespace.deliver(msg.Payload)
}
