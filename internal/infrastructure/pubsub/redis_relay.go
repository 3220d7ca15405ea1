package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tradechat/pkg/logger"
)

const publishTimeout = 2 * time.Second

// LocalPublisher delivers a frame to the sessions held by this instance.
type LocalPublisher interface {
	Publish(channel string, payload []byte)
}

type envelope struct {
	Origin  string          `json:"origin"`
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// RedisRelay fans realtime frames out to every API instance. Frames are
// delivered locally at once and relayed through a Redis channel to the
// other instances, which ignore their own echoes.
type RedisRelay struct {
	client *redis.Client
	topic  string
	local  LocalPublisher
	origin string
}

func NewRedisRelay(client *redis.Client, prefix string, local LocalPublisher) *RedisRelay {
	return &RedisRelay{
		client: client,
		topic:  prefix + "events",
		local:  local,
		origin: uuid.New().String(),
	}
}

func (r *RedisRelay) Publish(channel string, payload []byte) {
	r.local.Publish(channel, payload)

	raw, err := json.Marshal(envelope{Origin: r.origin, Channel: channel, Payload: payload})
	if err != nil {
		logger.Error("Relay: failed to encode frame for %s: %v", channel, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.topic, string(raw)).Err(); err != nil {
		logger.Warn("Relay: publish to %s failed, remote sessions miss this frame: %v", r.topic, err)
	}
}

// Run forwards frames from other instances until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.topic)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	logger.Info("Relay: subscribed to %s", r.topic)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.deliver(msg.Payload)
		}
	}
}

func (r *RedisRelay) deliver(raw string) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		logger.Warn("Relay: dropping malformed frame: %v", err)
		return
	}
	if env.Origin == r.origin || env.Channel == "" {
		return
	}
	r.local.Publish(env.Channel, env.Payload)
}
