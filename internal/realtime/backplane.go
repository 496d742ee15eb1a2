package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backplane relays envelopes between processes over a Redis pub/sub channel
// so staff sessions connected to other instances still receive live
// updates. Each frame carries the origin instance id; a process skips its
// own frames because it already delivered them locally.
type Backplane struct {
	client     *redis.Client
	channel    string
	instanceID string
	logger     *zap.Logger
}

type backplaneFrame struct {
	Origin   string   `json:"origin"`
	StaffID  string   `json:"staff_id"`
	Envelope Envelope `json:"envelope"`
}

// NewBackplane builds a relay over the given Redis client and channel.
func NewBackplane(client *redis.Client, channel string, logger *zap.Logger) *Backplane {
	return &Backplane{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		logger:     logger,
	}
}

// Publish sends one envelope to the channel.
func (b *Backplane) Publish(ctx context.Context, staffID string, env Envelope) error {
	frame, err := json.Marshal(backplaneFrame{
		Origin:   b.instanceID,
		StaffID:  staffID,
		Envelope: env,
	})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, frame).Err()
}

// Run subscribes to the channel and hands foreign frames to deliver until
// the context is cancelled. Intended to be run in its own goroutine.
func (b *Backplane) Run(ctx context.Context, deliver func(staffID string, env Envelope)) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close() //nolint:errcheck

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var frame backplaneFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				b.logger.Warn("malformed backplane frame", zap.Error(err))
				continue
			}
			if frame.Origin == b.instanceID {
				continue
			}
			deliver(frame.StaffID, frame.Envelope)
		}
	}
}
