package linklog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/herlein/gocrazy/pkg/scanner"
)

// DefaultRedisChannel is the pub/sub channel link events are published on.
const DefaultRedisChannel = "crazyradio:links"

// Publisher forwards link transitions to Redis. The current state of each
// link is kept under "<channel>:<rate>:<ch>" and every transition is also
// published on the channel.
type Publisher struct {
	db      *redis.Client
	channel string
}

// eventMessage is the JSON published for a transition
type eventMessage struct {
	Kind       EventKind `json:"kind"`
	Link       string    `json:"link"`
	DataRate   string    `json:"data_rate"`
	Channel    int       `json:"channel"`
	At         time.Time `json:"at"`
	Detections int       `json:"detections"`
}

// NewPublisher connects to the Redis server at address.
func NewPublisher(ctx context.Context, address, channel string) (*Publisher, error) {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	db := redis.NewClient(&redis.Options{Addr: address})
	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", address, err)
	}
	return &Publisher{db: db, channel: channel}, nil
}

// Record stores the link state and publishes the transition.
func (p *Publisher) Record(ctx context.Context, kind EventKind, info scanner.LinkInfo) error {
	msg, err := encodeEvent(kind, info)
	if err != nil {
		return err
	}
	if err := p.db.Set(ctx, stateKey(p.channel, info.Link), msg, 0).Err(); err != nil {
		return fmt.Errorf("set link state: %w", err)
	}
	if err := p.db.Publish(ctx, p.channel, msg).Err(); err != nil {
		return fmt.Errorf("publish link event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.db.Close()
}

func stateKey(channel string, link scanner.Link) string {
	return fmt.Sprintf("%s:%s:%d", channel, link.DataRate, link.Channel)
}

func encodeEvent(kind EventKind, info scanner.LinkInfo) ([]byte, error) {
	at := info.LastSeen
	if kind == EventFound {
		at = info.FirstSeen
	}
	data, err := json.Marshal(eventMessage{
		Kind:       kind,
		Link:       fmt.Sprintf("radio://0/%d/%s", info.Channel, info.DataRate),
		DataRate:   info.DataRate.String(),
		Channel:    int(info.Channel),
		At:         at,
		Detections: info.DetectionCount,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal link event: %w", err)
	}
	return data, nil
}
