package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/greg-maceachern12/binder-sub000/internal/logger"
	"github.com/greg-maceachern12/binder-sub000/internal/sse"
	"github.com/greg-maceachern12/binder-sub000/internal/utils"
)

// ProgressBus mirrors course generation events across replicas so an SSE
// subscriber on one instance sees runs executing on another. Messages keep
// their per-syllabus channel; the bus itself is a single pub/sub topic.
type ProgressBus interface {
	Publish(ctx context.Context, msg sse.SSEMessage) error
	StartForwarder(ctx context.Context, deliver func(m sse.SSEMessage)) error
	Close() error
}

type BusConfig struct {
	Addr        string
	Topic       string
	DialTimeout time.Duration
}

func BusConfigFromEnv(log *logger.Logger) BusConfig {
	topic := strings.TrimSpace(utils.GetEnv("REDIS_CHANNEL", "", log))
	if topic == "" {
		topic = "coursegen.events"
	}
	return BusConfig{
		Addr:        strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log)),
		Topic:       topic,
		DialTimeout: 5 * time.Second,
	}
}

// envelopeVersion guards against replicas running incompatible payload
// layouts during a rolling deploy.
const envelopeVersion = 1

type busEnvelope struct {
	V      int            `json:"v"`
	SentAt time.Time      `json:"sent_at"`
	Msg    sse.SSEMessage `json:"msg"`
}

type progressBus struct {
	log   *logger.Logger
	rdb   *goredis.Client
	topic string
}

func NewProgressBus(log *logger.Logger, cfg BusConfig) (ProgressBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if cfg.Topic == "" {
		cfg.Topic = "coursegen.events"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &progressBus{
		log:   log.With("client", "ProgressBus"),
		rdb:   rdb,
		topic: cfg.Topic,
	}, nil
}

func encodeEvent(msg sse.SSEMessage) ([]byte, error) {
	if strings.TrimSpace(msg.Channel) == "" {
		return nil, fmt.Errorf("event without a channel")
	}
	return json.Marshal(busEnvelope{V: envelopeVersion, SentAt: time.Now().UTC(), Msg: msg})
}

func decodeEvent(raw []byte) (sse.SSEMessage, error) {
	var env busEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return sse.SSEMessage{}, err
	}
	if env.V != envelopeVersion {
		return sse.SSEMessage{}, fmt.Errorf("unsupported envelope version %d", env.V)
	}
	if strings.TrimSpace(env.Msg.Channel) == "" {
		return sse.SSEMessage{}, fmt.Errorf("event without a channel")
	}
	return env.Msg, nil
}

func (b *progressBus) Publish(ctx context.Context, msg sse.SSEMessage) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("progress bus not initialized")
	}
	raw, err := encodeEvent(msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.topic, raw).Err()
}

func (b *progressBus) StartForwarder(ctx context.Context, deliver func(m sse.SSEMessage)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("progress bus not initialized")
	}
	if deliver == nil {
		return fmt.Errorf("deliver callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.topic)

	// confirms the subscription is live before we report success
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				b.forward([]byte(m.Payload), deliver)
			}
		}
	}()

	return nil
}

// forward hands one raw bus payload to deliver; undecodable payloads are
// dropped so one bad replica cannot stall the stream.
func (b *progressBus) forward(raw []byte, deliver func(m sse.SSEMessage)) {
	msg, err := decodeEvent(raw)
	if err != nil {
		b.log.Warn("Dropping bad bus payload", "error", err)
		return
	}
	deliver(msg)
}

func (b *progressBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
