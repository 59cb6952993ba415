package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/idmap-backend/internal/platform/logger"
)

const DefaultClaimChannel = "equivalence-claims"

// ClaimEvent is published after a claim commits. Consumers must treat it as
// a hint to re-resolve, never as state: the claim log stays authoritative.
type ClaimEvent struct {
	ClaimID     uint      `json:"claim_id"`
	IdentifierA EventSide `json:"identifier_a"`
	IdentifierB EventSide `json:"identifier_b"`
	Deprecated  bool      `json:"deprecated"`
	Comment     string    `json:"comment"`
	Created     time.Time `json:"created"`
}

type EventSide struct {
	SchemeID uint   `json:"scheme_id"`
	Value    string `json:"value"`
	Created  bool   `json:"created"`
}

var (
	// ErrMalformedEvent wraps every payload Watch drops.
	ErrMalformedEvent = errors.New("malformed claim event")
	// ErrSubscriptionLost is returned by Watch when redis closes the
	// subscription while the caller is still watching.
	ErrSubscriptionLost = errors.New("claim subscription lost")
)

// Validate checks the fields every committed claim has.
func (e ClaimEvent) Validate() error {
	switch {
	case e.ClaimID == 0:
		return fmt.Errorf("%w: claim_id missing", ErrMalformedEvent)
	case e.IdentifierA.SchemeID == 0:
		return fmt.Errorf("%w: claim %d: identifier_a.scheme_id missing", ErrMalformedEvent, e.ClaimID)
	case e.IdentifierB.SchemeID == 0:
		return fmt.Errorf("%w: claim %d: identifier_b.scheme_id missing", ErrMalformedEvent, e.ClaimID)
	case e.Created.IsZero():
		return fmt.Errorf("%w: claim %d: created missing", ErrMalformedEvent, e.ClaimID)
	}
	return nil
}

// DecodeClaimEvent parses and validates one published payload.
func DecodeClaimEvent(raw []byte) (ClaimEvent, error) {
	var evt ClaimEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return ClaimEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := evt.Validate(); err != nil {
		return ClaimEvent{}, err
	}
	return evt, nil
}

// ClaimWatcher receives what Watch reads. OnMalformed is optional and gets
// each dropped payload's error, which wraps ErrMalformedEvent.
type ClaimWatcher struct {
	OnEvent     func(ClaimEvent)
	OnMalformed func(error)
}

type ClaimBus interface {
	Publish(ctx context.Context, evt ClaimEvent) error
	// Watch blocks until ctx ends, returning nil, or the subscription fails.
	Watch(ctx context.Context, w ClaimWatcher) error
	Close() error
}

type ClaimBusConfig struct {
	Addr    string
	Channel string
}

type claimBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewClaimBus(log *logger.Logger, cfg ClaimBusConfig) (ClaimBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = DefaultClaimChannel
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &claimBus{
		log:     log.With("service", "RedisClaimBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *claimBus) Publish(ctx context.Context, evt ClaimEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis claim bus not initialized")
	}
	if err := evt.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *claimBus) Watch(ctx context.Context, w ClaimWatcher) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis claim bus not initialized")
	}
	if w.OnEvent == nil {
		return fmt.Errorf("OnEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}
	b.log.Debug("Watching claim events", "channel", b.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return fmt.Errorf("%w: %s", ErrSubscriptionLost, b.channel)
			}
			evt, err := DecodeClaimEvent([]byte(m.Payload))
			if err != nil {
				b.log.Warn("Dropping claim event", "channel", m.Channel, "error", err)
				if w.OnMalformed != nil {
					w.OnMalformed(err)
				}
				continue
			}
			w.OnEvent(evt)
		}
	}
}

func (b *claimBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

// NopClaimBus drops every event. Used when REDIS_ADDR is unset.
type NopClaimBus struct{}

func (NopClaimBus) Publish(context.Context, ClaimEvent) error { return nil }
func (NopClaimBus) Watch(context.Context, ClaimWatcher) error {
	return fmt.Errorf("claim bus disabled: set REDIS_ADDR")
}
func (NopClaimBus) Close() error { return nil }
