package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/nutrilog-backend/internal/logging"
	"github.com/AnshRaj112/nutrilog-backend/internal/metrics"
	"github.com/AnshRaj112/nutrilog-backend/internal/models"
)

// Event types pushed to a user's sockets.
const (
	EventEntryCreated   = "entry.created"
	EventEntryUpdated   = "entry.updated"
	EventEntryDeleted   = "entry.deleted"
	EventStreakCredited = "streak.credited"
)

const eventChannelPrefix = "events:user:"

// Event is the payload sent over Redis and the WebSocket.
type Event struct {
	Type      string                `json:"type"`
	UserID    string                `json:"user_id"`
	Kind      string                `json:"kind,omitempty"` // meal, water
	EntryID   string                `json:"entry_id,omitempty"`
	LocalDate string                `json:"local_date,omitempty"`
	Streak    *models.StreakSummary `json:"streak,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// EventConn is the part of a WebSocket the hub writes to.
type EventConn interface {
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

const (
	// subscriberQueueSize bounds the events waiting for one socket. A socket
	// that falls this far behind is dropped.
	subscriberQueueSize = 16
	eventWriteWait      = 10 * time.Second
)

// Subscriber is one open socket. A user may have several. Each has its own
// writer goroutine so a slow client never blocks fan-out.
type Subscriber struct {
	UserID string
	conn   EventConn
	queue  chan Event
	done   chan struct{}
	once   sync.Once
}

func (s *Subscriber) writeLoop(h *EventHub) {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.queue:
			_ = s.conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := s.conn.WriteJSON(event); err != nil {
				logging.Warn().Err(err).Str("user_id", s.UserID).Msg("error writing event to websocket")
				h.Unregister(s)
				return
			}
		}
	}
}

// enqueue never blocks; it reports false when the queue is full.
func (s *Subscriber) enqueue(event Event) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	select {
	case s.queue <- event:
		return true
	default:
		return false
	}
}

// EventHub is the in-process registry of sockets by user.
type EventHub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscriber]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{subscribers: make(map[string]map[*Subscriber]struct{})}
}

func (h *EventHub) Register(userID string, conn EventConn) *Subscriber {
	sub := &Subscriber{
		UserID: userID,
		conn:   conn,
		queue:  make(chan Event, subscriberQueueSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[*Subscriber]struct{})
	}
	h.subscribers[userID][sub] = struct{}{}
	h.mu.Unlock()

	metrics.WebSocketConnections.Inc()
	go sub.writeLoop(h)
	return sub
}

// Unregister removes the subscriber, stops its writer and closes its socket.
func (h *EventHub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	set, ok := h.subscribers[sub.UserID]
	if ok {
		if _, present := set[sub]; present {
			delete(set, sub)
			metrics.WebSocketConnections.Dec()
		}
		if len(set) == 0 {
			delete(h.subscribers, sub.UserID)
		}
	}
	h.mu.Unlock()

	sub.once.Do(func() {
		close(sub.done)
		_ = sub.conn.Close()
	})
}

// Count returns the number of open sockets for userID.
func (h *EventHub) Count(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}

// FanOut queues event for every local socket of its user and returns without
// waiting for the writes.
func (h *EventHub) FanOut(event Event) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers[event.UserID]))
	for sub := range h.subscribers[event.UserID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if !sub.enqueue(event) {
			logging.Warn().Str("user_id", event.UserID).Msg("websocket too slow, dropping connection")
			h.Unregister(sub)
		}
	}
}

// Publisher delivers events to every instance that may hold the user's sockets.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LocalPublisher fans out in-process only. Used when Redis is not configured.
type LocalPublisher struct {
	hub *EventHub
}

func NewLocalPublisher(hub *EventHub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) Publish(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	p.hub.FanOut(event)
	return nil
}

// RedisPublisher publishes on events:user:<id>; every instance runs one
// subscriber that fans matching messages out to its local hub.
type RedisPublisher struct {
	client  *redis.Client
	hub     *EventHub
	started sync.Once
}

func NewRedisPublisher(client *redis.Client, hub *EventHub) *RedisPublisher {
	return &RedisPublisher{client: client, hub: hub}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, eventChannelPrefix+event.UserID, data).Err()
}

// Start runs the shared subscriber until ctx is done. Calling it twice is a no-op.
func (p *RedisPublisher) Start(ctx context.Context) {
	p.started.Do(func() {
		go p.run(ctx)
	})
}

func (p *RedisPublisher) run(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := p.client.PSubscribe(ctx, eventChannelPrefix+"*")
			defer pubsub.Close()

			logging.Info().Str("pattern", eventChannelPrefix+"*").Msg("✅ Event subscriber started")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logging.Warn().Err(err).Dur("backoff", backoff).Msg("Redis subscriber error")
					select {
					case <-ctx.Done():
						return
					case <-time.After(backoff):
					}
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}
				backoff = time.Second

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logging.Warn().Err(err).Msg("failed to unmarshal event")
					continue
				}
				// The channel is authoritative for the recipient
				event.UserID = strings.TrimPrefix(msg.Channel, eventChannelPrefix)
				p.hub.FanOut(event)
			}
		}()
	}
}

// ChangeFeed reports committed entry changes to sockets and the activity log.
// Failures are logged; the write they describe has already committed.
type ChangeFeed struct {
	publisher Publisher
	activity  ActivityLog
}

func NewChangeFeed(publisher Publisher, activity ActivityLog) *ChangeFeed {
	if activity == nil {
		activity = NopActivityLog{}
	}
	return &ChangeFeed{publisher: publisher, activity: activity}
}

// Change describes one committed write.
type Change struct {
	Type      string
	UserID    string
	Kind      string
	EntryID   string
	LocalDate models.CalendarDay
	Streak    *models.StreakSummary // set when the write admitted a new streak day
}

func (f *ChangeFeed) Emit(ctx context.Context, c Change) {
	if f == nil {
		return
	}
	now := time.Now().UTC()

	f.activity.Record(ActivityRecord{
		UserID:    c.UserID,
		Action:    c.Kind + "." + strings.TrimPrefix(c.Type, "entry."),
		Kind:      c.Kind,
		EntryID:   c.EntryID,
		LocalDate: c.LocalDate.String(),
		Timestamp: now,
	})

	if f.publisher == nil {
		return
	}

	// The request may already be finishing; give publishing its own deadline
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	events := []Event{{
		Type:      c.Type,
		UserID:    c.UserID,
		Kind:      c.Kind,
		EntryID:   c.EntryID,
		LocalDate: c.LocalDate.String(),
		Timestamp: now,
	}}
	if c.Streak != nil {
		events = append(events, Event{
			Type:      EventStreakCredited,
			UserID:    c.UserID,
			LocalDate: c.LocalDate.String(),
			Streak:    c.Streak,
			Timestamp: now,
		})
	}
	for _, e := range events {
		if err := f.publisher.Publish(pubCtx, e); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("type", e.Type).Msg("failed to publish event")
		}
	}
}
