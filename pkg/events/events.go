package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/gatewise/checkin/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	CheckinAdmitted   = "checkin.admitted"
	CheckinRejected   = "checkin.rejected"
	ConsentRenewed    = "consent.renewed"
	DiscountTriggered = "discount.triggered"
	NotifySend        = "notify.send"
)

// Event payloads
type CheckinAdmittedEvent struct {
	VisitID     int64     `json:"visit_id"`
	GuestEmail  string    `json:"guest_email"`
	GuestName   string    `json:"guest_name"`
	HostID      int64     `json:"host_id"`
	LocationID  int64     `json:"location_id"`
	CheckedInAt time.Time `json:"checked_in_at"`
	Override    bool      `json:"override"`
	ReEntry     bool      `json:"re_entry"`
}

type CheckinRejectedEvent struct {
	GuestEmail string `json:"guest_email"`
	HostID     int64  `json:"host_id"`
	LocationID int64  `json:"location_id"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
}

type ConsentRenewedEvent struct {
	GuestID      int64     `json:"guest_id"`
	AcceptanceID int64     `json:"acceptance_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type DiscountTriggeredEvent struct {
	GuestID     int64 `json:"guest_id"`
	VisitID     int64 `json:"visit_id"`
	VisitNumber int   `json:"visit_number"`
}

type NotificationEvent struct {
	Type      string                 `json:"type"`
	Recipient string                 `json:"recipient"`
	Subject   string                 `json:"subject"`
	Template  string                 `json:"template"`
	Data      map[string]interface{} `json:"data"`
}
