package event

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

// Client holds the broker list and builds writers. An empty broker list
// means publishing is disabled; the outbox then accumulates until a relay
// with brokers picks it up.
type Client struct {
	Brokers []string
}

func NewClient(brokers []string) *Client {
	out := make([]string, 0, len(brokers))
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return &Client{Brokers: out}
}

func (c *Client) Enabled() bool {
	return len(c.Brokers) > 0
}

// NewWriter builds a hash-balanced writer so all events of one aggregate
// land in the same partition, preserving their order.
func (c *Client) NewWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}
