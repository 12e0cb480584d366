// Package kafka mirrors domain events onto Kafka topics named <prefix>.<event>.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domoutbox "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/outbox"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const headerEventName = "event-name"

// partitionKeyer is implemented by events that carry an aggregate id.
type partitionKeyer interface {
	PartitionKey() string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer      messageWriter
	topicPrefix string
	now         func() time.Time
}

// NewWriter builds a topic-less writer; every message names its own topic.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
}

func NewPublisher(writer messageWriter, topicPrefix string) *Publisher {
	return &Publisher{
		writer:      writer,
		topicPrefix: strings.TrimSuffix(topicPrefix, "."),
		now:         time.Now,
	}
}

func (p *Publisher) Publish(ctx context.Context, e domoutbox.Event) error {
	msg, err := p.Message(ctx, e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s: %w", msg.Topic, err)
	}
	return nil
}

// Message encodes e as JSON and carries the trace context in the headers.
func (p *Publisher) Message(ctx context.Context, e domoutbox.Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encode %s: %w", e.EventName(), err)
	}
	msg := kafka.Message{
		Topic: p.Topic(e.EventName()),
		Value: value,
		Time:  p.now().UTC(),
		Headers: []kafka.Header{
			{Key: headerEventName, Value: []byte(e.EventName())},
		},
	}
	if k, ok := e.(partitionKeyer); ok {
		msg.Key = []byte(k.PartitionKey())
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{headers: &msg.Headers})
	return msg, nil
}

func (p *Publisher) Topic(eventName string) string {
	if p.topicPrefix == "" {
		return eventName
	}
	return p.topicPrefix + "." + eventName
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// headerCarrier adapts kafka headers to the otel propagation API.
type headerCarrier struct {
	headers *[]kafka.Header
}

var _ propagation.TextMapCarrier = headerCarrier{}

func (c headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(*c.headers))
	for i, h := range *c.headers {
		keys[i] = h.Key
	}
	return keys
}
