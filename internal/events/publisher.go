package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/citycare-hospital/patient-backend/internal/model"
	"github.com/citycare-hospital/patient-backend/libs/kafkax"
)

const DefaultTopic = "patient.appointment.requested.v1"

// Publisher emits an event per created appointment request so downstream
// consumers (reporting, CRM sync) can react without polling the database.
// With no brokers configured it is a silent no-op.
type Publisher struct {
	writer *kafka.Writer
	topic  string
}

func NewPublisher(brokers string, topic string) *Publisher {
	list := kafkax.SplitBrokers(brokers)
	if topic == "" {
		topic = DefaultTopic
	}
	if len(list) == 0 {
		return &Publisher{topic: topic}
	}
	return &Publisher{
		topic: topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(list...),
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *Publisher) Name() string {
	return "events"
}

func (p *Publisher) Enabled() bool {
	return p.writer != nil
}

func (p *Publisher) Notify(ctx context.Context, rec model.Patient) error {
	if p.writer == nil {
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"patient_id":       rec.ID.Hex(),
		"fullname":         rec.Fullname,
		"phone":            rec.Phone,
		"preferred_doctor": rec.PreferredDoctor,
		"preferred_date":   rec.PreferredDate,
		"created_at":       rec.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(rec.ID.Hex()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(uuid.NewString())},
			{Key: "event_type", Value: []byte(p.topic)},
		},
	}
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
