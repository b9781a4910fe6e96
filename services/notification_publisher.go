package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"support_directory_go/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NotificationPublisher delivers persisted notifications to an outside
// channel. Delivery is best effort.
type NotificationPublisher interface {
	Name() string
	Publish(ctx context.Context, notifications []models.Notification) error
}

// notificationMessage is the wire form shared by the broker publishers
type notificationMessage struct {
	ID           string     `json:"id"`
	RecipientID  string     `json:"recipientId"`
	EntityType   string     `json:"entityType"`
	EntityID     string     `json:"entityId"`
	Rule         string     `json:"rule"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Priority     string     `json:"priority"`
	CreatedAt    time.Time  `json:"createdAt"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
}

func encodeNotification(n models.Notification) ([]byte, error) {
	return json.Marshal(notificationMessage{
		ID:           n.ID,
		RecipientID:  n.RecipientID,
		EntityType:   n.EntityType,
		EntityID:     n.EntityID,
		Rule:         n.Rule,
		Title:        n.Title,
		Message:      n.Message,
		Priority:     n.Priority,
		CreatedAt:    n.CreatedAt,
		ScheduledFor: n.ScheduledFor,
	})
}

// LogPublisher writes each notification to the structured log
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Name() string { return "log" }

func (p *LogPublisher) Publish(_ context.Context, notifications []models.Notification) error {
	for _, n := range notifications {
		p.logger.Info("Notification created",
			zap.String("id", n.ID),
			zap.String("rule", n.Rule),
			zap.String("recipient_id", n.RecipientID),
			zap.String("entity_type", n.EntityType),
			zap.String("entity_id", n.EntityID),
			zap.String("priority", n.Priority))
	}
	return nil
}

// KafkaMessageWriter is the subset of *kafka.Writer the publisher uses
type KafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher produces one message per notification, keyed by recipient
// so a recipient's notifications stay ordered within a partition
type KafkaPublisher struct {
	writer KafkaMessageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// NewKafkaPublisherWithWriter wraps an existing writer
func NewKafkaPublisherWithWriter(w KafkaMessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, notifications []models.Notification) error {
	msgs, err := kafkaMessages(notifications)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func kafkaMessages(notifications []models.Notification) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(notifications))
	for _, n := range notifications {
		body, err := encodeNotification(n)
		if err != nil {
			return nil, fmt.Errorf("encode notification %s: %w", n.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(n.RecipientID),
			Value: body,
			Time:  n.CreatedAt,
			Headers: []kafka.Header{
				{Key: "rule", Value: []byte(n.Rule)},
				{Key: "priority", Value: []byte(n.Priority)},
			},
		})
	}
	return msgs, nil
}

// SQSAPI is the subset of the SQS client the publisher uses
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// maxSQSDelay is the largest DelaySeconds SQS accepts
const maxSQSDelay = 900

// SQSPublisher sends one queue message per notification. A scheduled
// notification is delayed on the queue, up to the SQS maximum.
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
	now      func() time.Time
}

// SQSOptions configures the SQS client. Static keys are optional; the
// default AWS credential chain is used without them.
type SQSOptions struct {
	Region          string
	QueueURL        string
	AccessKeyID     string
	SecretAccessKey string
}

func NewSQSPublisher(ctx context.Context, opts SQSOptions) (*SQSPublisher, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSQSPublisherWithClient(sqs.NewFromConfig(cfg), opts.QueueURL), nil
}

func NewSQSPublisherWithClient(client SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL, now: time.Now}
}

func (p *SQSPublisher) Name() string { return "sqs" }

func (p *SQSPublisher) Publish(ctx context.Context, notifications []models.Notification) error {
	var errs []error
	now := p.now()
	for _, n := range notifications {
		body, err := encodeNotification(n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:     aws.String(p.queueURL),
			MessageBody:  aws.String(string(body)),
			DelaySeconds: sqsDelay(n, now),
			MessageAttributes: map[string]sqstypes.MessageAttributeValue{
				"rule": {DataType: aws.String("String"), StringValue: aws.String(n.Rule)},
			},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("send notification %s: %w", n.ID, err))
		}
	}
	return errors.Join(errs...)
}

func sqsDelay(n models.Notification, now time.Time) int32 {
	if n.ScheduledFor == nil {
		return 0
	}
	secs := int64(n.ScheduledFor.Sub(now) / time.Second)
	if secs <= 0 {
		return 0
	}
	if secs > maxSQSDelay {
		return maxSQSDelay
	}
	return int32(secs)
}
