package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"support_directory_go/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeKafkaWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeKafkaWriter) Close() error {
	w.closed = true
	return nil
}

type fakeSQSClient struct {
	inputs []*sqs.SendMessageInput
	failOn string
}

func (c *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if c.failOn != "" && *params.MessageAttributes["rule"].StringValue == c.failOn {
		return nil, errors.New("throttled")
	}
	c.inputs = append(c.inputs, params)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func sampleNotifications() []models.Notification {
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return []models.Notification{
		{ID: "n1", RecipientID: "u1", EntityType: EntityApplication, EntityID: "a1", Rule: "application_approved", Title: "Approved", Priority: models.NotificationPriorityHigh, CreatedAt: created},
		{ID: "n2", RecipientID: "u2", EntityType: EntityCase, EntityID: "c1", Rule: "case_closed", Title: "Closed", Priority: models.NotificationPriorityNormal, CreatedAt: created},
	}
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeKafkaWriter{}
	p := NewKafkaPublisherWithWriter(w)
	assert.Equal(t, "kafka", p.Name())

	require.NoError(t, p.Publish(context.Background(), sampleNotifications()))
	require.Len(t, w.messages, 2)

	msg := w.messages[0]
	assert.Equal(t, "u1", string(msg.Key))
	assert.Equal(t, []kafka.Header{
		{Key: "rule", Value: []byte("application_approved")},
		{Key: "priority", Value: []byte(models.NotificationPriorityHigh)},
	}, msg.Headers)

	var body notificationMessage
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "n1", body.ID)
	assert.Equal(t, "a1", body.EntityID)
	assert.Nil(t, body.ScheduledFor)

	require.NoError(t, p.Publish(context.Background(), nil))
	assert.Len(t, w.messages, 2)

	w.err = errors.New("leader not available")
	assert.Error(t, p.Publish(context.Background(), sampleNotifications()))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestSQSPublisher(t *testing.T) {
	client := &fakeSQSClient{}
	p := NewSQSPublisherWithClient(client, "https://sqs.eu-west-2.amazonaws.com/123/notifications")
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	notifications := sampleNotifications()
	later := now.Add(2 * time.Minute)
	notifications[1].ScheduledFor = &later

	require.NoError(t, p.Publish(context.Background(), notifications))
	require.Len(t, client.inputs, 2)
	assert.Equal(t, "https://sqs.eu-west-2.amazonaws.com/123/notifications", *client.inputs[0].QueueUrl)
	assert.Equal(t, int32(0), client.inputs[0].DelaySeconds)
	assert.Equal(t, int32(120), client.inputs[1].DelaySeconds)

	client.failOn = "case_closed"
	err := p.Publish(context.Background(), notifications)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "n2")
	assert.Len(t, client.inputs, 3)
}

func TestSQSDelay(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	at := func(d time.Duration) models.Notification {
		ts := now.Add(d)
		return models.Notification{ScheduledFor: &ts}
	}

	assert.Equal(t, int32(0), sqsDelay(models.Notification{}, now))
	assert.Equal(t, int32(0), sqsDelay(at(-time.Hour), now))
	assert.Equal(t, int32(30), sqsDelay(at(30*time.Second), now))
	assert.Equal(t, int32(maxSQSDelay), sqsDelay(at(48*time.Hour), now))
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), sampleNotifications()))
	entries := logs.FilterMessage("Notification created").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "case_closed", entries[1].ContextMap()["rule"])
}
