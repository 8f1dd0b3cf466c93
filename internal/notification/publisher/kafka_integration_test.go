//go:build integration

package publisher_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"taskflow/internal/notification/models"
	"taskflow/internal/notification/publisher"
	"taskflow/internal/platform/config"
	"taskflow/internal/platform/kafka"
	id "taskflow/pkg/domain"
	"taskflow/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	cfg      config.KafkaConfig
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	s.cfg = config.KafkaConfig{
		Brokers:           []string{s.redpanda.Broker},
		Topic:             "taskflow.notifications.test",
		Partitions:        1,
		ReplicationFactor: 1,
	}
}

func (s *KafkaPublisherSuite) TestPublishDeliversKeyedEvent() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	producer, err := kafka.NewProducer(s.cfg)
	s.Require().NoError(err)
	defer producer.Close()
	s.Require().NoError(kafka.EnsureTopic(ctx, producer, s.cfg))
	s.Require().NoError(kafka.EnsureTopic(ctx, producer, s.cfg), "ensuring twice is harmless")

	recipient := id.NewUserID()
	n := models.NewAssignment(id.NewNotificationID(), recipient, id.NewUserID(), id.NewTaskID(), "You have been assigned a task: x", time.Now().UTC())

	pub := publisher.NewKafka(producer, s.cfg.Topic)
	s.Require().NoError(pub.Publish(ctx, n))
	s.Require().NoError(pub.Flush(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.cfg.Brokers...),
		kgo.ConsumeTopics(s.cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	var event publisher.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &event))
	s.Equal(recipient.String(), string(records[0].Key))
	s.Equal(n.ID.String(), event.NotificationID)
	s.Equal(publisher.EventCreated, event.Type)
}
