package kafka

import (
	"errors"
	"fmt"

	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/IBM/sarama"
)

const (
	defaultPartitions        = 3
	defaultReplicationFactor = 1
)

// EnsureTopic проверяет и создает топик событий подписки.
func EnsureTopic(cfg *Config, log *logger.Logger) error {
	if len(cfg.Brokers) == 0 || cfg.Brokers[0] == "" {
		return errors.New("kafka broker address is empty")
	}

	admin, err := sarama.NewClusterAdmin(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return fmt.Errorf("kafka admin connection failed: %w", err)
	}
	defer admin.Close()

	topics, err := admin.ListTopics()
	if err != nil {
		return fmt.Errorf("kafka list topics failed: %w", err)
	}
	if _, ok := topics[cfg.Topic]; ok {
		log.Debugw("Kafka topic already exists", "topic", cfg.Topic)
		return nil
	}

	err = admin.CreateTopic(cfg.Topic, &sarama.TopicDetail{
		NumPartitions:     defaultPartitions,
		ReplicationFactor: defaultReplicationFactor,
	}, false)
	if err != nil && !errors.Is(err, sarama.ErrTopicAlreadyExists) {
		return fmt.Errorf("kafka create topic %s failed: %w", cfg.Topic, err)
	}

	log.Infow("Kafka topic created", "topic", cfg.Topic, "partitions", defaultPartitions)
	return nil
}
