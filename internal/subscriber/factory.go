package subscriber

import (
	"fmt"
	"strings"

	"github.com/soltixdb/tsinsight/internal/config"
	"github.com/soltixdb/tsinsight/internal/utils"
)

// NewSubscriber creates a new Subscriber based on the queue configuration
func NewSubscriber(cfg config.QueueConfig, subCfg Config) (Subscriber, error) {
	queueType := utils.QueueType(strings.ToLower(cfg.Type))

	// Default to NATS if not specified
	if queueType == "" {
		queueType = utils.QueueTypeNATS
	}

	switch queueType {
	case utils.QueueTypeNATS:
		return NewNATSSubscriber(cfg.URL, subCfg.NodeID, subCfg.ConsumerGroup)
	case utils.QueueTypeRedis:
		addr := cfg.URL
		if addr == "" {
			addr = "localhost:6379"
		}
		addr = strings.TrimPrefix(addr, "redis://")
		streamPrefix := cfg.RedisStream
		if streamPrefix == "" {
			streamPrefix = "tsinsight"
		}
		consumer := cfg.RedisConsumer
		if consumer == "" {
			consumer = subCfg.NodeID
		}
		return NewRedisSubscriber(addr, cfg.Password, cfg.RedisDB, streamPrefix, subCfg.ConsumerGroup, consumer)
	case utils.QueueTypeKafka:
		group := cfg.KafkaGroupID
		if group == "" {
			group = subCfg.ConsumerGroup
		}
		return NewKafkaSubscriber(cfg.KafkaBrokers, group)
	case utils.QueueTypeMemory:
		return NewMemorySubscriber()
	default:
		return nil, fmt.Errorf("unsupported queue type: %s", queueType)
	}
}
