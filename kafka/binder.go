/*
Copyright © 2021 Committer API Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package kafka

import (
	"context"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"

	log "github.com/sirupsen/logrus"

	"github.com/Box-Castle/committer-api/core"
)

// Binder runs the commit protocol against a kafka consumer
// group: one CommitterWorker per claimed partition, checkpoints
// stored as consumer group offsets.
type Binder struct {
	Group         sarama.ConsumerGroup
	KafkaConfig   *Config
	factory       *core.FactoryAdapter
	topics        []string
	awaiter       *core.Awaiter
	awaitNotifier *core.AwaitNotifier
	logFields     log.Fields
}

func (b *Binder) Start(ctx context.Context) {
	go func() {
		defer b.Group.Close()

		// Iterate over consumer sessions until we have an error
		// or the context is cancelled.
		for {
			handler := &ConsumerGroupHandler{
				Binder:           b,
				Context:          ctx,
				PartitionWorkers: make(map[unitKey]*partitionWorker),
				done:             make(chan struct{}),
				logFields:        log.Fields{"module": "consumer_group_handler"},
			}

			err := b.Group.Consume(ctx, b.topics, handler)
			if err != nil {
				b.awaitNotifier.Notify(err)
				return
			}

			// Wait for the cleanup of current handler before starting a new one.
			<-handler.Done()

			// `Consume` must be called in a loop: a server-side
			// rebalance ends the session and the next call picks
			// up the new claims.
			select {
			case <-ctx.Done():
				b.awaitNotifier.Notify(nil)
				return
			default:
			}
		}
	}()
}

func (b *Binder) Awaiter() *core.Awaiter {
	return b.awaiter
}

// NewBinder builds a Binder for the factory. The factory's topic
// filter is applied to the configured topics before subscribing,
// so no committer is ever attached to a rejected topic.
func NewBinder(factory *core.FactoryAdapter, kafkaConfig *Config) (*Binder, error) {
	topics := []string{}
	for _, t := range kafkaConfig.Topics {
		if factory.TopicFilter().Accept(t) {
			topics = append(topics, t)
			continue
		}
		log.WithFields(log.Fields{"module": "kafka_binder", "topic": t}).Info("topic rejected by filter")
	}
	if len(topics) == 0 {
		return nil, errors.New("no topics remain after applying the factory's topic filter")
	}

	config := sarama.NewConfig()
	config.Version = sarama.V2_4_0_0
	config.Consumer.Return.Errors = true
	if kafkaConfig.StartFromOldest {
		config.Consumer.Offsets.Initial = sarama.OffsetOldest
	}

	if kafkaConfig.BufferSize != 0 {
		config.ChannelBufferSize = kafkaConfig.BufferSize
	}

	if kafkaConfig.MaxBatchSize == 0 {
		kafkaConfig.MaxBatchSize = DefaultMaxBatchSize
	}

	g, err := sarama.NewConsumerGroup(kafkaConfig.BrokerAddresses, kafkaConfig.Group, config)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	logFields := log.Fields{"module": "kafka_binder"}
	// Track errors
	go func() {
		for err := range g.Errors() {
			log.WithFields(logFields).WithField("err", err).Info("error in consumer group")
		}
	}()

	awaiter, awaitNotifier := core.NewAwaiter()
	return &Binder{
		Group:         g,
		KafkaConfig:   kafkaConfig,
		factory:       factory,
		topics:        topics,
		awaiter:       awaiter,
		awaitNotifier: awaitNotifier,
		logFields:     logFields,
	}, nil
}
