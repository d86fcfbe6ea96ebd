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
	"sync"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/Box-Castle/committer-api/core"
)

type ConsumerGroupHandler struct {
	PartitionWorkers map[unitKey]*partitionWorker
	Mutex            sync.Mutex
	Binder           *Binder
	Context          context.Context
	done             chan struct{}
	logFields        log.Fields
}

func (h *ConsumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	for topic, partitions := range session.Claims() {
		for _, p := range partitions {
			topic := topic
			partition := p

			checkpoint := NewPartitionCheckpoint(func(offset int64, metadata string) {
				session.MarkOffset(topic, partition, offset, metadata)
			})

			source := NewBatchChannel()
			worker := core.NewCommitterWorker(core.WorkerConfig{
				Topic:            topic,
				Partition:        partition,
				ID:               session.GenerationID(),
				HeartbeatCadence: h.Binder.KafkaConfig.HeartbeatCadence,
				CloseTimeout:     h.Binder.KafkaConfig.CloseTimeout,
			}, h.Binder.factory, source, checkpoint.Update)

			worker.Start(session.Context())

			h.PartitionWorkers[unitKey{Topic: topic, Partition: partition}] = &partitionWorker{
				Source:     source,
				Worker:     worker,
				Checkpoint: checkpoint,
			}
		}
	}
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	for _, w := range h.PartitionWorkers {
		if !w.Started {
			w.Source.Close()
		}
		err := w.Worker.Awaiter().Err()
		log.WithFields(h.logFields).WithFields(log.Fields{"generationId": session.GenerationID(), "err": err}).Info("committer worker exited")
	}
	close(h.done)
	log.WithFields(h.logFields).WithFields(log.Fields{"generationId": session.GenerationID()}).Info("consumer group handler is cleaned up")
	return nil
}

// ConsumeClaim feeds the partition's worker with batches built
// from whatever the claim has ready, up to the configured batch
// cap. It returns when the claim's channel closes or the worker
// exits; in the latter case sarama cancels the session, which
// tears down the remaining partitions of the generation too.
func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	h.Mutex.Lock()
	w, ok := h.PartitionWorkers[unitKey{Topic: claim.Topic(), Partition: claim.Partition()}]
	if !ok {
		h.Mutex.Unlock()
		return errors.WithStack(errors.New("unable to consume a claim for an unclaimed partition"))
	}
	w.Started = true
	h.Mutex.Unlock()

	maxBatchSize := h.Binder.KafkaConfig.MaxBatchSize

ReceiveLoop:
	for {
		var batch []*core.Message
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				break ReceiveLoop
			}
			batch = append(batch, newCoreMessage(msg))

			// Drain whatever else is already buffered so one
			// commit call covers it.
		Drain:
			for len(batch) < maxBatchSize {
				select {
				case msg, ok := <-claim.Messages():
					if !ok {
						break Drain
					}
					batch = append(batch, newCoreMessage(msg))
				default:
					break Drain
				}
			}
		case <-w.Worker.Awaiter().Done():
			break ReceiveLoop
		}

		select {
		case w.Source.messages <- batch:
		case <-w.Worker.Awaiter().Done():
			break ReceiveLoop
		}
	}
	w.Source.Close()
	return nil
}

func (h *ConsumerGroupHandler) Done() <-chan struct{} {
	return h.done
}
