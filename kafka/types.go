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
	"time"

	"github.com/Box-Castle/committer-api/core"
)

// DataItemMessage is the Data key under which the raw sarama
// record travels with a core.Message.
const DataItemMessage string = "message"

const DefaultMaxBatchSize int = 500

// Config of the kafka binding.
type Config struct {
	Topics           []string
	Group            string
	BrokerAddresses  []string
	BufferSize       int
	StartFromOldest  bool
	MaxBatchSize     int
	HeartbeatCadence time.Duration
	CloseTimeout     time.Duration
}

type unitKey struct {
	Topic     string
	Partition int32
}

// partitionWorker pairs one claimed partition with the
// CommitterWorker processing it.
type partitionWorker struct {
	Source     *BatchChannel
	Worker     *core.CommitterWorker
	Checkpoint *PartitionCheckpoint
	Started    bool
}

// BatchChannel is the channel backed BatchSource fed by
// ConsumeClaim.
type BatchChannel struct {
	messages chan []*core.Message
}

func (c *BatchChannel) Batches() <-chan []*core.Message {
	return c.messages
}

func (c *BatchChannel) Close() {
	close(c.messages)
}

func NewBatchChannel() *BatchChannel {
	return &BatchChannel{messages: make(chan []*core.Message)}
}
