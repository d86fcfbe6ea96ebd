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
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/Box-Castle/committer-api/core"
)

func getConsumerMessage(m *core.Message) *sarama.ConsumerMessage {
	return m.Data[DataItemMessage].(*sarama.ConsumerMessage)
}

func newCoreMessage(msg *sarama.ConsumerMessage) *core.Message {
	m := &core.Message{
		MessageID:  fmt.Sprintf("%s-%d-%d", msg.Topic, msg.Partition, msg.Offset),
		Body:       string(msg.Value),
		Properties: make(map[string]interface{}),
		Data:       make(map[string]interface{}),
	}
	m.Properties["key"] = string(msg.Key)
	m.Properties["timestamp"] = msg.Timestamp
	m.Properties["partitionId"] = msg.Partition
	m.Properties["offset"] = msg.Offset
	m.Data[DataItemMessage] = msg
	return m
}

// PartitionCheckpoint translates the worker's commit position
// callbacks into offset marks. The opaque metadata token rides
// the offset metadata string, so it is persisted and replayed by
// the offset store exactly like the position itself.
//
// Only the worker goroutine of one partition calls Update, so no
// locking is required.
type PartitionCheckpoint struct {
	mark       func(offset int64, metadata string)
	nextOffset int64
	marked     bool
}

// Update advances the checkpoint past the highest committed
// offset and re-marks it with the latest metadata. Metadata-only
// updates before the first committed message have no position to
// anchor to and are dropped.
func (c *PartitionCheckpoint) Update(committed []*core.Message, metadata *string) {
	for _, m := range committed {
		cm := getConsumerMessage(m)
		if !c.marked || cm.Offset >= c.nextOffset {
			c.nextOffset = cm.Offset + 1
			c.marked = true
		}
	}

	if !c.marked {
		return
	}

	meta := ""
	if metadata != nil {
		meta = *metadata
	}
	c.mark(c.nextOffset, meta)
}

func NewPartitionCheckpoint(mark func(offset int64, metadata string)) *PartitionCheckpoint {
	return &PartitionCheckpoint{mark: mark}
}
