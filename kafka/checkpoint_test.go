package kafka

import (
	"testing"

	"github.com/Shopify/sarama"
	"github.com/stretchr/testify/assert"

	"github.com/Box-Castle/committer-api/core"
)

type offsetMark struct {
	offset   int64
	metadata string
}

func testMessage(offset int64) *core.Message {
	return newCoreMessage(&sarama.ConsumerMessage{
		Topic:     "orders",
		Partition: 3,
		Offset:    offset,
		Key:       []byte("k"),
		Value:     []byte("v"),
	})
}

func TestCheckpointMarksPastTheHighestCommittedOffset(t *testing.T) {
	marks := []offsetMark{}
	c := NewPartitionCheckpoint(func(offset int64, metadata string) {
		marks = append(marks, offsetMark{offset, metadata})
	})

	meta := "cursor-1"
	c.Update([]*core.Message{testMessage(5), testMessage(6)}, &meta)

	assert.Equal(t, []offsetMark{{7, "cursor-1"}}, marks)
}

func TestCheckpointDropsMetadataOnlyUpdatesBeforeFirstCommit(t *testing.T) {
	marks := []offsetMark{}
	c := NewPartitionCheckpoint(func(offset int64, metadata string) {
		marks = append(marks, offsetMark{offset, metadata})
	})

	meta := "h1"
	c.Update(nil, &meta)

	assert.Empty(t, marks)
}

func TestCheckpointRemarksPositionForMetadataOnlyUpdates(t *testing.T) {
	marks := []offsetMark{}
	c := NewPartitionCheckpoint(func(offset int64, metadata string) {
		marks = append(marks, offsetMark{offset, metadata})
	})

	c.Update([]*core.Message{testMessage(9)}, nil)
	meta := "h1"
	c.Update(nil, &meta)

	assert.Equal(t, []offsetMark{{10, ""}, {10, "h1"}}, marks)
}

func TestCheckpointNeverRegresses(t *testing.T) {
	marks := []offsetMark{}
	c := NewPartitionCheckpoint(func(offset int64, metadata string) {
		marks = append(marks, offsetMark{offset, metadata})
	})

	c.Update([]*core.Message{testMessage(9)}, nil)
	c.Update([]*core.Message{testMessage(4)}, nil)

	assert.Equal(t, []offsetMark{{10, ""}, {10, ""}}, marks)
}

func TestCoreMessageCarriesTransportDetails(t *testing.T) {
	msg := &sarama.ConsumerMessage{
		Topic:     "orders",
		Partition: 3,
		Offset:    41,
		Key:       []byte("k1"),
		Value:     []byte("payload"),
	}

	m := newCoreMessage(msg)

	assert.Equal(t, "orders-3-41", m.MessageID)
	assert.Equal(t, "payload", m.Body)
	assert.Equal(t, "k1", m.Properties["key"])
	assert.Equal(t, int32(3), m.Properties["partitionId"])
	assert.Equal(t, int64(41), m.Properties["offset"])
	assert.Equal(t, msg, getConsumerMessage(m))
}
