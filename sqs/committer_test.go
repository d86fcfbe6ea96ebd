package sqs

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awssqs "github.com/aws/aws-sdk-go/service/sqs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/Box-Castle/committer-api/core"
)

// fakeQueue records sent batches and fails the entry ids listed
// in failNext for the next call.
type fakeQueue struct {
	inputs   []*awssqs.SendMessageBatchInput
	failNext []string
	err      error
}

func (q *fakeQueue) SendMessageBatch(input *awssqs.SendMessageBatchInput) (*awssqs.SendMessageBatchOutput, error) {
	if q.err != nil {
		return nil, q.err
	}

	q.inputs = append(q.inputs, input)

	output := &awssqs.SendMessageBatchOutput{}
	failed := map[string]bool{}
	for _, id := range q.failNext {
		failed[id] = true
	}
	q.failNext = nil

	for _, e := range input.Entries {
		if failed[aws.StringValue(e.Id)] {
			output.Failed = append(output.Failed, &awssqs.BatchResultErrorEntry{Id: e.Id})
			continue
		}
		output.Successful = append(output.Successful, &awssqs.SendMessageBatchResultEntry{Id: e.Id})
	}
	return output, nil
}

func testBatch(n int) []*core.Message {
	batch := make([]*core.Message, n)
	for i := range batch {
		batch[i] = &core.Message{
			MessageID: "m" + strconv.Itoa(i),
			Body:      "body-" + strconv.Itoa(i),
		}
	}
	return batch
}

func TestCommitForwardsTheWholeBatch(t *testing.T) {
	queue := &fakeQueue{}
	c := NewCommitter(queue, "http://queue", 5, "orders", 0)

	outcome, err := c.Commit(context.Background(), testBatch(3), nil)

	assert.NoError(t, err)
	assert.Equal(t, core.BatchCommitted, outcome.Kind)
	assert.Equal(t, "3", *outcome.Metadata)
	assert.Len(t, queue.inputs, 1)
	assert.Len(t, queue.inputs[0].Entries, 3)
	assert.Equal(t, "body-0", aws.StringValue(queue.inputs[0].Entries[0].MessageBody))
}

func TestCommitChunksLargeBatches(t *testing.T) {
	queue := &fakeQueue{}
	c := NewCommitter(queue, "http://queue", 5, "orders", 0)

	outcome, err := c.Commit(context.Background(), testBatch(23), nil)

	assert.NoError(t, err)
	assert.Equal(t, core.BatchCommitted, outcome.Kind)
	assert.Equal(t, "23", *outcome.Metadata)
	assert.Len(t, queue.inputs, 3)
	assert.Len(t, queue.inputs[0].Entries, 10)
	assert.Len(t, queue.inputs[2].Entries, 3)
}

func TestCommitAccumulatesTheForwardedCount(t *testing.T) {
	queue := &fakeQueue{}
	c := NewCommitter(queue, "http://queue", 5, "orders", 0)

	meta := "40"
	outcome, err := c.Commit(context.Background(), testBatch(2), &meta)

	assert.NoError(t, err)
	assert.Equal(t, "42", *outcome.Metadata)
}

func TestRejectedEntriesProduceARetryBatch(t *testing.T) {
	queue := &fakeQueue{failNext: []string{"1", "2"}}
	c := NewCommitter(queue, "http://queue", 7, "orders", 0)

	batch := testBatch(4)
	outcome, err := c.Commit(context.Background(), batch, nil)

	assert.NoError(t, err)
	assert.Equal(t, core.RetryBatch, outcome.Kind)
	assert.Equal(t, 7*time.Second, outcome.RetryAfter)
	assert.Equal(t, []*core.Message{batch[1], batch[2]}, outcome.Pending)
	// Only the accepted entries count as forwarded.
	assert.Equal(t, "2", *outcome.Metadata)
}

func TestTransportErrorsAreReturnedAsIs(t *testing.T) {
	queue := &fakeQueue{err: errors.New("doh")}
	c := NewCommitter(queue, "http://queue", 5, "orders", 0)

	outcome, err := c.Commit(context.Background(), testBatch(2), nil)

	assert.Nil(t, outcome)
	assert.Error(t, err)
	assert.False(t, core.IsUnrecoverable(err))
}

func TestHeartbeatKeepsMetadataUnchanged(t *testing.T) {
	c := NewCommitter(&fakeQueue{}, "http://queue", 5, "orders", 0)

	meta := "40"
	got, err := c.Heartbeat(context.Background(), &meta)

	assert.NoError(t, err)
	assert.Equal(t, &meta, got)
}

func TestFactoryConfigurationRequiresAQueueName(t *testing.T) {
	factory, err := NewFactory(map[string]string{})

	assert.Nil(t, factory)
	assert.Error(t, err)
}

func TestFactoryConfigurationRejectsBadRetryDelays(t *testing.T) {
	factory, err := NewFactory(map[string]string{
		ConfigQueueName:         "q",
		ConfigRetryDelaySeconds: "not-a-number",
	})

	assert.Nil(t, factory)
	assert.Error(t, err)
}
