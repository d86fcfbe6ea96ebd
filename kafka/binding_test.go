package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/Box-Castle/committer-api/core"
	"github.com/Box-Castle/committer-api/mocks"
)

func TestWorkerDrivesOffsetMarksThroughTheCheckpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	committer := mocks.NewMockCommitter(ctrl)
	committer.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, batch []*core.Message, metadata *string) (*core.CommitOutcome, error) {
			assert.Len(t, batch, 2)
			meta := "cursor-1"
			return core.NewBatchCommitted(&meta), nil
		})
	committer.EXPECT().Close().Return(nil)

	factory := mocks.NewMockCommitterFactory(ctrl)
	factory.EXPECT().Create("orders", int32(3), int32(7)).Return(committer, nil)

	marks := make(chan offsetMark, 8)
	checkpoint := NewPartitionCheckpoint(func(offset int64, metadata string) {
		marks <- offsetMark{offset, metadata}
	})

	source := NewBatchChannel()
	worker := core.NewCommitterWorker(core.WorkerConfig{
		Topic:            "orders",
		Partition:        3,
		ID:               7,
		HeartbeatCadence: time.Hour,
		CloseTimeout:     time.Second,
	}, core.NewFactoryAdapter(factory), source, checkpoint.Update)

	worker.Start(context.Background())

	source.messages <- []*core.Message{testMessage(41), testMessage(42)}

	assert.Equal(t, offsetMark{43, "cursor-1"}, <-marks)

	source.Close()
	assert.NoError(t, worker.Awaiter().Err())
}

func TestBatchChannelCloseEndsTheWorker(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	committer := mocks.NewMockCommitter(ctrl)
	committer.EXPECT().Close().Return(nil)

	factory := mocks.NewMockCommitterFactory(ctrl)
	factory.EXPECT().Create("orders", int32(0), int32(1)).Return(committer, nil)

	source := NewBatchChannel()
	worker := core.NewCommitterWorker(core.WorkerConfig{
		Topic:            "orders",
		Partition:        0,
		ID:               1,
		HeartbeatCadence: time.Hour,
		CloseTimeout:     time.Second,
	}, core.NewFactoryAdapter(factory), source, func([]*core.Message, *string) {})

	worker.Start(context.Background())
	source.Close()

	assert.NoError(t, worker.Awaiter().Err())
}

func TestRetryBatchOutcomeHoldsBackUncommittedOffsets(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m1 := testMessage(41)
	m2 := testMessage(42)

	calls := 0
	committer := mocks.NewMockCommitter(ctrl)
	committer.EXPECT().Commit(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, batch []*core.Message, metadata *string) (*core.CommitOutcome, error) {
			calls++
			if calls == 1 {
				meta := "p1"
				return core.NewRetryBatch(time.Millisecond, []*core.Message{m2}, &meta)
			}
			meta := "p2"
			return core.NewBatchCommitted(&meta), nil
		}).Times(2)
	committer.EXPECT().Close().Return(nil)

	factory := mocks.NewMockCommitterFactory(ctrl)
	factory.EXPECT().Create("orders", int32(3), int32(7)).Return(committer, nil)

	marks := make(chan offsetMark, 8)
	checkpoint := NewPartitionCheckpoint(func(offset int64, metadata string) {
		marks <- offsetMark{offset, metadata}
	})

	source := NewBatchChannel()
	worker := core.NewCommitterWorker(core.WorkerConfig{
		Topic:            "orders",
		Partition:        3,
		ID:               7,
		HeartbeatCadence: time.Hour,
		CloseTimeout:     time.Second,
	}, core.NewFactoryAdapter(factory), source, checkpoint.Update)

	worker.Start(context.Background())

	source.messages <- []*core.Message{m1, m2}

	// m1 is durable right away; m2's offset is marked only after
	// the retried attempt commits.
	assert.Equal(t, offsetMark{42, "p1"}, <-marks)
	assert.Equal(t, offsetMark{43, "p2"}, <-marks)

	source.Close()
	assert.NoError(t, worker.Awaiter().Err())
}

func TestBinderRejectsConfigurationsFilteredToNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	factory := mocks.NewMockCommitterFactory(ctrl)
	adapter := core.NewFactoryAdapter(&rejectAllFactory{factory})

	binder, err := NewBinder(adapter, &Config{
		Topics:          []string{"orders"},
		Group:           "g",
		BrokerAddresses: []string{"localhost:9092"},
	})

	assert.Nil(t, binder)
	assert.Error(t, err)
}

type rejectAllFactory struct {
	core.CommitterFactory
}

func (f *rejectAllFactory) TopicFilter() core.TopicFilter {
	return core.TopicFilterFunc(func(string) bool { return false })
}
