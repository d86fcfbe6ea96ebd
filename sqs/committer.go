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

package sqs

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/Box-Castle/committer-api/core"
)

// SendMessageBatch accepts at most ten entries per call.
const maxEntriesPerCall = 10

// queueClient is the slice of the SQS API the committer needs.
type queueClient interface {
	SendMessageBatch(input *sqs.SendMessageBatchInput) (*sqs.SendMessageBatchOutput, error)
}

// Committer forwards consumed batches to an SQS queue. Entries
// the service reports as failed come back as a retry-batch
// outcome so the host re-sends just those; the metadata token
// carries a running count of forwarded messages.
type Committer struct {
	client     queueClient
	queueURL   string
	retryDelay int64
	logFields  log.Fields
}

func (c *Committer) Commit(ctx context.Context, batch []*core.Message, metadata *string) (*core.CommitOutcome, error) {
	forwarded := parseForwardedCount(metadata)
	failed := []*core.Message{}

	for start := 0; start < len(batch); start += maxEntriesPerCall {
		end := start + maxEntriesPerCall
		if end > len(batch) {
			end = len(batch)
		}
		chunk := batch[start:end]

		entries := make([]*sqs.SendMessageBatchRequestEntry, len(chunk))
		for i, m := range chunk {
			entries[i] = &sqs.SendMessageBatchRequestEntry{
				Id:          aws.String(strconv.Itoa(i)),
				MessageBody: aws.String(m.Body),
			}
		}

		output, err := c.client.SendMessageBatch(&sqs.SendMessageBatchInput{
			QueueUrl: &c.queueURL,
			Entries:  entries,
		})
		if err != nil {
			// Transport level failure: nothing in this chunk or
			// the rest of the batch is durable, let the host
			// replay the whole call.
			return nil, errors.WithStack(err)
		}

		forwarded += len(chunk) - len(output.Failed)
		for _, f := range output.Failed {
			i, err := strconv.Atoi(aws.StringValue(f.Id))
			if err != nil || i < 0 || i >= len(chunk) {
				return nil, errors.Errorf("sqs returned an unknown failed entry id %q", aws.StringValue(f.Id))
			}
			failed = append(failed, chunk[i])
		}
	}

	meta := formatForwardedCount(forwarded)
	if len(failed) > 0 {
		log.WithFields(c.logFields).WithFields(log.Fields{"failed": len(failed), "batchSize": len(batch)}).Info("sqs rejected part of the batch")
		return core.NewRetryBatch(c.delay(), failed, &meta)
	}
	return core.NewBatchCommitted(&meta), nil
}

func (c *Committer) Heartbeat(ctx context.Context, metadata *string) (*string, error) {
	return metadata, nil
}

func (c *Committer) Close() error {
	return nil
}

func (c *Committer) delay() time.Duration {
	return time.Duration(c.retryDelay) * time.Second
}

func parseForwardedCount(metadata *string) int {
	if metadata == nil {
		return 0
	}
	n, err := strconv.Atoi(*metadata)
	if err != nil {
		return 0
	}
	return n
}

func formatForwardedCount(n int) string {
	return strconv.Itoa(n)
}

func NewCommitter(client queueClient, queueURL string, retryDelaySeconds int64, topic string, partition int32) *Committer {
	return &Committer{
		client:     client,
		queueURL:   queueURL,
		retryDelay: retryDelaySeconds,
		logFields: log.Fields{
			"module":    "sqs_committer",
			"topic":     topic,
			"partition": partition,
			"queue":     queueURL,
		},
	}
}
