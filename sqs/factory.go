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
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/pkg/errors"

	"github.com/Box-Castle/committer-api/core"
)

// Configuration keys understood by the factory.
const (
	ConfigQueueName         = "queue.name"
	ConfigRegion            = "region"
	ConfigRetryDelaySeconds = "retry.delay.seconds"
)

const defaultRetryDelaySeconds int64 = 5

func init() {
	core.RegisterFactory("sqs", NewFactory)
}

// Factory produces Committer instances bound to one SQS queue.
// Creation happens on the serialized default async path, so no
// locking is needed here.
type Factory struct {
	client     queueClient
	queueURL   string
	retryDelay int64
}

func (f *Factory) Create(topic string, partition int32, id int32) (core.Committer, error) {
	return NewCommitter(f.client, f.queueURL, f.retryDelay, topic, partition), nil
}

func (f *Factory) Close() error {
	return nil
}

// NewFactory builds the factory from its flat configuration, the
// construction contract every registered factory satisfies.
// Required: queue.name. Optional: region, retry.delay.seconds.
func NewFactory(config map[string]string) (core.CommitterFactory, error) {
	queueName, ok := config[ConfigQueueName]
	if !ok || queueName == "" {
		return nil, errors.Errorf("sqs factory requires the %q configuration entry", ConfigQueueName)
	}

	retryDelay := defaultRetryDelaySeconds
	if v, ok := config[ConfigRetryDelaySeconds]; ok {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			return nil, errors.Errorf("invalid %q value %q", ConfigRetryDelaySeconds, v)
		}
		retryDelay = parsed
	}

	options := session.Options{}
	if region, ok := config[ConfigRegion]; ok && region != "" {
		options.Config = aws.Config{Region: aws.String(region)}
	}

	sess, err := session.NewSessionWithOptions(options)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	client := sqs.New(sess)
	result, err := client.GetQueueUrl(&sqs.GetQueueUrlInput{
		QueueName: aws.String(queueName),
	})
	if err != nil {
		// A missing queue will not appear by retrying creation.
		return nil, core.NewUnrecoverableFactoryError(errors.WithStack(err))
	}

	return &Factory{
		client:     client,
		queueURL:   aws.StringValue(result.QueueUrl),
		retryDelay: retryDelay,
	}, nil
}
