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

package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Box-Castle/committer-api/core"
	"github.com/Box-Castle/committer-api/kafka"

	// Register the bundled factories.
	_ "github.com/Box-Castle/committer-api/sqs"
)

var topics []string
var group string
var brokerAddresses []string
var startFromOldest bool
var bufferSize int
var maxBatchSize int
var heartbeatCadenceSeconds int
var closeTimeoutSeconds int
var factoryName string
var factoryOptions map[string]string

// kafkaCmd represents the kafka command
var kafkaCmd = &cobra.Command{
	Use:   "kafka",
	Short: "Run a committer factory against a kafka consumer group",
	Long:  ``,
	RunE: func(cmd *cobra.Command, args []string) error {
		factory, err := core.BuildFactory(factoryName, factoryOptions)
		if err != nil {
			return err
		}
		adapter := core.NewFactoryAdapter(factory)

		kafkaConfig := &kafka.Config{
			Topics:           topics,
			Group:            group,
			BrokerAddresses:  brokerAddresses,
			StartFromOldest:  startFromOldest,
			BufferSize:       bufferSize,
			MaxBatchSize:     maxBatchSize,
			HeartbeatCadence: time.Second * time.Duration(heartbeatCadenceSeconds),
			CloseTimeout:     time.Second * time.Duration(closeTimeoutSeconds),
		}

		binder, err := kafka.NewBinder(adapter, kafkaConfig)
		if err != nil {
			return err
		}

		runErr := core.RunCLIInstance(binder, enableVerboseLog)
		// Factory close is the last call of the shutdown
		// sequence, after every worker is torn down.
		if err := adapter.Close(); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(kafkaCmd)

	kafkaCmd.Flags().StringArrayVar(&topics, "topics", []string{}, "topics to consume")
	kafkaCmd.Flags().StringVar(&group, "group", "", "consumer group name")
	kafkaCmd.Flags().StringArrayVar(&brokerAddresses, "brokers", []string{}, "broker addresses")
	kafkaCmd.Flags().BoolVar(&startFromOldest, "start-from-oldest", false, "start consuming messages from the oldest offset")
	kafkaCmd.Flags().IntVar(&bufferSize, "buffer-size", 0, "channel buffer size of the consumer")
	kafkaCmd.Flags().IntVar(&maxBatchSize, "max-batch-size", kafka.DefaultMaxBatchSize, "maximum number of messages delivered to one commit call")
	kafkaCmd.Flags().IntVar(&heartbeatCadenceSeconds, "heartbeat-interval-seconds", 10, "idle interval after which the committer heartbeat is invoked")
	kafkaCmd.Flags().IntVar(&closeTimeoutSeconds, "close-timeout-seconds", 30, "maximum wait for a committer close call during shutdown")
	kafkaCmd.Flags().StringVar(&factoryName, "factory", "", "name of the registered committer factory")
	kafkaCmd.Flags().StringToStringVar(&factoryOptions, "factory-opt", map[string]string{}, "factory configuration entries as key=value")

	kafkaCmd.MarkFlagRequired("topics")
	kafkaCmd.MarkFlagRequired("group")
	kafkaCmd.MarkFlagRequired("brokers")
	kafkaCmd.MarkFlagRequired("factory")
}
