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

package core

// Message is the general purpose format used to deliver
// records from the log transport to a committer. The core
// treats it as opaque; bindings populate Properties with
// transport specific details and keep the raw record in Data.
type Message struct {
	MessageID  string                 `json:"messageId"`
	Body       string                 `json:"body"`
	Properties map[string]interface{} `json:"properties"`
	Data       map[string]interface{} `json:"-"`
}

// BatchSource is how a binding hands ordered batches to a
// CommitterWorker. Closing the channel signals that no more
// batches will be produced for the unit.
type BatchSource interface {
	Batches() <-chan []*Message
}
