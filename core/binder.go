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

import (
	"context"
)

// BrokerBinder glues the commit protocol to a particular log
// transport. It is responsible for discovering the units to
// process, running a CommitterWorker per unit and tearing the
// workers down when the transport rebalances or shuts down.
type BrokerBinder interface {
	Start(context.Context)
	Awaiter() *Awaiter
}
