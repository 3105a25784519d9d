package module

import dom "github.com/ditsyandrea22/celo-identity/internal/services/execution/domain"

// Ports holds the ports exposed by the execution module
type Ports struct {
	Executor    dom.ExecutorPort
	Worker      dom.WorkerPort
	Checkpoints dom.CheckpointStore
}
