package orchestrator

import (
	"encoding/json"

	"github.com/patchbench/harness/internal/trajectory"
)

func marshalTrajectory(t *trajectory.Trajectory) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}
