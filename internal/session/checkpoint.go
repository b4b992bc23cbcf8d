package session

import (
	"encoding/json"
	"fmt"
	"os"

	"trainforge/internal/model"
	"trainforge/internal/optim"
)

// Checkpoint is the state a chained session needs to continue across
// process boundaries: parameters, optimizer velocity, and the chain's
// completed step count.
type Checkpoint struct {
	SessionID      string            `json:"session_id"`
	Seed           int64             `json:"seed"`
	CompletedSteps int               `json:"completed_steps"`
	Params         *model.Parameters `json:"params"`
	VelocityW      []float64         `json:"velocity_w"`
	VelocityB      []float64         `json:"velocity_b"`
}

// Capture snapshots the chain state after a session.
func Capture(m model.Model, o *optim.SGD, res Result, seed int64) Checkpoint {
	vw, vb := o.Velocity()
	return Checkpoint{
		SessionID:      res.SessionID,
		Seed:           seed,
		CompletedSteps: res.CompletedSteps,
		Params:         m.Parameters().Clone(),
		VelocityW:      vw,
		VelocityB:      vb,
	}
}

// Restore copies checkpointed state back into a freshly built model
// and optimizer, rejecting shape drift.
func (c Checkpoint) Restore(m model.Model, o *optim.SGD) error {
	params := m.Parameters()
	if len(c.Params.Weights) != len(params.Weights) || len(c.Params.Bias) != len(params.Bias) {
		return fmt.Errorf("session: checkpoint parameter shape mismatch (%d/%d weights, %d/%d bias)",
			len(c.Params.Weights), len(params.Weights), len(c.Params.Bias), len(params.Bias))
	}
	copy(params.Weights, c.Params.Weights)
	copy(params.Bias, c.Params.Bias)
	o.SetVelocity(c.VelocityW, c.VelocityB)
	return nil
}

// Save writes the checkpoint as JSON.
func (c Checkpoint) Save(path string) error {
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode checkpoint: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("session: write checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint written by Save.
func LoadCheckpoint(path string) (Checkpoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("session: read checkpoint: %w", err)
	}
	var c Checkpoint
	if err := json.Unmarshal(raw, &c); err != nil {
		return Checkpoint{}, fmt.Errorf("session: decode checkpoint %s: %w", path, err)
	}
	if c.Params == nil {
		return Checkpoint{}, fmt.Errorf("session: checkpoint %s has no parameters", path)
	}
	return c, nil
}
