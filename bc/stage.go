package bc

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Stage is a step of the training pipeline. Stages are reached in order.
type Stage int

const (
	StageInit Stage = iota
	StagePrepared
	StageSplit
	StageScaled
	StageTrained
	StageEvaluated
	StageExported
)

var stageNames = [...]string{"init", "prepared", "split", "scaled", "trained", "evaluated", "exported"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// StageError reports the stage whose transition failed. Unwrap yields the
// underlying typed error.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("biascorrect: pipeline failed at stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (e *StageError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", e.Stage.String()).AnErr("cause", e.Err)
}
