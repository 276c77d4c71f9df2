package pipeline

import (
	"errors"
	"fmt"
)

// ErrMissingDependency - стадия запущена раньше стадии, от которой зависит.
var ErrMissingDependency = errors.New("stage dependency not satisfied")

// StageFailureError - стадия не дала результата, прогон прерван.
type StageFailureError struct {
	Stage StageName
	Err   error
}

func (e *StageFailureError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageFailureError) Unwrap() error {
	return e.Err
}
