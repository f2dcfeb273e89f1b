package measure

import (
	"time"

	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
	startTime time.Time
}

func (pm *pipelineMeasure) New() error {
	pm.startTime = time.Now()

	return nil
}

func (pm *pipelineMeasure) PrepareStep(step *model.StepInfo) error {
	mt := pm.AddMetric(step.ID)
	mt.SetQueued(pm.startTime)

	return nil
}

func (pm *pipelineMeasure) OnStepStart(step *model.StepInfo, startedAt time.Time) error {
	mt, ok := pm.GetMetric(step.ID)
	if !ok {
		mt = pm.AddMetric(step.ID)
	}

	mt.SetStarted(startedAt)

	return nil
}

func (pm *pipelineMeasure) OnStepFinish(step *model.StepInfo, result *model.StepResult) error {
	mt, ok := pm.GetMetric(step.ID)
	if !ok {
		mt = pm.AddMetric(step.ID)
	}

	finished := result.Finished
	if finished.IsZero() {
		finished = time.Now()
	}

	mt.SetFinished(finished, result.Status)

	return nil
}

func (pm *pipelineMeasure) Finish(elapsed time.Duration) error {
	pm.SetTotalDuration(elapsed)

	return nil
}

// PipelineMeasure records the timings of every step of a run into measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{Measure: measure}
}
