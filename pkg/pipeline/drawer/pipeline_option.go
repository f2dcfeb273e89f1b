package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

type pipelineDrawer struct {
	Drawer
}

func (pd *pipelineDrawer) New() error {
	pd.Reset()

	return nil
}

func (pd *pipelineDrawer) PrepareStep(step *model.StepInfo) error {
	err := pd.AddStep(step.ID)
	if err != nil {
		return errors.Wrapf(err, "unable to add step %s to drawer", step.ID)
	}

	for _, dep := range step.DependsOn {
		err := pd.AddLink(dep, step.ID)
		if err != nil {
			return err
		}
	}

	return nil
}

func (pd *pipelineDrawer) OnStepStart(step *model.StepInfo, _ time.Time) error {
	return pd.SetStatus(step.ID, model.StatusRunning, 0)
}

func (pd *pipelineDrawer) OnStepFinish(step *model.StepInfo, result *model.StepResult) error {
	return pd.SetStatus(step.ID, result.Status, result.Duration())
}

func (pd *pipelineDrawer) Finish(time.Duration) error {
	err := pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer draws the graph of a run, with the final status of every step, once the run is finished.
// Steps are prepared in execution order so every dependency is drawn before the steps depending on it.
func PipelineDrawer(drawer Drawer) model.PipelineOption {
	return &pipelineDrawer{drawer}
}
