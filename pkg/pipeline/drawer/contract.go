package drawer

import (
	"time"

	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

// Drawer is an interface that defines the methods for drawing a pipeline.
type Drawer interface {
	// AddStep adds a step to the pipeline drawer.
	AddStep(stepName string) error
	// AddLink adds a link from a dependency to the step depending on it.
	AddLink(dependencyName, stepName string) error
	// SetStatus sets the status and the duration of a step.
	SetStatus(stepName string, status model.Status, duration time.Duration) error
	// Draw writes the pipeline graph.
	Draw() error
	// Reset forgets every step, so the drawer can be used for another run.
	Reset()
}
