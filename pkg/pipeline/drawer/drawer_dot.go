package drawer

import (
	"io"
	"os"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-pkgpipe/internal/store"
	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

// DOTDrawer draws the pipeline graph in the DOT language.
type DOTDrawer struct {
	graph  graph.Graph[string, string]
	store  *store.OrderedStore[string, string]
	open   func() (io.WriteCloser, error)
	status map[string]model.Status
}

// NewDOTDrawer creates a drawer writing to fileName.
func NewDOTDrawer(fileName string) *DOTDrawer {
	return newDOTDrawer(func() (io.WriteCloser, error) {
		file, err := os.Create(fileName)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to create file %s", fileName)
		}

		return file, nil
	})
}

// NewDOTWriterDrawer creates a drawer writing to wrt.
func NewDOTWriterDrawer(wrt io.Writer) *DOTDrawer {
	return newDOTDrawer(func() (io.WriteCloser, error) {
		return nopCloser{wrt}, nil
	})
}

func newDOTDrawer(open func() (io.WriteCloser, error)) *DOTDrawer {
	d := &DOTDrawer{open: open}
	d.Reset()

	return d
}

// Reset drops the steps, links and statuses drawn so far.
func (d *DOTDrawer) Reset() {
	d.store = store.NewOrderedStore[string, string]()
	d.graph = graph.NewWithStore(graph.StringHash, d.store, graph.Directed())
	d.status = make(map[string]model.Status)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// AddStep adds a step to the pipeline graph.
func (d *DOTDrawer) AddStep(name string) error {
	err := d.graph.AddVertex(name, graph.VertexAttribute("style", "filled"))
	if err != nil {
		return errors.Wrap(err, "unable to add vertex")
	}

	d.status[name] = model.StatusPending

	return nil
}

// AddLink adds a link from a dependency to the step depending on it.
func (d *DOTDrawer) AddLink(dependencyName, stepName string) error {
	err := d.graph.AddEdge(dependencyName, stepName)
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return errors.Wrapf(err, "unable to add edge from %s to %s", dependencyName, stepName)
	}

	return nil
}

// SetStatus sets the status and the duration of a step.
func (d *DOTDrawer) SetStatus(stepName string, status model.Status, duration time.Duration) error {
	_, properties, err := d.graph.VertexWithProperties(stepName)
	if err != nil {
		return errors.Wrapf(err, "unable to get vertex properties of %s", stepName)
	}

	d.status[stepName] = status

	if duration > 0 {
		properties.Attributes["xlabel"] = duration.String()
	}

	return nil
}

// Draw writes the pipeline graph.
func (d *DOTDrawer) Draw() error {
	wrt, err := d.open()
	if err != nil {
		return err
	}

	err = d.dot(wrt)
	if err != nil {
		_ = wrt.Close()

		return errors.Wrap(err, "unable to write dot graph")
	}

	return errors.Wrap(wrt.Close(), "unable to close dot graph")
}

var statusColours = map[model.Status][3]uint8{
	model.StatusPending:   {220, 220, 220},
	model.StatusRunning:   {120, 170, 255},
	model.StatusSucceeded: {130, 210, 130},
	model.StatusFailed:    {240, 100, 100},
	model.StatusSkipped:   {250, 220, 120},
}

func statusColour(status model.Status) (string, error) {
	rgb := statusColours[status]

	colour, err := colors.RGB(rgb[0], rgb[1], rgb[2]) //nolint
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}

	return colour.ToHEX().String(), nil
}

//nolint:lll //this is a template
const dotTemplate = `strict digraph {
	rankdir="LR";
{{- range .Statements}}
	"{{.Source}}" {{if .Target}}-> "{{.Target}}"{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}}{{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}}]{{end}};
{{- end}}
}
`

type description struct {
	Statements []statement
}

type statement struct {
	Source           string
	Target           string
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
}

func (d *DOTDrawer) dot(wrt io.Writer) error {
	desc, err := d.generateDOT()
	if err != nil {
		return errors.Wrap(err, "failed to generate DOT description")
	}

	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return errors.Wrap(err, "failed to parse template")
	}

	return errors.Wrap(tpl.Execute(wrt, desc), "failed to render template")
}

func (d *DOTDrawer) generateDOT() (description, error) {
	desc := description{}

	vertices, err := d.store.ListVertices()
	if err != nil {
		return desc, errors.Wrap(err, "unable to list vertices")
	}

	for _, vertex := range vertices {
		_, properties, err := d.graph.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		attributes := make(map[string]string, len(properties.Attributes)+1)
		for k, v := range properties.Attributes {
			attributes[k] = v
		}

		colour, err := statusColour(d.status[vertex])
		if err != nil {
			return desc, err
		}

		attributes["fillcolor"] = colour
		attributes["tooltip"] = d.status[vertex].String()

		htmlAttributes := make(map[string]string)

		if xlabel, ok := attributes["xlabel"]; ok {
			htmlAttributes["label"] = `<` + vertex + ` <BR /> <FONT POINT-SIZE="10">` + xlabel + `</FONT>>`

			delete(attributes, "xlabel")
		}

		desc.Statements = append(desc.Statements, statement{
			Source:           vertex,
			SourceAttributes: attributes,
			HTMLAttributes:   htmlAttributes,
		})
	}

	edges, err := d.store.ListEdges()
	if err != nil {
		return desc, errors.Wrap(err, "unable to list edges")
	}

	for _, edge := range edges {
		desc.Statements = append(desc.Statements, statement{Source: edge.Source, Target: edge.Target})
	}

	return desc, nil
}
