package scaffold

import (
	"bytes"
	"embed"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/askiada/go-pkgpipe/internal/config"
	"github.com/askiada/go-pkgpipe/pkg/pipeline"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// DefaultManifestFile is where the run command writes the publish manifest by default.
const DefaultManifestFile = "pkgpipe-manifest.json"

// Data holds the template variables.
type Data struct {
	Name         string
	Version      string
	Type         string
	Description  string
	Author       string
	Entry        string
	TestSuite    string
	ManifestFile string
}

// NewData returns the data of a library with the defaults filled in.
func NewData(name string) *Data {
	return &Data{
		Name:         name,
		Version:      "0.1.0",
		Type:         config.TypeLibrary,
		Entry:        "src/index.ts",
		ManifestFile: DefaultManifestFile,
	}
}

// Result lists what Generate did, paths are relative to Dir.
type Result struct {
	Dir       string
	Created   []string
	Unchanged []string
	// Skipped files exist with a different content and were left alone.
	Skipped  []string
	Warnings []string
}

var outputs = []struct {
	template string
	file     string
}{
	{template: "templates/pipeline.yaml.tmpl", file: config.DefaultFileName},
	{template: "templates/gitignore.tmpl", file: ".gitignore"},
}

// Generate writes the starter files into dir, creating it if needed.
func Generate(data *Data, dir string) (*Result, error) {
	_, err := semver.NewVersion(data.Version)
	if err != nil {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "invalid version %q: %v", data.Version, err)
	}

	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create %s", dir)
	}

	res := &Result{Dir: dir}

	for _, out := range outputs {
		content, err := render(out.template, data)
		if err != nil {
			return nil, err
		}

		if out.file == config.DefaultFileName {
			_, parseErr := config.Parse(content)
			if parseErr != nil {
				res.Warnings = append(res.Warnings, parseErr.Error())
			}
		}

		path := filepath.Join(dir, out.file)

		existing, err := os.ReadFile(path)

		switch {
		case err == nil && bytes.Equal(existing, content):
			res.Unchanged = append(res.Unchanged, out.file)

			continue
		case err == nil:
			res.Skipped = append(res.Skipped, out.file)

			continue
		case !os.IsNotExist(err):
			return nil, errors.Wrapf(err, "unable to read %s", path)
		}

		err = os.WriteFile(path, content, 0o644) //nolint:gosec // project files are world readable
		if err != nil {
			return nil, errors.Wrapf(err, "unable to write %s", path)
		}

		res.Created = append(res.Created, out.file)
	}

	return res, nil
}

var funcs = template.FuncMap{
	"quote": strconv.Quote,
}

func render(name string, data *Data) ([]byte, error) {
	tpl, err := template.New(filepath.Base(name)).Funcs(funcs).ParseFS(templatesFS, name)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse template %s", name)
	}

	buf := &bytes.Buffer{}

	err = tpl.Execute(buf, data)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to render template %s", name)
	}

	return []byte(strings.TrimLeft(buf.String(), "\n")), nil
}
