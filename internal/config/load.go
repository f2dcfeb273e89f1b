package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/askiada/go-pkgpipe/pkg/pipeline"
)

// EnvPrefix prefixes the environment variables overriding the configuration file.
const EnvPrefix = "PKGPIPE"

// Keys that can be overridden from the environment or from flags.
const (
	KeyWorkers = "workers"
	KeyTimeout = "timeout"
)

// Loader reads configuration files. Workers and timeout are resolved by viper, so flags bound with
// BindFlag win over PKGPIPE_* variables, which win over the file.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// BindFlag binds a command line flag to a configuration key.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return errors.Errorf("no flag to bind to %s", key)
	}

	return errors.Wrapf(l.v.BindPFlag(key, flag), "unable to bind flag %s", flag.Name)
}

// Load reads and validates the configuration file at path.
func (l *Loader) Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "unable to read %s: %v", path, err)
	}

	project, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}

	l.v.SetConfigType("yaml")

	err = l.v.ReadConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "unable to read %s: %v", path, err)
	}

	err = l.resolveOverrides(project)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to resolve %s", path)
	}

	project.Dir = filepath.Dir(abs)

	return project, nil
}

// resolveOverrides reads workers and timeout from the highest priority source. A value that does not
// parse is reported instead of being read as zero.
func (l *Loader) resolveOverrides(project *Project) error {
	issues := []Issue{}

	if raw := l.v.Get(KeyWorkers); raw != nil {
		workers, err := cast.ToIntE(raw)
		if err != nil || workers < 0 {
			issues = append(issues, Issue{Path: "/" + KeyWorkers, Message: fmt.Sprintf("invalid worker count %v", raw)})
		}

		project.Workers = workers
	}

	if raw := l.v.Get(KeyTimeout); raw != nil {
		timeout, err := cast.ToDurationE(raw)
		if err != nil || timeout < 0 {
			issues = append(issues, Issue{Path: "/" + KeyTimeout, Message: fmt.Sprintf("invalid duration %v", raw)})
		}

		project.Timeout = timeout
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}

	return nil
}

// Load reads and validates a configuration file, with PKGPIPE_* environment overrides.
func Load(path string) (*Project, error) {
	return NewLoader().Load(path)
}

// Parse validates a configuration document and decodes it. Environment overrides are not applied.
func Parse(data []byte) (*Project, error) {
	issues, err := validateSchema(data)
	if err != nil {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "%v", err)
	}

	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	project := &Project{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err = dec.Decode(project)
	if err != nil {
		return nil, errors.Wrapf(pipeline.ErrConfiguration, "unable to decode configuration: %v", err)
	}

	if project.Type == "" {
		project.Type = TypeLibrary
	}

	issues = checkProject(project)
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	return project, nil
}

// checkProject runs the checks the schema cannot express.
func checkProject(project *Project) []Issue {
	issues := []Issue{}

	_, err := semver.NewVersion(project.Version)
	if err != nil {
		issues = append(issues, Issue{Path: "/version", Message: "not a semantic version: " + err.Error()})
	}

	issues = append(issues, checkRanges("/bundle/externals", project.Bundle.Externals)...)
	issues = append(issues, checkRanges("/bundle/devDependencies", project.Bundle.DevDependencies)...)

	for i, name := range project.Bundle.IncludedInBundle {
		if _, ok := project.Bundle.Externals[name]; !ok {
			issues = append(issues, Issue{
				Path:    pathOf("/bundle/includedInBundle", i),
				Message: "unknown external " + name,
			})
		}
	}

	modules := make(map[string]struct{}, len(project.Bundle.Modules))
	for i, module := range project.Bundle.Modules {
		if _, ok := modules[module.Name]; ok {
			issues = append(issues, Issue{Path: pathOf("/bundle/modules", i) + "/name", Message: "duplicate module " + module.Name})
		}

		modules[module.Name] = struct{}{}
	}

	for i, module := range project.Bundle.Modules {
		for j, dep := range module.DependsOn {
			_, external := project.Bundle.Externals[dep]
			_, sibling := modules[dep]

			if dep == module.Name || (!external && !sibling) {
				issues = append(issues, Issue{
					Path:    pathOf(pathOf("/bundle/modules", i)+"/dependsOn", j),
					Message: "module " + module.Name + " depends on " + dep + " which is neither an external nor another module",
				})
			}
		}
	}

	artifacts := make(map[string]struct{}, len(project.Artifacts))
	for _, art := range project.Artifacts {
		artifacts[art.ID] = struct{}{}
	}

	for i, id := range project.Publish.Artifacts {
		if _, ok := artifacts[id]; !ok {
			issues = append(issues, Issue{Path: pathOf("/publish/artifacts", i), Message: "unknown artifact " + id})
		}
	}

	return issues
}

func checkRanges(path string, ranges map[string]string) []Issue {
	names := make([]string, 0, len(ranges))
	for name := range ranges {
		names = append(names, name)
	}

	sort.Strings(names)

	issues := []Issue{}

	for _, name := range names {
		_, err := semver.NewConstraint(ranges[name])
		if err != nil {
			issues = append(issues, Issue{Path: path + "/" + name, Message: "invalid version range: " + err.Error()})
		}
	}

	return issues
}

func pathOf(prefix string, idx int) string {
	return prefix + "/" + strconv.Itoa(idx)
}

// RuntimeExternals returns the externals left out of the bundle, sorted by name.
func (b Bundle) RuntimeExternals() []string {
	res := []string{}

	for name := range b.Externals {
		if !slices.Contains(b.IncludedInBundle, name) {
			res = append(res, name)
		}
	}

	sort.Strings(res)

	return res
}
