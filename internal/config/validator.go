package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/askiada/go-pkgpipe/pkg/pipeline"
)

//go:embed schema/pipeline.schema.json
var schemaBytes []byte

const schemaURL = "pipeline.schema.json"

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	errCompile     error
	printer        = message.NewPrinter(language.English)
)

// Issue is a single problem found in a configuration document.
type Issue struct {
	// Path is the location in the document, like /bundle/externals/rxjs.
	Path    string
	Message string
	// Keyword is the schema keyword that failed, empty for semantic checks.
	Keyword string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}

	return i.Path + ": " + i.Message
}

// ValidationError lists every issue found in a configuration document.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.String())
	}

	return "invalid configuration: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == pipeline.ErrConfiguration
}

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			errCompile = errors.Wrap(err, "unable to unmarshal schema")

			return
		}

		compiler := jsonschema.NewCompiler()

		err = compiler.AddResource(schemaURL, doc)
		if err != nil {
			errCompile = errors.Wrap(err, "unable to add schema resource")

			return
		}

		compiledSchema, err = compiler.Compile(schemaURL)
		errCompile = errors.Wrap(err, "unable to compile schema")
	})

	return compiledSchema, errCompile
}

// validateSchema checks a YAML document against the embedded schema. The error is only set when the
// document cannot be read at all.
func validateSchema(data []byte) ([]Issue, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, err
	}

	var raw any

	err = yaml.Unmarshal(data, &raw)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse YAML")
	}

	if raw == nil {
		return []Issue{{Message: "empty document"}}, nil
	}

	jsonData, err := json.Marshal(normalizeYAML(raw))
	if err != nil {
		return nil, errors.Wrap(err, "unable to convert to JSON")
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return nil, errors.Wrap(err, "unable to prepare JSON for validation")
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil, nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return nil, errors.Wrap(err, "unexpected validation error")
	}

	issues := []Issue{}
	collectIssues(validationErr, &issues)

	if len(issues) == 0 {
		issues = append(issues, Issue{Message: validationErr.Error()})
	}

	return dedupIssues(issues), nil
}

// collectIssues walks the error tree down to the leaves, which name the failing property.
func collectIssues(ve *jsonschema.ValidationError, issues *[]Issue) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			collectIssues(cause, issues)
		}

		return
	}

	if ve.ErrorKind == nil {
		return
	}

	keyword := ""
	if kwPath := ve.ErrorKind.KeywordPath(); len(kwPath) > 0 {
		keyword = kwPath[len(kwPath)-1]
	}

	switch keyword {
	case "", "$ref", "allOf", "oneOf", "anyOf":
		return
	}

	path := ""
	if len(ve.InstanceLocation) > 0 {
		path = "/" + strings.Join(ve.InstanceLocation, "/")
	}

	*issues = append(*issues, Issue{
		Path:    path,
		Message: ve.ErrorKind.LocalizedString(printer),
		Keyword: keyword,
	})
}

func dedupIssues(issues []Issue) []Issue {
	seen := make(map[Issue]struct{}, len(issues))
	res := make([]Issue, 0, len(issues))

	for _, issue := range issues {
		if _, ok := seen[issue]; ok {
			continue
		}

		seen[issue] = struct{}{}
		res = append(res, issue)
	}

	sort.SliceStable(res, func(i, j int) bool { return res[i].Path < res[j].Path })

	return res
}

// normalizeYAML converts decoded YAML values to types encoding/json accepts.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		res := make(map[string]any, len(val))
		for k, item := range val {
			res[k] = normalizeYAML(item)
		}

		return res
	case map[any]any:
		res := make(map[string]any, len(val))
		for k, item := range val {
			res[fmt.Sprint(k)] = normalizeYAML(item)
		}

		return res
	case []any:
		res := make([]any, len(val))
		for i, item := range val {
			res[i] = normalizeYAML(item)
		}

		return res
	default:
		return val
	}
}
