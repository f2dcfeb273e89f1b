package config

import (
	"time"

	"github.com/askiada/go-pkgpipe/pkg/pipeline/model"
)

// Package types.
const (
	TypeLibrary     = "library"
	TypeApplication = "application"
)

// DefaultFileName is the configuration file looked up in the project directory.
const DefaultFileName = "pipeline.yaml"

// Project is the validated configuration of a package project. It is not modified once loaded.
type Project struct {
	Name        string        `yaml:"name"`
	Version     string        `yaml:"version"`
	Type        string        `yaml:"type"`
	Description string        `yaml:"description"`
	Author      string        `yaml:"author"`
	Bundle      Bundle        `yaml:"bundle"`
	Test        Test          `yaml:"test"`
	Publish     Publish       `yaml:"publish"`
	Artifacts   []Artifact    `yaml:"artifacts"`
	Steps       []Step        `yaml:"steps"`
	Overrides   []Override    `yaml:"overrides"`
	Workers     int           `yaml:"workers"`
	Timeout     time.Duration `yaml:"timeout"`

	// Dir is the directory holding the configuration file.
	Dir string `yaml:"-"`
}

// Bundle describes how the package is built.
type Bundle struct {
	Entries []string `yaml:"entries"`
	Modules []Module `yaml:"modules"`
	// Externals are runtime dependencies left out of the bundle, name to version range.
	Externals map[string]string `yaml:"externals"`
	// IncludedInBundle lists externals that are bundled anyway.
	IncludedInBundle []string          `yaml:"includedInBundle"`
	DevDependencies  map[string]string `yaml:"devDependencies"`
	Command          model.Command     `yaml:"command"`
	Produces         []string          `yaml:"produces"`
	Timeout          time.Duration     `yaml:"timeout"`
}

// Module is an auxiliary bundle loaded on demand. DependsOn names the externals or modules it needs
// at load time.
type Module struct {
	Name      string   `yaml:"name"`
	Entry     string   `yaml:"entry"`
	DependsOn []string `yaml:"dependsOn"`
}

// Test describes the test step.
type Test struct {
	// Suite identifies the external conformance suite run by the test command.
	Suite    string        `yaml:"suite"`
	Command  model.Command `yaml:"command"`
	Produces []string      `yaml:"produces"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Publish describes the publish step. Artifacts is the ordered content of the package.
type Publish struct {
	Command   model.Command `yaml:"command"`
	Artifacts []string      `yaml:"artifacts"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Artifact struct {
	ID      string       `yaml:"id"`
	Include []string     `yaml:"include"`
	Exclude []string     `yaml:"exclude"`
	Links   []model.Link `yaml:"links"`
}

// Selection returns the file selection of the artifact.
func (a Artifact) Selection() model.Selection {
	return model.Selection{Include: a.Include, Exclude: a.Exclude}
}

// Step is an extra step, like documentation generation.
type Step struct {
	ID        string        `yaml:"id"`
	Command   model.Command `yaml:"command"`
	Produces  []string      `yaml:"produces"`
	DependsOn []string      `yaml:"dependsOn"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Override replaces the command of a declared step. Produces, when set, replaces its outputs.
type Override struct {
	Step     string        `yaml:"step"`
	Command  model.Command `yaml:"command"`
	Produces []string      `yaml:"produces"`
	Timeout  time.Duration `yaml:"timeout"`
}
