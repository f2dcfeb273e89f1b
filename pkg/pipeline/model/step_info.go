package model

import (
	"strings"
	"time"
)

// Standard step identifiers of a package pipeline.
const (
	BuildStep   = "build"
	TestStep    = "test"
	PublishStep = "publish"
)

// Command is a structured invocation. Dir is relative to the project directory.
type Command struct {
	Program string            `json:"program"        yaml:"program"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Dir     string            `json:"dir,omitempty"  yaml:"dir,omitempty"`
	Env     map[string]string `json:"env,omitempty"  yaml:"env,omitempty"`
}

// IsZero reports whether the command does nothing.
func (c Command) IsZero() bool {
	return c.Program == ""
}

func (c Command) String() string {
	if c.IsZero() {
		return "<noop>"
	}

	return strings.Join(append([]string{c.Program}, c.Args...), " ")
}

// StepInfo is the declaration of a step.
type StepInfo struct {
	ID        string
	Command   Command
	Produces  []string
	DependsOn []string
	Timeout   time.Duration
}

// Clone returns a deep copy of the step.
func (s *StepInfo) Clone() *StepInfo {
	cp := *s
	cp.Produces = append([]string(nil), s.Produces...)
	cp.DependsOn = append([]string(nil), s.DependsOn...)
	cp.Command.Args = append([]string(nil), s.Command.Args...)

	if s.Command.Env != nil {
		cp.Command.Env = make(map[string]string, len(s.Command.Env))
		for k, v := range s.Command.Env {
			cp.Command.Env[k] = v
		}
	}

	return &cp
}
