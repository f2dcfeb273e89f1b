// Package model provides the data structures shared by the pipeline package and its options.
// It defines the artifacts, the steps and their structured commands, the step statuses and results,
// and the hooks a pipeline option can register on a run.
package model
