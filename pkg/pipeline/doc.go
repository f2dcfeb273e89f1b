// Package pipeline orchestrates the build, test and publish steps of a package.
//
// Steps are declared on a Builder, which validates them into a Graph: every dependency must name a declared
// step, the dependencies must not form a cycle, and the execution order is the same every time the same
// declarations are built. Steps declared by a base configuration can be replaced by a later layer with
// OverrideStep.
//
// An Orchestrator runs a Graph. Steps whose dependencies all succeeded run concurrently on a bounded set of
// workers. When a step fails, the steps depending on it are skipped while independent branches of the graph
// keep running. Once every step settled, the artifacts declared by the succeeded steps are resolved through the
// ArtifactRegistry into a Manifest, ready to be packaged.
//
// Errors detected before a run match ErrConfiguration, errors reported for a single step match ErrExecution.
// ExitCode turns them into the exit code of a command line tool.
package pipeline
