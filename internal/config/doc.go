// Package config loads the pipeline.yaml file describing a package project and turns it into a
// pipeline graph and an artifact registry.
//
// The document is validated against an embedded JSON schema, then version ranges are checked as
// semantic version constraints. Workers and the default step timeout can be overridden with
// PKGPIPE_WORKERS and PKGPIPE_TIMEOUT, or with command line flags bound to the Loader.
package config
