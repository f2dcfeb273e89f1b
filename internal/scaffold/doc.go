// Package scaffold writes the starter files of a package project. It never overwrites a file, so
// running it again on the same directory is harmless.
package scaffold
