package model

// Link is a display link attached to an artifact.
type Link struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url"  yaml:"url"`
}

// Selection selects files relative to the project directory.
type Selection struct {
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// IsEmpty reports whether the selection can never match a file.
func (s Selection) IsEmpty() bool {
	return len(s.Include) == 0
}

// Artifact is a named output of a step.
type Artifact struct {
	ID        string
	Selection Selection
	Links     []Link
}
