package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Step is one scripted action against a session.
type Step struct {
	Op   string `yaml:"op"`
	Kind string `yaml:"kind,omitempty"`
	Name string `yaml:"name,omitempty"`
	Data string `yaml:"data,omitempty"`
}

func (s Step) String() string {
	parts := []string{s.Op}
	for _, p := range []string{s.Kind, s.Name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if s.Data != "" {
		parts = append(parts, fmt.Sprintf("%q", s.Data))
	}
	return strings.Join(parts, " ")
}

// Script is a named sequence of steps.
type Script struct {
	Name     string `yaml:"name"`
	MaxPages uint32 `yaml:"max_pages,omitempty"`
	Steps    []Step `yaml:"steps"`
}

func loadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return parseScript(data)
}

func parseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("script %q has no steps", s.Name)
	}
	for i, st := range s.Steps {
		if _, ok := ops[st.Op]; !ok {
			return nil, fmt.Errorf("step %d: unknown op %q", i+1, st.Op)
		}
	}
	return &s, nil
}

// parseCommand reads an interactive command such as
// "new journal j1" or "write j1 hello world".
func parseCommand(line string) (Step, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Step{}, fmt.Errorf("empty command")
	}
	st := Step{Op: fields[0]}
	if _, ok := ops[st.Op]; !ok {
		return Step{}, fmt.Errorf("unknown op %q", st.Op)
	}
	args := fields[1:]

	switch st.Op {
	case "new":
		if len(args) != 2 {
			return Step{}, fmt.Errorf("usage: new <kind> <name>")
		}
		st.Kind, st.Name = args[0], args[1]
	case "release":
		if len(args) == 2 && args[0] == "base" {
			st.Kind, st.Name = args[0], args[1]
		} else if len(args) == 1 {
			st.Name = args[0]
		} else {
			return Step{}, fmt.Errorf("usage: release [base] <name>")
		}
	case "write":
		if len(args) < 2 {
			return Step{}, fmt.Errorf("usage: write <name> <data>")
		}
		st.Name, st.Data = args[0], strings.Join(args[1:], " ")
	case "collect":
		if len(args) != 0 {
			return Step{}, fmt.Errorf("usage: collect")
		}
	default:
		if len(args) != 1 {
			return Step{}, fmt.Errorf("usage: %s <name>", st.Op)
		}
		st.Name = args[0]
	}
	return st, nil
}

var builtinScripts = map[string]*Script{
	"single": {
		Name: "single",
		Steps: []Step{
			{Op: "new", Kind: "journal", Name: "j"},
			{Op: "write", Name: "j", Data: "hello"},
			{Op: "release", Name: "j"},
			{Op: "release", Name: "j"},
			{Op: "work", Name: "j"},
		},
	},
	"fallback": {
		Name: "fallback",
		Steps: []Step{
			{Op: "new", Kind: "journal", Name: "j"},
			{Op: "write", Name: "j", Data: "never released"},
			{Op: "drop", Name: "j"},
			{Op: "collect"},
		},
	},
	"derived": {
		Name: "derived",
		Steps: []Step{
			{Op: "new", Kind: "indexed", Name: "ij"},
			{Op: "write", Name: "ij", Data: "first"},
			{Op: "write", Name: "ij", Data: "second"},
			{Op: "work", Name: "ij"},
			{Op: "release", Kind: "base", Name: "ij"},
			{Op: "work", Name: "ij"},
		},
	},
	"mirror": {
		Name: "mirror",
		Steps: []Step{
			{Op: "new", Kind: "mirror", Name: "m"},
			{Op: "write", Name: "m", Data: "twice"},
			{Op: "work", Name: "m"},
			{Op: "drop", Name: "m"},
			{Op: "collect"},
		},
	},
}

var builtinOrder = []string{"single", "fallback", "derived", "mirror"}
