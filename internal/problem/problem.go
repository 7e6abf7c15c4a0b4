// Package problem describes a constraint problem as data, loads it from YAML or
// TOML and replays it against a bindings.Graph.
package problem

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/tinfer/tinfer/internal/log"
	"gopkg.in/yaml.v3"
)

var logger = log.DefaultLogger.With("section", "problem")

// Problem is everything needed to run the inference of one function body:
// the type universe, the conversions between types, the variables of the body,
// the bound operations the inference engine performed and the function to
// generalize at the end
type Problem struct {
	// Flavor is "plain" or "overload"
	Flavor      string           `yaml:"flavor" toml:"flavor"`
	Types       []TypeDecl       `yaml:"types" toml:"types"`
	Conversions []ConversionDecl `yaml:"conversions" toml:"conversions"`
	Variables   []VariableDecl   `yaml:"variables" toml:"variables"`
	Operations  []Operation      `yaml:"operations" toml:"operations"`
	Function    *FunctionDecl    `yaml:"function" toml:"function"`
}

type TypeDecl struct {
	Name string `yaml:"name" toml:"name"`
	// Kind is primitive (the default), class or interface
	Kind  string `yaml:"kind" toml:"kind"`
	Final bool   `yaml:"final" toml:"final"`
	// Parents must be declared before the type itself
	Parents []string `yaml:"parents" toml:"parents"`
}

type ConversionDecl struct {
	From     string `yaml:"from" toml:"from"`
	To       string `yaml:"to" toml:"to"`
	Implicit bool   `yaml:"implicit" toml:"implicit"`
	Provider string `yaml:"provider" toml:"provider"`
}

// VariableDecl binds a variable name to a type variable. An empty ID mints a
// fresh one.
type VariableDecl struct {
	Name  string `yaml:"name" toml:"name"`
	ID    string `yaml:"id" toml:"id"`
	Fixed bool   `yaml:"fixed" toml:"fixed"`
}

type OpKind string

const (
	OpLower        OpKind = "lower"
	OpUpper        OpKind = "upper"
	OpRef          OpKind = "ref"
	OpFix          OpKind = "fix"
	OpFixParameter OpKind = "fix-parameter"
	OpMerge        OpKind = "merge"
)

// Operation is one call into the graph.
//
//	lower, upper:   Var is a type variable id, Type a type expression
//	ref:            Ref <: Var, both type variable ids; Fixed makes Ref a fixed reference
//	fix:            Var is a variable name
//	fix-parameter:  Var is a type variable id
//	merge:          Var is merged into Ref
type Operation struct {
	Op    OpKind `yaml:"op" toml:"op"`
	Var   string `yaml:"var" toml:"var"`
	Type  string `yaml:"type" toml:"type"`
	Ref   string `yaml:"ref" toml:"ref"`
	Fixed bool   `yaml:"fixed" toml:"fixed"`
}

func (o Operation) String() string {
	switch o.Op {
	case OpLower:
		return o.Type + " <: " + o.Var
	case OpUpper:
		return o.Var + " <: " + o.Type
	case OpRef:
		ref := o.Ref
		if o.Fixed {
			ref += "!"
		}
		return ref + " <: " + o.Var
	case OpMerge:
		return "merge " + o.Var + " into " + o.Ref
	default:
		return string(o.Op) + " " + o.Var
	}
}

// FunctionDecl names, by variable name, the parameters and return value of the
// function the problem generalizes
type FunctionDecl struct {
	Name       string   `yaml:"name" toml:"name"`
	Parameters []string `yaml:"parameters" toml:"parameters"`
	Return     string   `yaml:"return" toml:"return"`
}

// Load reads a problem file, choosing the format by extension
func Load(path string) (*Problem, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read problem file")
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return ParseYAML(content)
	case ".toml":
		return ParseTOML(content)
	default:
		return nil, errors.Errorf("unsupported problem file extension %q, expected .yaml, .yml or .toml", ext)
	}
}

func ParseYAML(content []byte) (*Problem, error) {
	var p Problem
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, errors.Wrap(err, "could not parse YAML problem")
	}
	logger.Debug("parsed YAML problem", "types", len(p.Types), "operations", len(p.Operations))
	return &p, nil
}

func ParseTOML(content []byte) (*Problem, error) {
	var p Problem
	meta, err := toml.Decode(string(content), &p)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse TOML problem")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("unknown TOML keys %v", undecoded)
	}
	logger.Debug("parsed TOML problem", "types", len(p.Types), "operations", len(p.Operations))
	return &p, nil
}
