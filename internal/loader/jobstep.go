// Package loader parses uploaded job step documents.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/stepcat/pkg/confignode"
)

// Field names read from an uploaded document.
const (
	FieldJobStep       = "job_step"
	FieldStepName      = "step_name"
	FieldServiceName   = "service_name"
	FieldServiceConfig = "service_config"
)

// JobStep is the validated job_step section of a document.
type JobStep struct {
	StepName      string
	ServiceName   string
	ServiceConfig *confignode.Mapping
}

// Parse decodes and validates a job step document. The name is only used in
// error messages and may be empty.
func Parse(name string, data []byte) (*JobStep, error) {
	root, err := confignode.Parse(data)
	if errors.Is(err, confignode.ErrExcessiveAliasing) {
		return nil, &ParseError{File: name, Message: err.Error()}
	}
	if err != nil {
		return nil, &ParseError{File: name, Line: yamlErrorLine(err), Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	return FromNode(name, root)
}

// ParseFile reads and parses the document at path.
func ParseFile(path string) (*JobStep, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the caller
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(filepath.Base(path), data)
}

// FromNode validates an already parsed document.
func FromNode(name string, root confignode.Node) (*JobStep, error) {
	doc, ok := root.(*confignode.Mapping)
	if !ok {
		if s, isScalar := root.(*confignode.Scalar); isScalar && s.IsNull() {
			return nil, &ParseError{File: name, Message: "document is empty"}
		}
		return nil, &FieldTypeError{File: name, Field: "document", Want: "mapping", Got: confignode.KindName(root)}
	}

	jobNode, ok := doc.Get(FieldJobStep)
	if !ok {
		return nil, &MissingFieldError{File: name, Field: FieldJobStep}
	}
	job, ok := jobNode.(*confignode.Mapping)
	if !ok {
		return nil, &FieldTypeError{File: name, Field: FieldJobStep, Want: "mapping", Got: describe(jobNode)}
	}

	stepName, err := scalarText(name, job, FieldStepName)
	if err != nil {
		return nil, err
	}
	serviceName, err := scalarText(name, job, FieldServiceName)
	if err != nil {
		return nil, err
	}

	cfgNode, ok := job.Get(FieldServiceConfig)
	if !ok {
		return nil, &MissingFieldError{File: name, Field: FieldJobStep + "." + FieldServiceConfig}
	}
	serviceConfig, ok := cfgNode.(*confignode.Mapping)
	if !ok {
		return nil, &FieldTypeError{
			File:  name,
			Field: FieldJobStep + "." + FieldServiceConfig,
			Want:  "mapping",
			Got:   describe(cfgNode),
		}
	}

	return &JobStep{
		StepName:      stepName,
		ServiceName:   serviceName,
		ServiceConfig: serviceConfig,
	}, nil
}

// scalarText reads a required scalar field. Numbers and booleans are accepted
// and kept as their YAML text.
func scalarText(file string, m *confignode.Mapping, field string) (string, error) {
	path := FieldJobStep + "." + field
	v, ok := m.Get(field)
	if !ok {
		return "", &MissingFieldError{File: file, Field: path}
	}
	s, ok := v.(*confignode.Scalar)
	if !ok || s.IsNull() {
		return "", &FieldTypeError{File: file, Field: path, Want: "string", Got: describe(v)}
	}
	return s.Value, nil
}

func describe(n confignode.Node) string {
	if s, ok := n.(*confignode.Scalar); ok && s.IsNull() {
		return "null"
	}
	return confignode.KindName(n)
}
