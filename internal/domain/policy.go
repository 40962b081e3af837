package domain

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Policy is the product-specific part of label validation.
type Policy struct {
	Reserved []string `yaml:"reserved"`
}

// LoadPolicy decodes a YAML policy document:
//
//	reserved:
//	  - eth
//	  - com
func LoadPolicy(r io.Reader) (Policy, error) {
	var p Policy
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		if err == io.EOF {
			return Policy{}, nil
		}
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	return p, nil
}

// Validator builds a Validator enforcing p.
func (p Policy) Validator() *Validator {
	return NewValidator(p.Reserved)
}
