// Package declarative materializes agents from configuration files.
//
// A configuration directory holds a public file (public.yaml, public.yml or
// public.json) listing the agents exposed by the process, and optionally one
// file per agent, named after its identifier, listing that agent's children:
//
//	agents/
//	  public.yaml   # [router]
//	  router.yaml   # [general, botany, zoology]
//
// Every file is a list of agent records:
//
//	- id: botany
//	  name: Botany
//	  description: plants, flowers and trees
//	  kind: fixed
//	  args:
//	    message: Plants need light.
//	- id: zoology
//	  protocol: http
//	  timeout: 30s
//	  details:
//	    url: http://zoology.internal:8080/
package declarative

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/internal/util"
	"github.com/hupe1980/knowledgenet/registry"
)

// PublicFile is the base name of the file listing the public agents.
const PublicFile = "public"

var extensions = []string{".yaml", ".yml", ".json"}

// Record is one agent declaration as written in a configuration file.
type Record struct {
	ID          string         `yaml:"id" json:"id"`
	Name        string         `yaml:"name,omitempty" json:"name,omitempty"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Protocol    string         `yaml:"protocol,omitempty" json:"protocol,omitempty"`
	Timeout     string         `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Details     map[string]any `yaml:"details,omitempty" json:"details,omitempty"`
	Kind        string         `yaml:"kind,omitempty" json:"kind,omitempty"`
	Args        map[string]any `yaml:"args,omitempty" json:"args,omitempty"`
	Keys        []string       `yaml:"keys,omitempty" json:"keys,omitempty"`
}

// Spec validates the record and converts it to a registry.AgentSpec.
func (r Record) Spec() (registry.AgentSpec, error) {
	if r.ID == "" {
		return registry.AgentSpec{}, &util.ValidationError{Field: "id", Message: "is required"}
	}
	spec := registry.AgentSpec{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Protocol:    r.Protocol,
		Details:     core.Details(r.Details),
		Kind:        r.Kind,
		Args:        util.Args(r.Args),
		Keys:        r.Keys,
	}
	if spec.Protocol == "" {
		spec.Protocol = core.ProtocolLocal
	}
	if spec.IsLocal() && spec.Kind == "" {
		return registry.AgentSpec{}, &util.ValidationError{Field: "kind", Message: fmt.Sprintf("is required for local agent %q", r.ID)}
	}
	if r.Timeout != "" {
		d, err := time.ParseDuration(r.Timeout)
		if err != nil || d < 0 {
			return registry.AgentSpec{}, &util.ValidationError{Field: "timeout", Value: r.Timeout, Message: "must be a non-negative duration"}
		}
		spec.Timeout = d
	}
	return spec, nil
}

// LoadFile reads the agent records of one file. JSON files are parsed by
// the YAML decoder, which accepts them as flow documents.
func LoadFile(path string) ([]registry.AgentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	specs := make([]registry.AgentSpec, 0, len(records))
	seen := map[string]bool{}
	for i, rec := range records {
		spec, err := rec.Spec()
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", filepath.Base(path), i, err)
		}
		if seen[spec.ID] {
			return nil, fmt.Errorf("%s: %w: %q", filepath.Base(path), core.ErrDuplicateAgent, spec.ID)
		}
		seen[spec.ID] = true
		specs = append(specs, spec)
	}
	return specs, nil
}

// findFile returns the path of dir/<base>.{yaml,yml,json}.
func findFile(dir, base string) (string, bool, error) {
	for _, ext := range extensions {
		p := filepath.Join(dir, base+ext)
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", false, err
		}
		if !info.IsDir() {
			return p, true, nil
		}
	}
	return "", false, nil
}
