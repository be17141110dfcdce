// Package core defines the infera project configuration model and the typed
// error taxonomy shared by the orchestrator and its subsystems.
package core

import (
	"fmt"
)

// SchemaVersion is the configuration schema version written by this build.
// Any change to the ProjectConfiguration field set must increment it.
const SchemaVersion = "1.0"

// ArchitectureType classifies the analyzed codebase.
type ArchitectureType string

const (
	ArchStaticSite    ArchitectureType = "static_site"
	ArchAPIService    ArchitectureType = "api_service"
	ArchFullstack     ArchitectureType = "fullstack"
	ArchContainerized ArchitectureType = "containerized"
	ArchUnknown       ArchitectureType = "unknown"
)

// knownArchitectures is the closed set accepted by Validate.
var knownArchitectures = map[ArchitectureType]struct{}{
	ArchStaticSite:    {},
	ArchAPIService:    {},
	ArchFullstack:     {},
	ArchContainerized: {},
	ArchUnknown:       {},
}

// Phase is one discrete step of the provisioning workflow.
type Phase string

const (
	PhaseConfigure Phase = "configure"
	PhasePlan      Phase = "plan"
	PhaseApply     Phase = "apply"
	PhaseDestroy   Phase = "destroy"
)

// ProjectState is the coarse lifecycle position inferred from on-disk markers.
type ProjectState string

const (
	StateUninitialized ProjectState = "UNINITIALIZED"
	StateConfigured    ProjectState = "CONFIGURED"
	StatePlanned       ProjectState = "PLANNED"
)

// ResourceSpec declares one infrastructure resource.
type ResourceSpec struct {
	ID        string         `yaml:"id" json:"id"`
	Type      string         `yaml:"type" json:"type"`
	Name      string         `yaml:"name" json:"name"`
	Provider  string         `yaml:"provider" json:"provider"`
	Config    map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
	DependsOn []string       `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
}

// DomainConfig describes optional custom-domain routing for the project.
type DomainConfig struct {
	Name        string            `yaml:"name" json:"name"`
	ManagedZone string            `yaml:"managed_zone,omitempty" json:"managed_zone,omitempty"`
	Subdomains  map[string]string `yaml:"subdomains,omitempty" json:"subdomains,omitempty"` // subdomain -> resource id
}

// ProjectConfiguration is the durable artifact of the workflow: the
// schema-validated description of desired infrastructure produced by the
// configure phase and consumed by every later phase.
type ProjectConfiguration struct {
	Version            string           `yaml:"version" json:"version"`
	ProjectName        string           `yaml:"project_name" json:"project_name"`
	Provider           string           `yaml:"provider" json:"provider"`
	Region             string           `yaml:"region" json:"region"`
	ProjectID          string           `yaml:"project_id,omitempty" json:"project_id,omitempty"`
	DetectedFrameworks []string         `yaml:"detected_frameworks" json:"detected_frameworks"`
	HasDockerfile      bool             `yaml:"has_dockerfile" json:"has_dockerfile"`
	EntryPoint         string           `yaml:"entry_point,omitempty" json:"entry_point,omitempty"`
	ArchitectureType   ArchitectureType `yaml:"architecture_type,omitempty" json:"architecture_type,omitempty"`
	Resources          []ResourceSpec   `yaml:"resources" json:"resources"`
	Domain             *DomainConfig    `yaml:"domain,omitempty" json:"domain,omitempty"`
}

// Validate checks structural invariants: a known architecture type, unique
// resource ids, and dependency references that resolve within this
// configuration. It returns a *ConfigurationError on the first violation.
func (c *ProjectConfiguration) Validate() error {
	if c.ProjectName == "" {
		return NewConfigurationError("project_name is required", nil)
	}
	if c.Provider == "" {
		return NewConfigurationError("provider is required", nil)
	}
	if c.ArchitectureType != "" {
		if _, ok := knownArchitectures[c.ArchitectureType]; !ok {
			return NewConfigurationError(
				fmt.Sprintf("unknown architecture_type %q", c.ArchitectureType), nil)
		}
	}

	ids := make(map[string]struct{}, len(c.Resources))
	for i := range c.Resources {
		r := &c.Resources[i]
		if r.ID == "" {
			return NewConfigurationError(fmt.Sprintf("resource %d has no id", i), nil)
		}
		if _, dup := ids[r.ID]; dup {
			return NewConfigurationError(fmt.Sprintf("duplicate resource id %q", r.ID), nil)
		}
		ids[r.ID] = struct{}{}
	}

	for i := range c.Resources {
		r := &c.Resources[i]
		for _, dep := range r.DependsOn {
			if dep == r.ID {
				return NewConfigurationError(
					fmt.Sprintf("resource %q depends on itself", r.ID), nil)
			}
			if _, ok := ids[dep]; !ok {
				return NewConfigurationError(
					fmt.Sprintf("resource %q depends on unknown resource %q", r.ID, dep), nil)
			}
		}
	}

	if c.Domain != nil {
		for sub, target := range c.Domain.Subdomains {
			if _, ok := ids[target]; !ok {
				return NewConfigurationError(
					fmt.Sprintf("subdomain %q routes to unknown resource %q", sub, target), nil)
			}
		}
	}

	return nil
}

// ResourceIDs returns the ids of all declared resources, in declaration order.
func (c *ProjectConfiguration) ResourceIDs() []string {
	ids := make([]string, 0, len(c.Resources))
	for i := range c.Resources {
		ids = append(ids, c.Resources[i].ID)
	}
	return ids
}
