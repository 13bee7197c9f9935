package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
)

// SupportedSchemaVersions is the semver constraint a project export's
// schemaVersion must satisfy.
const SupportedSchemaVersions = "^1"

// InvalidEntity records an entity that failed structural validation and was
// excluded from the loaded project. The merger reports it as failed.
type InvalidEntity struct {
	Kind Kind
	ID   string
	Err  *SchemaValidationError
}

// LoadResult pairs the loaded project with the entities that were rejected.
type LoadResult struct {
	Project *Project
	Invalid []InvalidEntity
}

// LoadProject reads and parses a canonical project export from disk.
func LoadProject(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project export %s: %w", path, err)
	}
	result, err := ParseProject(data)
	if err != nil {
		return nil, fmt.Errorf("parsing project export %s: %w", path, err)
	}
	return result, nil
}

// projectEnvelope defers entity decoding so a malformed entity rejects only
// itself, never the document.
type projectEnvelope struct {
	SchemaVersion string       `json:"schemaVersion"`
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Models        *AgentModels `json:"models"`

	Agents             []json.RawMessage `json:"agents"`
	SubAgents          []json.RawMessage `json:"subAgents"`
	Tools              []json.RawMessage `json:"tools"`
	ContextConfigs     []json.RawMessage `json:"contextConfigs"`
	HeadersSchemas     []json.RawMessage `json:"headersSchemas"`
	FetchDefinitions   []json.RawMessage `json:"fetchDefinitions"`
	Credentials        []json.RawMessage `json:"credentials"`
	DataComponents     []json.RawMessage `json:"dataComponents"`
	ArtifactComponents []json.RawMessage `json:"artifactComponents"`
	StatusComponents   []json.RawMessage `json:"statusComponents"`
	Triggers           []json.RawMessage `json:"triggers"`
	Skills             []json.RawMessage `json:"skills"`
	Policies           []json.RawMessage `json:"policies"`
}

// ParseProject parses a canonical export. Document-level problems (broken
// JSON, envelope schema violations, unsupported schemaVersion) return an
// error; entity-level schema violations land in LoadResult.Invalid.
func ParseProject(data []byte) (*LoadResult, error) {
	var env projectEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshaling document: %w", err)
	}

	rootIssues, err := validateRoot(data)
	if err != nil {
		return nil, err
	}
	if len(rootIssues) > 0 {
		return nil, fmt.Errorf("document envelope invalid: %s", rootIssues[0].Path+": "+rootIssues[0].Message)
	}

	if err := checkSchemaVersion(env.SchemaVersion); err != nil {
		return nil, err
	}

	project := &Project{
		SchemaVersion: env.SchemaVersion,
		ID:            env.ID,
		Name:          env.Name,
		Description:   env.Description,
		Models:        env.Models,
	}

	result := &LoadResult{Project: project}

	decodeEntities(result, KindAgent, env.Agents, &project.Agents)
	decodeEntities(result, KindSubAgent, env.SubAgents, &project.SubAgents)
	decodeEntities(result, KindTool, env.Tools, &project.Tools)
	decodeEntities(result, KindContextConfig, env.ContextConfigs, &project.ContextConfigs)
	decodeEntities(result, KindHeadersSchema, env.HeadersSchemas, &project.HeadersSchemas)
	decodeEntities(result, KindFetchDefinition, env.FetchDefinitions, &project.FetchDefinitions)
	decodeEntities(result, KindCredential, env.Credentials, &project.Credentials)
	decodeEntities(result, KindDataComponent, env.DataComponents, &project.DataComponents)
	decodeEntities(result, KindArtifactComponent, env.ArtifactComponents, &project.ArtifactComponents)
	decodeEntities(result, KindStatusComponent, env.StatusComponents, &project.StatusComponents)
	decodeEntities(result, KindTrigger, env.Triggers, &project.Triggers)
	decodeEntities(result, KindSkill, env.Skills, &project.Skills)
	decodeEntities(result, KindPolicy, env.Policies, &project.Policies)

	return result, nil
}

// checkSchemaVersion enforces the supported schemaVersion constraint.
func checkSchemaVersion(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("parsing schemaVersion %q: %w", version, err)
	}
	constraint, err := semver.NewConstraint(SupportedSchemaVersions)
	if err != nil {
		return fmt.Errorf("parsing supported version constraint: %w", err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("schemaVersion %s is outside the supported range %s", version, SupportedSchemaVersions)
	}
	return nil
}

// decodeEntities validates and decodes each raw entity bag of one kind,
// appending valid entities to dst and rejects to result.Invalid.
func decodeEntities[T any](result *LoadResult, kind Kind, raws []json.RawMessage, dst *[]*T) {
	for _, raw := range raws {
		issues, err := ValidateEntity(kind, raw)
		if err != nil {
			// Validator failure, not a data failure: treat as invalid with
			// the error text so the entity still surfaces in the summary.
			result.Invalid = append(result.Invalid, InvalidEntity{
				Kind: kind,
				ID:   probeID(raw),
				Err: &SchemaValidationError{
					Kind:   kind,
					ID:     probeID(raw),
					Issues: []ValidationIssue{{Message: err.Error()}},
				},
			})
			continue
		}
		if len(issues) > 0 {
			id := probeID(raw)
			result.Invalid = append(result.Invalid, InvalidEntity{
				Kind: kind,
				ID:   id,
				Err:  &SchemaValidationError{Kind: kind, ID: id, Issues: issues},
			})
			continue
		}

		var entity T
		if err := json.Unmarshal(raw, &entity); err != nil {
			id := probeID(raw)
			result.Invalid = append(result.Invalid, InvalidEntity{
				Kind: kind,
				ID:   id,
				Err: &SchemaValidationError{
					Kind:   kind,
					ID:     id,
					Issues: []ValidationIssue{{Message: err.Error()}},
				},
			})
			continue
		}
		*dst = append(*dst, &entity)
	}
}

// probeID pulls the id out of a raw entity bag, best effort.
func probeID(raw json.RawMessage) string {
	var probe struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &probe)
	return probe.ID
}
