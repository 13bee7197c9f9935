package model

// Schema is a JSON-Schema-shaped property bag carried verbatim from the
// export. The property writer compiles these into schema-builder
// expressions; the model never interprets them beyond validation.
type Schema map[string]any

// Project is the root of a canonical export.
type Project struct {
	SchemaVersion string `json:"schemaVersion"`
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`

	Models *AgentModels `json:"models,omitempty"`

	Agents             []*Agent             `json:"agents,omitempty"`
	SubAgents          []*SubAgent          `json:"subAgents,omitempty"`
	Tools              []*Tool              `json:"tools,omitempty"`
	ContextConfigs     []*ContextConfig     `json:"contextConfigs,omitempty"`
	HeadersSchemas     []*HeadersSchema     `json:"headersSchemas,omitempty"`
	FetchDefinitions   []*FetchDefinition   `json:"fetchDefinitions,omitempty"`
	Credentials        []*Credential        `json:"credentials,omitempty"`
	DataComponents     []*DataComponent     `json:"dataComponents,omitempty"`
	ArtifactComponents []*ArtifactComponent `json:"artifactComponents,omitempty"`
	StatusComponents   []*StatusComponent   `json:"statusComponents,omitempty"`
	Triggers           []*Trigger           `json:"triggers,omitempty"`
	Skills             []*Skill             `json:"skills,omitempty"`
	Policies           []*Policy            `json:"policies,omitempty"`
}

// Agent is a top-level agent graph entry point.
type Agent struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Description     string       `json:"description,omitempty"`
	DefaultSubAgent string       `json:"defaultSubAgent,omitempty"`
	SubAgents       []string     `json:"subAgents,omitempty"`
	ContextConfig   string       `json:"contextConfig,omitempty"`
	Triggers        []string     `json:"triggers,omitempty"`
	Models          *AgentModels `json:"models,omitempty"`
	StopWhen        *StopWhen    `json:"stopWhen,omitempty"`
}

// SubAgent is an agent graph node that can hold tools and delegate.
type SubAgent struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Description        string       `json:"description,omitempty"`
	Prompt             string       `json:"prompt"`
	CanUse             []string     `json:"canUse,omitempty"`
	CanDelegateTo      []string     `json:"canDelegateTo,omitempty"`
	CanTransferTo      []string     `json:"canTransferTo,omitempty"`
	DataComponents     []string     `json:"dataComponents,omitempty"`
	ArtifactComponents []string     `json:"artifactComponents,omitempty"`
	StatusComponents   []string     `json:"statusComponents,omitempty"`
	Models             *AgentModels `json:"models,omitempty"`
	StopWhen           *StopWhen    `json:"stopWhen,omitempty"`
}

// Tool is an MCP tool server registration.
type Tool struct {
	ID                    string            `json:"id"`
	Name                  string            `json:"name"`
	Description           string            `json:"description,omitempty"`
	ServerURL             string            `json:"serverUrl"`
	Transport             string            `json:"transport,omitempty"`
	ActiveTools           []string          `json:"activeTools,omitempty"`
	Headers               map[string]string `json:"headers,omitempty"`
	CredentialReferenceID string            `json:"credentialReferenceId,omitempty"`
	ImageURL              string            `json:"imageUrl,omitempty"`
}

// ContextConfig wires request headers and fetched context variables into an
// agent conversation.
type ContextConfig struct {
	ID               string            `json:"id"`
	Name             string            `json:"name,omitempty"`
	Description      string            `json:"description,omitempty"`
	HeadersSchema    string            `json:"headersSchema,omitempty"`
	ContextVariables map[string]string `json:"contextVariables,omitempty"`
}

// HeadersSchema declares the typed request headers a context config accepts.
// It is declared in the owning context config's source file.
type HeadersSchema struct {
	ID     string `json:"id"`
	Schema Schema `json:"schema"`
}

// FetchDefinition describes a context variable fetched from an HTTP source.
// It is declared in the owning context config's source file.
type FetchDefinition struct {
	ID                    string       `json:"id"`
	Name                  string       `json:"name"`
	Trigger               string       `json:"trigger,omitempty"` // initialization | invocation
	FetchConfig           *FetchConfig `json:"fetchConfig"`
	ResponseSchema        Schema       `json:"responseSchema,omitempty"`
	DefaultValue          any          `json:"defaultValue,omitempty"`
	CredentialReferenceID string       `json:"credentialReferenceId,omitempty"`
}

// FetchConfig is the HTTP request half of a fetch definition. The url, body
// and header values may carry {{headers.<field>}} placeholders.
type FetchConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
	Timeout int               `json:"timeout,omitempty"`
}

// Credential is a stored secret reference.
type Credential struct {
	ID                string            `json:"id"`
	Type              string            `json:"type"`
	CredentialStoreID string            `json:"credentialStoreId"`
	RetrievalParams   map[string]string `json:"retrievalParams,omitempty"`
}

// DataComponent is a structured-output component with a props schema.
type DataComponent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Props       Schema `json:"props"`
}

// ArtifactComponent is a document/artifact component with a props schema.
type ArtifactComponent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Props       Schema `json:"props"`
}

// StatusComponent describes a typed status update surface.
type StatusComponent struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Description   string `json:"description,omitempty"`
	DetailsSchema Schema `json:"detailsSchema,omitempty"`
}

// Trigger is an inbound invocation hook on an agent. The url and body may
// carry {{headers.<field>}} placeholders.
type Trigger struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Method      string `json:"method,omitempty"`
	URL         string `json:"url,omitempty"`
	Body        string `json:"body,omitempty"`
	InputSchema Schema `json:"inputSchema,omitempty"`
}

// Skill is a reusable instruction bundle emitted as skills/<id>/SKILL.md.
type Skill struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Content     string         `json:"content,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Policy is a governance document emitted as policies/<id>.md.
type Policy struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Content     string         `json:"content,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// AgentModels holds model settings for the conversation loop.
type AgentModels struct {
	Base             *ModelSettings `json:"base,omitempty"`
	StructuredOutput *ModelSettings `json:"structuredOutput,omitempty"`
	Summarizer       *ModelSettings `json:"summarizer,omitempty"`
}

// ModelSettings names a model plus provider-specific options.
type ModelSettings struct {
	Model           string `json:"model,omitempty"`
	ProviderOptions Schema `json:"providerOptions,omitempty"`
}

// StopWhen bounds the conversation loop.
type StopWhen struct {
	TransferCountIs *int `json:"transferCountIs,omitempty"`
	StepCountIs     *int `json:"stepCountIs,omitempty"`
}
