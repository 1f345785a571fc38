package agents

// GroupDefinition is an agent group resolved from its catalog description.
type GroupDefinition struct {
	Name        string
	Description string
	Agents      []AgentDefinition
	AssetTypes  []string
}

// AgentDefinition is one agent of a group definition with its arguments.
type AgentDefinition struct {
	Key  string
	Args []ArgumentDefinition
}

type ArgumentDefinition struct {
	Name        string
	Type        string
	Description string
	Value       []byte
}
