package agents

// Agent is a catalog entry for a runnable scanning unit, identified by its key
// (for example "agent/ostorlab/nmap").
type Agent struct {
	ID  int64  `json:"id"`
	Key string `json:"key"`
}

// Argument is one configured argument of an agent. Value holds the raw
// serialized bytes as received.
type Argument struct {
	ID          int64  `json:"id"`
	AgentID     int64  `json:"agent_id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Value       []byte `json:"value"`
}

// NewArgument carries the fields of an argument to create.
type NewArgument struct {
	AgentID     int64
	Name        string
	Type        string
	Description string
	Value       []byte
}

// Group is a named collection of agents, tagged with the asset types it can scan.
type Group struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GroupMapping links an agent to a group.
type GroupMapping struct {
	ID           int64 `json:"id"`
	AgentID      int64 `json:"agent_id"`
	AgentGroupID int64 `json:"agent_group_id"`
}

// AssetType is a capability tag such as "WEB" or "NETWORK".
type AssetType struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}
