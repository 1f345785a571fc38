package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/bryanwahyu/automaton-store/internal/domain/agents"
	"github.com/bryanwahyu/automaton-store/internal/domain/storage"
)

type AgentRepository struct {
	r runner
}

var _ domain.Repository = (*AgentRepository)(nil)

func createAgent(ctx context.Context, t *txn, key string) (*domain.Agent, error) {
	id, err := t.insert(ctx, `INSERT INTO agent (agent_key) VALUES (?)`, key)
	if err != nil {
		return nil, fmt.Errorf("inserting agent %s: %w", key, err)
	}
	return &domain.Agent{ID: id, Key: key}, nil
}

func agentByKey(ctx context.Context, t *txn, key string) (*domain.Agent, error) {
	a := domain.Agent{}
	err := t.queryRow(ctx, `SELECT id, agent_key FROM agent WHERE agent_key = ?`, key).Scan(&a.ID, &a.Key)
	if err != nil {
		return nil, notFound(err, "agent", key)
	}
	return &a, nil
}

func createArgument(ctx context.Context, t *txn, na domain.NewArgument) (*domain.Argument, error) {
	id, err := t.insert(ctx,
		`INSERT INTO agent_argument (name, type, description, value, agent_id) VALUES (?, ?, ?, ?, ?)`,
		na.Name, na.Type, na.Description, na.Value, na.AgentID)
	if err != nil {
		return nil, fmt.Errorf("inserting argument %s of agent %d: %w", na.Name, na.AgentID, err)
	}
	return &domain.Argument{
		ID:          id,
		AgentID:     na.AgentID,
		Name:        na.Name,
		Type:        na.Type,
		Description: na.Description,
		Value:       na.Value,
	}, nil
}

// Create registers an agent. Keys are unique: a second agent with the same key
// fails with ErrIntegrity.
func (r *AgentRepository) Create(ctx context.Context, key string) (*domain.Agent, error) {
	var out *domain.Agent
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = createAgent(ctx, t, key)
		return err
	})
	return out, err
}

func (r *AgentRepository) Get(ctx context.Context, id int64) (*domain.Agent, error) {
	a := domain.Agent{}
	err := r.r.run(ctx, func(t *txn) error {
		err := t.queryRow(ctx, `SELECT id, agent_key FROM agent WHERE id = ?`, id).Scan(&a.ID, &a.Key)
		return notFound(err, "agent", id)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AgentRepository) GetByKey(ctx context.Context, key string) (*domain.Agent, error) {
	var out *domain.Agent
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = agentByKey(ctx, t, key)
		return err
	})
	return out, err
}

func (r *AgentRepository) List(ctx context.Context) ([]*domain.Agent, error) {
	var out []*domain.Agent
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = queryAgents(ctx, t, `SELECT id, agent_key FROM agent ORDER BY id`)
		return err
	})
	return out, err
}

func queryAgents(ctx context.Context, t *txn, q string, args ...any) ([]*domain.Agent, error) {
	rows, err := t.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.Agent{}
	for rows.Next() {
		var a domain.Agent
		if err := rows.Scan(&a.ID, &a.Key); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// CreateArgument stores an argument of an existing agent.
func (r *AgentRepository) CreateArgument(ctx context.Context, na domain.NewArgument) (*domain.Argument, error) {
	var out *domain.Argument
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = createArgument(ctx, t, na)
		return err
	})
	return out, err
}

func (r *AgentRepository) Arguments(ctx context.Context, agentID int64) ([]*domain.Argument, error) {
	out := []*domain.Argument{}
	err := r.r.run(ctx, func(t *txn) error {
		rows, err := t.query(ctx,
			`SELECT id, agent_id, name, type, description, value FROM agent_argument WHERE agent_id = ? ORDER BY id`, agentID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var a domain.Argument
			if err := rows.Scan(&a.ID, &a.AgentID, &a.Name, &a.Type, &a.Description, &a.Value); err != nil {
				return err
			}
			out = append(out, &a)
		}
		return rows.Err()
	})
	return out, err
}

// Groups lists the groups the agent belongs to.
func (r *AgentRepository) Groups(ctx context.Context, agentID int64) ([]*domain.Group, error) {
	var out []*domain.Group
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = queryGroups(ctx, t, `SELECT g.id, g.name, g.description FROM agent_group g
    JOIN agent_group_mapping m ON m.agent_group_id = g.id
    WHERE m.agent_id = ? ORDER BY m.id`, agentID)
		return err
	})
	return out, err
}

type AgentGroupRepository struct {
	r runner
}

var _ domain.GroupRepository = (*AgentGroupRepository)(nil)

func queryGroups(ctx context.Context, t *txn, q string, args ...any) ([]*domain.Group, error) {
	rows, err := t.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.Group{}
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

func createGroup(ctx context.Context, t *txn, name, description string, assetTypeIDs []int64) (*domain.Group, error) {
	id, err := t.insert(ctx, `INSERT INTO agent_group (name, description) VALUES (?, ?)`, name, description)
	if err != nil {
		return nil, fmt.Errorf("inserting agent group %s: %w", name, err)
	}
	if err := addAssetTypes(ctx, t, id, assetTypeIDs); err != nil {
		return nil, err
	}
	return &domain.Group{ID: id, Name: name, Description: description}, nil
}

func addAssetTypes(ctx context.Context, t *txn, groupID int64, assetTypeIDs []int64) error {
	for _, atID := range assetTypeIDs {
		if _, err := t.exec(ctx,
			`INSERT INTO agent_group_asset_type (agent_group_id, asset_type_id) VALUES (?, ?)`, groupID, atID); err != nil {
			return fmt.Errorf("tagging agent group %d with asset type %d: %w", groupID, atID, err)
		}
	}
	return nil
}

func mapAgent(ctx context.Context, t *txn, agentID, groupID int64) (*domain.GroupMapping, error) {
	id, err := t.insert(ctx, `INSERT INTO agent_group_mapping (agent_id, agent_group_id) VALUES (?, ?)`, agentID, groupID)
	if err != nil {
		return nil, fmt.Errorf("mapping agent %d to group %d: %w", agentID, groupID, err)
	}
	return &domain.GroupMapping{ID: id, AgentID: agentID, AgentGroupID: groupID}, nil
}

// Create stores a group tagged with the given asset types.
func (r *AgentGroupRepository) Create(ctx context.Context, name, description string, assetTypeIDs ...int64) (*domain.Group, error) {
	var out *domain.Group
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = createGroup(ctx, t, name, description, assetTypeIDs)
		return err
	})
	return out, err
}

// CreateFromDefinition persists a resolved group definition. Agents are reused
// by key and asset types by name; missing ones are created.
func (r *AgentGroupRepository) CreateFromDefinition(ctx context.Context, def domain.GroupDefinition) (*domain.Group, error) {
	var out *domain.Group
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = createGroupFromDefinition(ctx, t, def)
		return err
	})
	return out, err
}

func createGroupFromDefinition(ctx context.Context, t *txn, def domain.GroupDefinition) (*domain.Group, error) {
	typeIDs := make([]int64, 0, len(def.AssetTypes))
	seen := map[string]bool{}
	for _, name := range def.AssetTypes {
		if seen[name] {
			continue
		}
		seen[name] = true
		at, err := assetTypeByName(ctx, t, name)
		if err != nil {
			return nil, err
		}
		typeIDs = append(typeIDs, at.ID)
	}
	g, err := createGroup(ctx, t, def.Name, def.Description, typeIDs)
	if err != nil {
		return nil, err
	}
	// a key listed twice gets its arguments appended but is mapped once
	mapped := map[int64]bool{}
	for _, ad := range def.Agents {
		agent, err := agentByKey(ctx, t, ad.Key)
		if errors.Is(err, storage.ErrNotFound) {
			agent, err = createAgent(ctx, t, ad.Key)
		}
		if err != nil {
			return nil, err
		}
		for _, arg := range ad.Args {
			if _, err := createArgument(ctx, t, domain.NewArgument{
				AgentID:     agent.ID,
				Name:        arg.Name,
				Type:        arg.Type,
				Description: arg.Description,
				Value:       arg.Value,
			}); err != nil {
				return nil, err
			}
		}
		if mapped[agent.ID] {
			continue
		}
		mapped[agent.ID] = true
		if _, err := mapAgent(ctx, t, agent.ID, g.ID); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// assetTypeByName returns the first asset type with the name, creating it when absent.
func assetTypeByName(ctx context.Context, t *txn, name string) (*domain.AssetType, error) {
	at := domain.AssetType{}
	err := t.queryRow(ctx, `SELECT id, type FROM asset_type WHERE type = ? ORDER BY id LIMIT 1`, name).Scan(&at.ID, &at.Type)
	switch {
	case err == nil:
		return &at, nil
	case errors.Is(err, sql.ErrNoRows):
		return createAssetType(ctx, t, name)
	}
	return nil, err
}

func (r *AgentGroupRepository) Get(ctx context.Context, id int64) (*domain.Group, error) {
	g := domain.Group{}
	err := r.r.run(ctx, func(t *txn) error {
		err := t.queryRow(ctx, `SELECT id, name, description FROM agent_group WHERE id = ?`, id).Scan(&g.ID, &g.Name, &g.Description)
		return notFound(err, "agent group", id)
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *AgentGroupRepository) List(ctx context.Context) ([]*domain.Group, error) {
	var out []*domain.Group
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = queryGroups(ctx, t, `SELECT id, name, description FROM agent_group ORDER BY id`)
		return err
	})
	return out, err
}

// Map adds an agent to a group. Both must exist.
func (r *AgentGroupRepository) Map(ctx context.Context, agentID, groupID int64) (*domain.GroupMapping, error) {
	var out *domain.GroupMapping
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = mapAgent(ctx, t, agentID, groupID)
		return err
	})
	return out, err
}

func (r *AgentGroupRepository) Agents(ctx context.Context, groupID int64) ([]*domain.Agent, error) {
	var out []*domain.Agent
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = queryAgents(ctx, t, `SELECT a.id, a.agent_key FROM agent a
    JOIN agent_group_mapping m ON m.agent_id = a.id
    WHERE m.agent_group_id = ? ORDER BY m.id`, groupID)
		return err
	})
	return out, err
}

func (r *AgentGroupRepository) AddAssetTypes(ctx context.Context, groupID int64, assetTypeIDs ...int64) error {
	return r.r.run(ctx, func(t *txn) error {
		return addAssetTypes(ctx, t, groupID, assetTypeIDs)
	})
}

func (r *AgentGroupRepository) AssetTypes(ctx context.Context, groupID int64) ([]*domain.AssetType, error) {
	var out []*domain.AssetType
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = queryAssetTypes(ctx, t, `SELECT ast.id, ast.type FROM asset_type ast
    JOIN agent_group_asset_type gat ON gat.asset_type_id = ast.id
    WHERE gat.agent_group_id = ? ORDER BY ast.id`, groupID)
		return err
	})
	return out, err
}

// GetByAssetType returns the groups tagged with an asset type of that name,
// lowest id first.
func (r *AgentGroupRepository) GetByAssetType(ctx context.Context, assetType string) ([]*domain.Group, error) {
	var out []*domain.Group
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = queryGroups(ctx, t, `SELECT DISTINCT g.id, g.name, g.description FROM agent_group g
    JOIN agent_group_asset_type gat ON gat.agent_group_id = g.id
    JOIN asset_type ast ON ast.id = gat.asset_type_id
    WHERE ast.type = ? ORDER BY g.id ASC`, assetType)
		return err
	})
	return out, err
}

type AssetTypeRepository struct {
	r runner
}

var _ domain.AssetTypeRepository = (*AssetTypeRepository)(nil)

func createAssetType(ctx context.Context, t *txn, assetType string) (*domain.AssetType, error) {
	id, err := t.insert(ctx, `INSERT INTO asset_type (type) VALUES (?)`, assetType)
	if err != nil {
		return nil, fmt.Errorf("inserting asset type %s: %w", assetType, err)
	}
	return &domain.AssetType{ID: id, Type: assetType}, nil
}

func queryAssetTypes(ctx context.Context, t *txn, q string, args ...any) ([]*domain.AssetType, error) {
	rows, err := t.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.AssetType{}
	for rows.Next() {
		var at domain.AssetType
		if err := rows.Scan(&at.ID, &at.Type); err != nil {
			return nil, err
		}
		out = append(out, &at)
	}
	return out, rows.Err()
}

// Create always inserts a new row, even when the type name already exists.
func (r *AssetTypeRepository) Create(ctx context.Context, assetType string) (*domain.AssetType, error) {
	var out *domain.AssetType
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = createAssetType(ctx, t, assetType)
		return err
	})
	return out, err
}

func (r *AssetTypeRepository) List(ctx context.Context) ([]*domain.AssetType, error) {
	var out []*domain.AssetType
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = queryAssetTypes(ctx, t, `SELECT id, type FROM asset_type ORDER BY id`)
		return err
	})
	return out, err
}

func (r *AssetTypeRepository) FindByType(ctx context.Context, assetType string) ([]*domain.AssetType, error) {
	var out []*domain.AssetType
	err := r.r.run(ctx, func(t *txn) (err error) {
		out, err = queryAssetTypes(ctx, t, `SELECT id, type FROM asset_type WHERE type = ? ORDER BY id`, assetType)
		return err
	})
	return out, err
}
