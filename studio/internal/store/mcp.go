package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/hazyhaar/mcpstudio/dbopen"
)

const mcpColumns = `id, owner_id, name, domain, goal, roles, definition_json, created_at, updated_at`

// InsertMCP adds a new MCP record.
func (s *Store) InsertMCP(ctx context.Context, m *MCP) error {
	now := time.Now().UnixMilli()
	if m.CreatedAt == 0 {
		m.CreatedAt = now
	}
	if m.UpdatedAt == 0 {
		m.UpdatedAt = now
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO mcps (`+mcpColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.OwnerID, m.Name, m.Domain, m.Goal, m.Roles,
		m.DefinitionJSON, m.CreatedAt, m.UpdatedAt)
	return err
}

// GetMCP retrieves one MCP by ID, filtered by owner. Returns sql.ErrNoRows
// both when the record is absent and when it belongs to someone else.
func (s *Store) GetMCP(ctx context.Context, id, ownerID string) (*MCP, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+mcpColumns+` FROM mcps WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanMCP(row)
}

// ListMCPs returns all MCPs owned by ownerID, newest first.
func (s *Store) ListMCPs(ctx context.Context, ownerID string) ([]*MCP, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+mcpColumns+` FROM mcps WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mcps []*MCP
	for rows.Next() {
		var m MCP
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Name, &m.Domain, &m.Goal,
			&m.Roles, &m.DefinitionJSON, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		mcps = append(mcps, &m)
	}
	return mcps, rows.Err()
}

// UpdateMCP applies a partial update and returns the fresh record. The
// read and the write run in one transaction with BUSY retry, so a
// concurrent update cannot interleave between them.
// Returns sql.ErrNoRows when the MCP is absent or not owned.
func (s *Store) UpdateMCP(ctx context.Context, id, ownerID string, upd *MCPUpdate) (*MCP, error) {
	var m *MCP
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+mcpColumns+` FROM mcps WHERE id = ? AND owner_id = ?`, id, ownerID)
		var err error
		m, err = scanMCP(row)
		if err != nil {
			return err
		}
		if upd.Name != nil {
			m.Name = *upd.Name
		}
		if upd.Domain != nil {
			m.Domain = *upd.Domain
		}
		if upd.Goal != nil {
			m.Goal = *upd.Goal
		}
		if upd.Roles != nil {
			m.Roles = *upd.Roles
		}
		if upd.DefinitionJSON != nil {
			m.DefinitionJSON = *upd.DefinitionJSON
		}
		m.UpdatedAt = time.Now().UnixMilli()

		_, err = tx.ExecContext(ctx,
			`UPDATE mcps SET name=?, domain=?, goal=?, roles=?, definition_json=?, updated_at=?
			WHERE id=? AND owner_id=?`,
			m.Name, m.Domain, m.Goal, m.Roles, m.DefinitionJSON, m.UpdatedAt, id, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SetDefinition overwrites the stored definition. Last write wins; there is
// no per-record serialization across concurrent generations.
func (s *Store) SetDefinition(ctx context.Context, id, ownerID, definitionJSON string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE mcps SET definition_json=?, updated_at=? WHERE id=? AND owner_id=?`,
		definitionJSON, time.Now().UnixMilli(), id, ownerID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteMCP removes a record. Returns sql.ErrNoRows when nothing matched.
func (s *Store) DeleteMCP(ctx context.Context, id, ownerID string) error {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM mcps WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanMCP(row *sql.Row) (*MCP, error) {
	var m MCP
	err := row.Scan(&m.ID, &m.OwnerID, &m.Name, &m.Domain, &m.Goal,
		&m.Roles, &m.DefinitionJSON, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
