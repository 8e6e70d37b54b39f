package schema

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const loadModelsQuery = `
SELECT
	m.id, m.name, m.db_name, m.id_field,
	f.name, f.db_name, f.type, f.is_list, f.is_required, f.is_unique,
	f.relation_name, f.relation_side
FROM metadata.models m
LEFT JOIN metadata.fields f ON f.model_id = m.id
ORDER BY m.name, f.position
`

const loadRelationsQuery = `
SELECT
	r.name, r.model_a, r.model_b,
	r.relation_table, r.model_a_column, r.model_b_column,
	r.inline_model, r.inline_column
FROM metadata.relations r
ORDER BY r.name
`

// Cache holds the current schema snapshot. Reloading swaps the snapshot;
// snapshots already handed out are never mutated.
type Cache struct {
	mu      sync.RWMutex
	current *Schema
}

func NewCache() *Cache {
	return &Cache{current: &Schema{
		modelsByName:    map[string]*Model{},
		relationsByName: map[string]*Relation{},
	}}
}

// NewCacheFromSchema returns a cache serving a fixed snapshot.
func NewCacheFromSchema(s *Schema) *Cache {
	return &Cache{current: s}
}

// Load reads the project schema from the metadata tables and replaces the
// current snapshot.
func (c *Cache) Load(ctx context.Context, pool *pgxpool.Pool, dbName string) error {
	tmpl := SchemaTemplate{Name: dbName, DBName: dbName}

	rows, err := pool.Query(ctx, loadRelationsQuery)
	if err != nil {
		return fmt.Errorf("schema cache load relations: %w", err)
	}
	for rows.Next() {
		var (
			rt                        RelationTemplate
			table, colA, colB         *string
			inlineModel, inlineColumn *string
		)
		if err := rows.Scan(&rt.Name, &rt.ModelA, &rt.ModelB, &table, &colA, &colB, &inlineModel, &inlineColumn); err != nil {
			rows.Close()
			return fmt.Errorf("schema cache scan relation: %w", err)
		}
		switch {
		case inlineModel != nil && inlineColumn != nil:
			rt.Manifestation.Inline = &Inline{InTableOfModel: *inlineModel, ReferencingColumn: *inlineColumn}
		case table != nil && colA != nil && colB != nil:
			rt.Manifestation.Table = &RelationTable{Table: *table, ModelAColumn: *colA, ModelBColumn: *colB}
		}
		tmpl.Relations = append(tmpl.Relations, rt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("schema cache relation rows: %w", err)
	}

	rows, err = pool.Query(ctx, loadModelsQuery)
	if err != nil {
		return fmt.Errorf("schema cache load models: %w", err)
	}
	defer rows.Close()

	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			mID                           uuid.UUID
			mName                         string
			mDBName, mIDField             *string
			fName, fDBName, fType         *string
			fIsList, fIsRequired, fIsUniq *bool
			fRelationName, fRelationSide  *string
		)
		err := rows.Scan(
			&mID, &mName, &mDBName, &mIDField,
			&fName, &fDBName, &fType, &fIsList, &fIsRequired, &fIsUniq,
			&fRelationName, &fRelationSide,
		)
		if err != nil {
			return fmt.Errorf("schema cache scan model: %w", err)
		}

		i, ok := index[mID]
		if !ok {
			tmpl.Models = append(tmpl.Models, ModelTemplate{
				Name:        mName,
				DBName:      deref(mDBName),
				IDFieldName: deref(mIDField),
			})
			i = len(tmpl.Models) - 1
			index[mID] = i
		}

		if fName != nil {
			tmpl.Models[i].Fields = append(tmpl.Models[i].Fields, FieldTemplate{
				Name:         *fName,
				DBName:       deref(fDBName),
				Type:         TypeIdentifier(deref(fType)),
				IsList:       derefBool(fIsList),
				IsRequired:   derefBool(fIsRequired),
				IsUnique:     derefBool(fIsUniq),
				RelationName: deref(fRelationName),
				RelationSide: RelationSide(deref(fRelationSide)),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("schema cache model rows: %w", err)
	}

	s, err := NewSchema(tmpl)
	if err != nil {
		return fmt.Errorf("schema cache build: %w", err)
	}

	c.Swap(s)
	return nil
}

// Swap replaces the current snapshot.
func (c *Cache) Swap(s *Schema) {
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
}

// Current returns the snapshot to use for one request.
func (c *Cache) Current() *Schema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Model finds a model in the current snapshot.
func (c *Cache) Model(name string) *Model {
	return c.Current().Model(name)
}

// ModelCount returns the number of loaded models.
func (c *Cache) ModelCount() int {
	return len(c.Current().Models)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	return b != nil && *b
}
