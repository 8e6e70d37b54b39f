package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownField is returned when a model has no field with the requested name.
var ErrUnknownField = errors.New("unknown field")

// QuoteIdent quotes a SQL identifier, escaping embedded double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type TypeIdentifier string

const (
	TypeString    TypeIdentifier = "String"
	TypeFloat     TypeIdentifier = "Float"
	TypeBoolean   TypeIdentifier = "Boolean"
	TypeDateTime  TypeIdentifier = "DateTime"
	TypeEnum      TypeIdentifier = "Enum"
	TypeJSON      TypeIdentifier = "Json"
	TypeInt       TypeIdentifier = "Int"
	TypeUUID      TypeIdentifier = "UUID"
	TypeGraphQLID TypeIdentifier = "GraphQLID"
	TypeRelation  TypeIdentifier = "Relation"
)

// RelationSide names one end of a relation.
type RelationSide string

const (
	SideA RelationSide = "A"
	SideB RelationSide = "B"
)

func (s RelationSide) Opposite() RelationSide {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Schema is an immutable snapshot of every model and relation in a project.
// It is safe for concurrent use once built.
type Schema struct {
	Name      string
	DBName    string
	Models    []*Model
	Relations []*Relation

	modelsByName    map[string]*Model
	relationsByName map[string]*Relation
}

// Model returns the model with the given name, or nil.
func (s *Schema) Model(name string) *Model {
	return s.modelsByName[name]
}

// Relation returns the relation with the given name, or nil.
func (s *Schema) Relation(name string) *Relation {
	return s.relationsByName[name]
}

type Model struct {
	Name           string
	DBName         string
	IDFieldName    string
	ScalarFields   []*ScalarField
	RelationFields []*RelationField

	schema          *Schema
	scalarsByName   map[string]*ScalarField
	relationsByName map[string]*RelationField
}

// Schema returns the snapshot the model belongs to.
func (m *Model) Schema() *Schema { return m.schema }

// TableName returns the quoted, schema-qualified table name.
func (m *Model) TableName() string {
	if m.schema != nil && m.schema.DBName != "" {
		return QuoteIdent(m.schema.DBName) + "." + QuoteIdent(m.DBName)
	}
	return QuoteIdent(m.DBName)
}

// IDColumn returns the storage column of the model's identifier field.
func (m *Model) IDColumn() string {
	if f, ok := m.scalarsByName[m.IDFieldName]; ok {
		return f.ColumnName()
	}
	return m.IDFieldName
}

// FindScalarField looks up a scalar field by its API name.
func (m *Model) FindScalarField(name string) (*ScalarField, error) {
	f, ok := m.scalarsByName[name]
	if !ok {
		return nil, fmt.Errorf("%w: scalar field %q on model %s", ErrUnknownField, name, m.Name)
	}
	return f, nil
}

// FindRelationField looks up a relation field by its API name.
func (m *Model) FindRelationField(name string) (*RelationField, error) {
	f, ok := m.relationsByName[name]
	if !ok {
		return nil, fmt.Errorf("%w: relation field %q on model %s", ErrUnknownField, name, m.Name)
	}
	return f, nil
}

// HasScalarField reports whether f is one of m's scalar fields.
func (m *Model) HasScalarField(f *ScalarField) bool {
	return f != nil && m.scalarsByName[f.Name] == f
}

// HasRelationField reports whether f is one of m's relation fields.
func (m *Model) HasRelationField(f *RelationField) bool {
	return f != nil && m.relationsByName[f.Name] == f
}

type ScalarField struct {
	Name       string
	DBName     string
	Type       TypeIdentifier
	IsList     bool
	IsRequired bool
	IsUnique   bool

	model *Model
}

func (f *ScalarField) Model() *Model { return f.model }

// ColumnName returns the storage column, falling back to the API name.
func (f *ScalarField) ColumnName() string {
	if f.DBName != "" {
		return f.DBName
	}
	return f.Name
}

type RelationField struct {
	Name         string
	RelationName string
	Side         RelationSide
	IsList       bool
	IsRequired   bool

	model    *Model
	relation *Relation
}

func (f *RelationField) Model() *Model       { return f.model }
func (f *RelationField) Relation() *Relation { return f.relation }

// RelatedModel returns the model on the other end of the relation.
func (f *RelationField) RelatedModel() *Model {
	return f.relation.modelForSide(f.Side.Opposite())
}

// RelatedField returns the field on the related model that points back
// through the same relation, or nil for one-sided relations.
func (f *RelationField) RelatedField() *RelationField {
	for _, rf := range f.RelatedModel().RelationFields {
		if rf.relation == f.relation && rf != f && rf.Side == f.Side.Opposite() {
			return rf
		}
	}
	return nil
}

// Column returns the join-table column holding this side's identifier.
func (f *RelationField) Column() string {
	return f.relation.ColumnForSide(f.Side)
}

// OppositeColumn returns the join-table column holding the related side's identifier.
func (f *RelationField) OppositeColumn() string {
	return f.relation.ColumnForSide(f.Side.Opposite())
}

// InlineOnModel reports whether the relation is stored as a foreign key on
// the row of this field's own model.
func (f *RelationField) InlineOnModel() bool {
	in, ok := f.relation.Manifestation.(Inline)
	if !ok || in.InTableOfModel != f.model.Name {
		return false
	}
	return f.Column() == f.model.IDColumn()
}

// Manifestation describes how a relation is persisted.
type Manifestation interface {
	manifestation()
}

// RelationTable stores relation pairs in a dedicated join table.
type RelationTable struct {
	Table        string `json:"table" yaml:"table"`
	ModelAColumn string `json:"model_a_column" yaml:"model_a_column"`
	ModelBColumn string `json:"model_b_column" yaml:"model_b_column"`
}

// Inline stores the relation as a foreign key column on one model's table.
type Inline struct {
	InTableOfModel    string `json:"in_table_of_model" yaml:"in_table_of_model"`
	ReferencingColumn string `json:"referencing_column" yaml:"referencing_column"`
}

func (RelationTable) manifestation() {}
func (Inline) manifestation()        {}

type Relation struct {
	Name          string
	ModelAName    string
	ModelBName    string
	Manifestation Manifestation

	schema *Schema
	modelA *Model
	modelB *Model
}

func (r *Relation) ModelA() *Model { return r.modelA }
func (r *Relation) ModelB() *Model { return r.modelB }

// IsSelfRelation reports whether both sides point at the same model.
func (r *Relation) IsSelfRelation() bool {
	return r.ModelAName == r.ModelBName
}

func (r *Relation) modelForSide(side RelationSide) *Model {
	if side == SideA {
		return r.modelA
	}
	return r.modelB
}

// TableDBName returns the unquoted name of the table holding relation pairs.
func (r *Relation) TableDBName() string {
	switch m := r.Manifestation.(type) {
	case RelationTable:
		return m.Table
	case Inline:
		if model := r.schema.Model(m.InTableOfModel); model != nil {
			return model.DBName
		}
		return m.InTableOfModel
	default:
		return "_" + r.Name
	}
}

// TableName returns the quoted, schema-qualified join table name.
func (r *Relation) TableName() string {
	if r.schema != nil && r.schema.DBName != "" {
		return QuoteIdent(r.schema.DBName) + "." + QuoteIdent(r.TableDBName())
	}
	return QuoteIdent(r.TableDBName())
}

// ColumnForSide returns the join-table column that stores the identifier of
// the given side. For inline self relations side A holds the foreign key.
func (r *Relation) ColumnForSide(side RelationSide) string {
	switch m := r.Manifestation.(type) {
	case RelationTable:
		if side == SideA {
			return m.ModelAColumn
		}
		return m.ModelBColumn
	case Inline:
		owner := r.modelForSide(side)
		if owner.Name == m.InTableOfModel && !(r.IsSelfRelation() && side == SideA) {
			return owner.IDColumn()
		}
		return m.ReferencingColumn
	default:
		return string(side)
	}
}
