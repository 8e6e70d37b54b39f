package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchemaTemplate is the serialized form of a project schema, as stored in a
// schema file or assembled from the metadata tables.
type SchemaTemplate struct {
	Name      string             `json:"name" yaml:"name"`
	DBName    string             `json:"db_name" yaml:"db_name"`
	Models    []ModelTemplate    `json:"models" yaml:"models"`
	Relations []RelationTemplate `json:"relations" yaml:"relations"`
}

type ModelTemplate struct {
	Name        string          `json:"name" yaml:"name"`
	DBName      string          `json:"db_name,omitempty" yaml:"db_name,omitempty"`
	IDFieldName string          `json:"id_field,omitempty" yaml:"id_field,omitempty"`
	Fields      []FieldTemplate `json:"fields" yaml:"fields"`
}

type FieldTemplate struct {
	Name         string         `json:"name" yaml:"name"`
	DBName       string         `json:"db_name,omitempty" yaml:"db_name,omitempty"`
	Type         TypeIdentifier `json:"type" yaml:"type"`
	IsList       bool           `json:"is_list,omitempty" yaml:"is_list,omitempty"`
	IsRequired   bool           `json:"is_required,omitempty" yaml:"is_required,omitempty"`
	IsUnique     bool           `json:"is_unique,omitempty" yaml:"is_unique,omitempty"`
	RelationName string         `json:"relation_name,omitempty" yaml:"relation_name,omitempty"`
	RelationSide RelationSide   `json:"relation_side,omitempty" yaml:"relation_side,omitempty"`
}

type RelationTemplate struct {
	Name          string                `json:"name" yaml:"name"`
	ModelA        string                `json:"model_a" yaml:"model_a"`
	ModelB        string                `json:"model_b" yaml:"model_b"`
	Manifestation ManifestationTemplate `json:"manifestation" yaml:"manifestation"`
}

// ManifestationTemplate holds exactly one of its fields. When both are
// empty the relation gets a join table named after the relation.
type ManifestationTemplate struct {
	Table  *RelationTable `json:"table,omitempty" yaml:"table,omitempty"`
	Inline *Inline        `json:"inline,omitempty" yaml:"inline,omitempty"`
}

// ParseTemplate decodes a JSON schema template and builds a Schema from it.
func ParseTemplate(data []byte) (*Schema, error) {
	var tmpl SchemaTemplate
	if err := json.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parse schema template: %w", err)
	}
	return NewSchema(tmpl)
}

// ParseTemplateYAML is ParseTemplate for YAML documents.
func ParseTemplateYAML(data []byte) (*Schema, error) {
	var tmpl SchemaTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parse schema template: %w", err)
	}
	return NewSchema(tmpl)
}

// LoadTemplateFile reads a schema template from disk. Files ending in .yaml
// or .yml are parsed as YAML, everything else as JSON.
func LoadTemplateFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema template: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseTemplateYAML(data)
	default:
		return ParseTemplate(data)
	}
}

// NewSchema builds and validates an immutable Schema from a template.
func NewSchema(tmpl SchemaTemplate) (*Schema, error) {
	s := &Schema{
		Name:            tmpl.Name,
		DBName:          tmpl.DBName,
		modelsByName:    make(map[string]*Model, len(tmpl.Models)),
		relationsByName: make(map[string]*Relation, len(tmpl.Relations)),
	}

	for _, rt := range tmpl.Relations {
		if _, dup := s.relationsByName[rt.Name]; dup {
			return nil, fmt.Errorf("duplicate relation %q", rt.Name)
		}
		rel := &Relation{
			Name:       rt.Name,
			ModelAName: rt.ModelA,
			ModelBName: rt.ModelB,
			schema:     s,
		}
		switch {
		case rt.Manifestation.Table != nil:
			rel.Manifestation = *rt.Manifestation.Table
		case rt.Manifestation.Inline != nil:
			rel.Manifestation = *rt.Manifestation.Inline
		default:
			rel.Manifestation = RelationTable{Table: "_" + rt.Name, ModelAColumn: "A", ModelBColumn: "B"}
		}
		s.Relations = append(s.Relations, rel)
		s.relationsByName[rel.Name] = rel
	}

	for _, mt := range tmpl.Models {
		if _, dup := s.modelsByName[mt.Name]; dup {
			return nil, fmt.Errorf("duplicate model %q", mt.Name)
		}
		m := &Model{
			Name:            mt.Name,
			DBName:          mt.DBName,
			IDFieldName:     mt.IDFieldName,
			schema:          s,
			scalarsByName:   make(map[string]*ScalarField),
			relationsByName: make(map[string]*RelationField),
		}
		if m.DBName == "" {
			m.DBName = m.Name
		}
		if m.IDFieldName == "" {
			m.IDFieldName = "id"
		}

		for _, ft := range mt.Fields {
			if _, dup := m.scalarsByName[ft.Name]; dup {
				return nil, fmt.Errorf("model %s: duplicate field %q", m.Name, ft.Name)
			}
			if _, dup := m.relationsByName[ft.Name]; dup {
				return nil, fmt.Errorf("model %s: duplicate field %q", m.Name, ft.Name)
			}

			if ft.Type == TypeRelation {
				rel := s.relationsByName[ft.RelationName]
				if rel == nil {
					return nil, fmt.Errorf("model %s: field %q references unknown relation %q", m.Name, ft.Name, ft.RelationName)
				}
				side := ft.RelationSide
				if side == "" && rel.IsSelfRelation() {
					return nil, fmt.Errorf("model %s: self relation field %q needs an explicit relation_side", m.Name, ft.Name)
				}
				if side == "" {
					side = SideA
					if rel.ModelAName != m.Name {
						side = SideB
					}
				}
				rf := &RelationField{
					Name:         ft.Name,
					RelationName: ft.RelationName,
					Side:         side,
					IsList:       ft.IsList,
					IsRequired:   ft.IsRequired,
					model:        m,
					relation:     rel,
				}
				m.RelationFields = append(m.RelationFields, rf)
				m.relationsByName[rf.Name] = rf
				continue
			}

			sf := &ScalarField{
				Name:       ft.Name,
				DBName:     ft.DBName,
				Type:       ft.Type,
				IsList:     ft.IsList,
				IsRequired: ft.IsRequired,
				IsUnique:   ft.IsUnique,
				model:      m,
			}
			m.ScalarFields = append(m.ScalarFields, sf)
			m.scalarsByName[sf.Name] = sf
		}

		s.Models = append(s.Models, m)
		s.modelsByName[m.Name] = m
	}

	for _, rel := range s.Relations {
		rel.modelA = s.modelsByName[rel.ModelAName]
		rel.modelB = s.modelsByName[rel.ModelBName]
		if rel.modelA == nil || rel.modelB == nil {
			return nil, fmt.Errorf("relation %s: unknown model (a=%q, b=%q)", rel.Name, rel.ModelAName, rel.ModelBName)
		}
		if in, ok := rel.Manifestation.(Inline); ok {
			if in.InTableOfModel != rel.ModelAName && in.InTableOfModel != rel.ModelBName {
				return nil, fmt.Errorf("relation %s: inline table model %q is not part of the relation", rel.Name, in.InTableOfModel)
			}
		}
	}

	for _, m := range s.Models {
		for _, rf := range m.RelationFields {
			if rf.relation.modelForSide(rf.Side) != m {
				return nil, fmt.Errorf("model %s: field %q is not on side %s of relation %s", m.Name, rf.Name, rf.Side, rf.RelationName)
			}
		}
	}

	return s, nil
}
