package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/engagesync/backend/internal/domain/tenant"
)

// NamespaceModel is the persistence model for the Namespace domain entity
type NamespaceModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	Name         string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_namespaces_name"`
	KeywordsJSON string    `gorm:"type:jsonb;column:keywords"`
	TableRef     string    `gorm:"type:varchar(100);not null"`
	IsDefault    bool      `gorm:"not null;default:false"`
	Active       bool      `gorm:"not null;default:true;index"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (NamespaceModel) TableName() string {
	return "namespaces"
}

// ToDomain converts the persistence model to a domain Namespace entity
func (m *NamespaceModel) ToDomain() *tenant.Namespace {
	ns := &tenant.Namespace{
		ID:        m.ID,
		Name:      m.Name,
		Keywords:  make([]string, 0),
		TableRef:  m.TableRef,
		IsDefault: m.IsDefault,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.KeywordsJSON != "" {
		var keywords []string
		if err := json.Unmarshal([]byte(m.KeywordsJSON), &keywords); err == nil {
			ns.Keywords = keywords
		}
	}
	return ns
}

// FromDomain populates the persistence model from a domain Namespace entity
func (m *NamespaceModel) FromDomain(ns *tenant.Namespace) {
	m.ID = ns.ID
	m.Name = ns.Name
	m.TableRef = ns.TableRef
	m.IsDefault = ns.IsDefault
	m.Active = ns.Active
	m.CreatedAt = ns.CreatedAt
	m.UpdatedAt = ns.UpdatedAt

	if len(ns.Keywords) > 0 {
		if jsonBytes, err := json.Marshal(ns.Keywords); err == nil {
			m.KeywordsJSON = string(jsonBytes)
		}
	} else {
		m.KeywordsJSON = "[]"
	}
}

// NamespaceModelFromDomain creates a new persistence model from a domain Namespace
func NamespaceModelFromDomain(ns *tenant.Namespace) *NamespaceModel {
	m := &NamespaceModel{}
	m.FromDomain(ns)
	return m
}
