package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Empresa is a company. SchemaNome holds its tenant tables.
type Empresa struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CNPJ       string    `gorm:"column:cnpj;size:14;uniqueIndex"`
	Nome       string    `gorm:"column:nome;size:255"`
	SchemaNome string    `gorm:"column:schema_nome;size:63"`
	CreatedAt  time.Time
}

func (Empresa) TableName() string {
	return "empresas"
}

func (e *Empresa) BeforeCreate(*gorm.DB) error {
	newID(&e.ID)
	return nil
}

// UsuarioEmpresa links a user to a company.
type UsuarioEmpresa struct {
	UserID    string    `gorm:"column:user_id;primaryKey;size:64"`
	EmpresaID uuid.UUID `gorm:"column:empresa_id;type:uuid;primaryKey"`
	CreatedAt time.Time
}

func (UsuarioEmpresa) TableName() string {
	return "usuarios_empresas"
}

// Usuario is an account able to sign in.
type Usuario struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"column:email;size:255;uniqueIndex"`
	SenhaHash string    `gorm:"column:senha_hash"`
	Nome      string    `gorm:"column:nome;size:255"`
	CreatedAt time.Time
}

func (Usuario) TableName() string {
	return "usuarios"
}

func (u *Usuario) BeforeCreate(*gorm.DB) error {
	newID(&u.ID)
	return nil
}
