// Package models contains the database rows of the application, mapped
// with GORM. Tenant rows live in the schema of their company and are
// created by the DDL in db.ProvisionSchema, so they carry no index or
// relation tags.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Tenant table names.
const (
	TableProdutos   = "produtos"
	TableServicos   = "servicos"
	TableClientes   = "clientes"
	TableVendedores = "vendedores"
	TableVendas     = "vendas"
	TableItensVenda = "itens_venda"
)

func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

type Produto struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Nome      string          `gorm:"column:nome"`
	Preco     decimal.Decimal `gorm:"column:preco;type:numeric(12,2)"`
	Descricao string          `gorm:"column:descricao"`
	Estoque   int             `gorm:"column:estoque"`
}

func (p *Produto) BeforeCreate(*gorm.DB) error {
	newID(&p.ID)
	return nil
}

type Servico struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Nome      string          `gorm:"column:nome"`
	Preco     decimal.Decimal `gorm:"column:preco;type:numeric(12,2)"`
	Descricao string          `gorm:"column:descricao"`
}

func (s *Servico) BeforeCreate(*gorm.DB) error {
	newID(&s.ID)
	return nil
}

type Cliente struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Nome     string    `gorm:"column:nome"`
	Telefone string    `gorm:"column:telefone"`
	Email    string    `gorm:"column:email"`
}

func (c *Cliente) BeforeCreate(*gorm.DB) error {
	newID(&c.ID)
	return nil
}

type Vendedor struct {
	ID       uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Nome     string          `gorm:"column:nome"`
	Telefone string          `gorm:"column:telefone"`
	Email    string          `gorm:"column:email"`
	Comissao decimal.Decimal `gorm:"column:comissao;type:numeric(5,2)"`
}

func (v *Vendedor) BeforeCreate(*gorm.DB) error {
	newID(&v.ID)
	return nil
}

// Venda is a sale row. Valor is the total of its itens_venda.
type Venda struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Cliente     string          `gorm:"column:cliente"`
	Vendedor    string          `gorm:"column:vendedor"`
	Valor       decimal.Decimal `gorm:"column:valor;type:numeric(12,2)"`
	Data        time.Time       `gorm:"column:data"`
	Observacoes string          `gorm:"column:observacoes"`
}

func (v *Venda) BeforeCreate(*gorm.DB) error {
	newID(&v.ID)
	return nil
}

// ItemVenda is a sale line. Exactly one of ProdutoID and ServicoID is set.
type ItemVenda struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VendaID       uuid.UUID       `gorm:"column:venda_id;type:uuid"`
	ProdutoID     *uuid.UUID      `gorm:"column:produto_id;type:uuid"`
	ServicoID     *uuid.UUID      `gorm:"column:servico_id;type:uuid"`
	Quantidade    int             `gorm:"column:quantidade"`
	PrecoUnitario decimal.Decimal `gorm:"column:preco_unitario;type:numeric(12,2)"`
	Subtotal      decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2)"`
}

func (i *ItemVenda) BeforeCreate(*gorm.DB) error {
	newID(&i.ID)
	return nil
}
