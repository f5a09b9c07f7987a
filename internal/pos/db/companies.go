package db

import (
	"context"
	"time"

	dbmodels "github.com/gartstein/pdv/internal/pos/db/models"
	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/google/uuid"
)

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	row := dbmodels.Empresa{
		ID:         company.ID,
		CNPJ:       company.CNPJ,
		Nome:       company.Name,
		SchemaNome: company.Schema,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err)
	}
	company.ID = row.ID
	return nil
}

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var row dbmodels.Empresa
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, translate(err)
	}
	company := companyFromRow(row)
	return &company, nil
}

func (r *Repository) CompanyExistsByCNPJ(ctx context.Context, cnpj string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&dbmodels.Empresa{}).
		Where("cnpj = ?", cnpj).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

// CompaniesForUser returns the companies userID is a member of, by name.
func (r *Repository) CompaniesForUser(ctx context.Context, userID string) ([]models.Company, error) {
	var rows []dbmodels.Empresa
	err := r.db.WithContext(ctx).
		Joins("JOIN usuarios_empresas ON usuarios_empresas.empresa_id = empresas.id").
		Where("usuarios_empresas.user_id = ?", userID).
		Order("empresas.nome").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	companies := make([]models.Company, 0, len(rows))
	for _, row := range rows {
		companies = append(companies, companyFromRow(row))
	}
	return companies, nil
}

func (r *Repository) AddMembership(ctx context.Context, userID string, companyID uuid.UUID) error {
	member, err := r.HasMembership(ctx, userID, companyID)
	if err != nil {
		return err
	}
	if member {
		return e.ErrDuplicate
	}
	row := dbmodels.UsuarioEmpresa{UserID: userID, EmpresaID: companyID, CreatedAt: time.Now().UTC()}
	return translate(r.db.WithContext(ctx).Create(&row).Error)
}

// MembershipsForUser returns the memberships of userID, oldest first.
func (r *Repository) MembershipsForUser(ctx context.Context, userID string) ([]models.Membership, error) {
	var rows []dbmodels.UsuarioEmpresa
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	memberships := make([]models.Membership, 0, len(rows))
	for _, row := range rows {
		memberships = append(memberships, models.Membership{
			UserID:    row.UserID,
			CompanyID: row.EmpresaID,
			CreatedAt: row.CreatedAt,
		})
	}
	return memberships, nil
}

func (r *Repository) HasMembership(ctx context.Context, userID string, companyID uuid.UUID) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&dbmodels.UsuarioEmpresa{}).
		Where("user_id = ? AND empresa_id = ?", userID, companyID).
		Count(&count)
	return count > 0, result.Error
}

func companyFromRow(row dbmodels.Empresa) models.Company {
	return models.Company{
		ID:     row.ID,
		CNPJ:   row.CNPJ,
		Name:   row.Nome,
		Schema: row.SchemaNome,
	}
}
