package db

import (
	"context"
	"strings"

	dbmodels "github.com/gartstein/pdv/internal/pos/db/models"
	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/google/uuid"
)

func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	exists, err := r.accountExists(ctx, account.Email)
	if err != nil {
		return err
	}
	if exists {
		return e.ErrDuplicate
	}

	row := dbmodels.Usuario{
		ID:        account.ID,
		Email:     strings.ToLower(account.Email),
		SenhaHash: account.PasswordHash,
		Nome:      account.Name,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err)
	}
	account.ID = row.ID
	account.Email = row.Email
	account.CreatedAt = row.CreatedAt
	return nil
}

func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var row dbmodels.Usuario
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).Take(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return accountFromRow(row), nil
}

func (r *Repository) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var row dbmodels.Usuario
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, translate(err)
	}
	return accountFromRow(row), nil
}

func (r *Repository) UpdateAccountName(ctx context.Context, id uuid.UUID, name string) error {
	result := r.db.WithContext(ctx).Model(&dbmodels.Usuario{}).
		Where("id = ?", id).
		Update("nome", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) accountExists(ctx context.Context, email string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&dbmodels.Usuario{}).
		Where("email = ?", strings.ToLower(email)).
		Count(&count)
	return count > 0, result.Error
}

func accountFromRow(row dbmodels.Usuario) *models.Account {
	return &models.Account{
		ID:           row.ID,
		Email:        row.Email,
		PasswordHash: row.SenhaHash,
		Name:         row.Nome,
		CreatedAt:    row.CreatedAt,
	}
}
