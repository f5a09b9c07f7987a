package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 6

// ErrBadCredentials is returned for an unknown e-mail or a wrong password.
var ErrBadCredentials = errors.New("invalid e-mail or password")

type AccountStore interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpdateAccountName(ctx context.Context, id uuid.UUID, name string) error
}

// Session is a signed-in account with its token.
type Session struct {
	Account *models.Account
	Token   string
}

// Accounts signs users up and in. Tokens carry the account id as subject.
type Accounts struct {
	store     AccountStore
	jwtSecret string
	logger    *zap.Logger
	cost      int
}

func NewAccounts(store AccountStore, jwtSecret string, logger *zap.Logger) *Accounts {
	return &Accounts{
		store:     store,
		jwtSecret: jwtSecret,
		logger:    logger.Named("accounts"),
		cost:      bcrypt.DefaultCost,
	}
}

// SignUp creates an account and signs it in.
func (a *Accounts) SignUp(ctx context.Context, email, password, name string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, e.Invalid("email", "is not a valid address")
	}
	if len(password) < MinPasswordLength {
		return nil, e.Invalid("password", fmt.Sprintf("must have at least %d characters", MinPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(name),
	}
	if err := a.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, e.ErrDuplicate) {
			return nil, fmt.Errorf("%w: e-mail already registered", e.ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	a.logger.Info("Account created", zap.String("account_id", account.ID.String()))
	return a.session(account)
}

// SignIn checks the password of email and issues a token.
func (a *Accounts) SignIn(ctx context.Context, email, password string) (*Session, error) {
	account, err := a.store.GetAccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return a.session(account)
}

// UpdateProfile renames the account.
func (a *Accounts) UpdateProfile(ctx context.Context, id uuid.UUID, name string) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, e.Invalid("name", "is required")
	}
	if err := a.store.UpdateAccountName(ctx, id, name); err != nil {
		return nil, err
	}
	return a.store.GetAccount(ctx, id)
}

func (a *Accounts) session(account *models.Account) (*Session, error) {
	token, err := GenerateToken(account.ID.String(), a.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &Session{Account: account, Token: token}, nil
}
