package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	dbmodels "github.com/gartstein/pdv/internal/pos/db/models"
	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/tenant"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	memoryPath = ":memory:"
)

type Repository struct {
	db *gorm.DB
	// attachDir holds the database files of attached sqlite schemas.
	// Empty means in-memory schemas.
	attachDir string
}

type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the sqlite database file.
	Path         string
	MaxOpenConns int
	// ConnectTimeout bounds the connection retries.
	ConnectTimeout time.Duration
}

// NewRepository connects to the configured database, retrying postgres
// connections until ConnectTimeout, and migrates the shared tables.
func NewRepository(cfg *Config) (*Repository, error) {
	if cfg.Driver == DriverSQLite {
		conn, err := connect(sqlite.Open(cfg.Path), cfg.MaxOpenConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		attachDir := ""
		if cfg.Path != memoryPath && !strings.HasPrefix(cfg.Path, "file::memory:") {
			attachDir = filepath.Dir(cfg.Path)
		}
		return setup(conn, attachDir)
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var conn *gorm.DB
	operation := func() error {
		var err error
		conn, err = connect(postgres.Open(dsn), cfg.MaxOpenConns)
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = cfg.ConnectTimeout
	if b.MaxElapsedTime == 0 {
		b.MaxElapsedTime = 30 * time.Second
	}
	if err := backoff.Retry(operation, b); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return setup(conn, "")
}

// Open wraps an already chosen dialector. Tests use it with sqlite in
// memory and a single connection so attached schemas stay visible.
func Open(dialector gorm.Dialector, maxOpenConns int) (*Repository, error) {
	conn, err := connect(dialector, maxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return setup(conn, "")
}

func connect(dialector gorm.Dialector, maxOpenConns int) (*gorm.DB, error) {
	conn, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if maxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(maxOpenConns)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return conn, nil
}

func setup(conn *gorm.DB, attachDir string) (*Repository, error) {
	if err := conn.AutoMigrate(&dbmodels.Empresa{}, &dbmodels.UsuarioEmpresa{}, &dbmodels.Usuario{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	repo := &Repository{db: conn, attachDir: attachDir}

	// sqlite forgets attachments when the connection closes.
	if repo.dialect() == DriverSQLite {
		var schemas []string
		if err := conn.Model(&dbmodels.Empresa{}).Where("schema_nome <> ''").Pluck("schema_nome", &schemas).Error; err != nil {
			return nil, fmt.Errorf("failed to list company schemas: %w", err)
		}
		for _, schema := range schemas {
			if err := repo.ProvisionSchema(context.Background(), schema); err != nil {
				return nil, err
			}
		}
	}
	return repo, nil
}

func (r *Repository) dialect() string {
	return r.db.Dialector.Name()
}

// Table opens a handle on a schema qualified table.
func (r *Repository) Table(ctx context.Context, qualified string) *gorm.DB {
	return r.db.WithContext(ctx).Table(qualified)
}

// ProvisionSchema creates the namespace of a company and its tables. It is
// idempotent.
func (r *Repository) ProvisionSchema(ctx context.Context, schema string) error {
	if !tenant.ValidIdentifier(schema) {
		return fmt.Errorf("%w: schema name %q", e.ErrInvalidInput, schema)
	}
	conn := r.db.WithContext(ctx)

	vars := map[string]string{"{schema}": schema}
	switch r.dialect() {
	case DriverSQLite:
		var attached int64
		if err := conn.Raw("SELECT count(*) FROM pragma_database_list WHERE name = ?", schema).Scan(&attached).Error; err != nil {
			return fmt.Errorf("failed to inspect schema %s: %w", schema, err)
		}
		if attached == 0 {
			if err := conn.Exec("ATTACH DATABASE ? AS "+schema, r.attachPath(schema)).Error; err != nil {
				return fmt.Errorf("failed to attach schema %s: %w", schema, err)
			}
		}
		vars["{uuid}"] = "text"
		vars["{timestamp}"] = "datetime"
		vars["{sale_fk}"] = ""
	default:
		if err := conn.Exec(`CREATE SCHEMA IF NOT EXISTS "` + schema + `"`).Error; err != nil {
			return fmt.Errorf("failed to create schema %s: %w", schema, err)
		}
		vars["{uuid}"] = "uuid"
		vars["{timestamp}"] = "timestamptz"
		vars["{sale_fk}"] = " REFERENCES " + schema + ".vendas(id) ON DELETE CASCADE"
	}

	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, k, v)
	}
	replacer := strings.NewReplacer(pairs...)
	for _, ddl := range tenantDDL {
		if err := conn.Exec(replacer.Replace(ddl)).Error; err != nil {
			return fmt.Errorf("failed to provision schema %s: %w", schema, err)
		}
	}
	return nil
}

func (r *Repository) attachPath(schema string) string {
	if r.attachDir == "" {
		return memoryPath
	}
	return filepath.Join(r.attachDir, schema+".db")
}

var tenantDDL = []string{
	`CREATE TABLE IF NOT EXISTS {schema}.produtos (
		id {uuid} PRIMARY KEY,
		nome varchar(255) NOT NULL,
		preco numeric(12,2) NOT NULL CHECK (preco >= 0),
		descricao text NOT NULL DEFAULT '',
		estoque integer NOT NULL DEFAULT 0 CHECK (estoque >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS {schema}.servicos (
		id {uuid} PRIMARY KEY,
		nome varchar(255) NOT NULL,
		preco numeric(12,2) NOT NULL CHECK (preco >= 0),
		descricao text NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS {schema}.clientes (
		id {uuid} PRIMARY KEY,
		nome varchar(255) NOT NULL,
		telefone varchar(32) NOT NULL DEFAULT '',
		email varchar(255) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS {schema}.vendedores (
		id {uuid} PRIMARY KEY,
		nome varchar(255) NOT NULL,
		telefone varchar(32) NOT NULL DEFAULT '',
		email varchar(255) NOT NULL DEFAULT '',
		comissao numeric(5,2) NOT NULL DEFAULT 0 CHECK (comissao >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS {schema}.vendas (
		id {uuid} PRIMARY KEY,
		cliente varchar(255) NOT NULL,
		vendedor varchar(255) NOT NULL,
		valor numeric(12,2) NOT NULL,
		data {timestamp} NOT NULL,
		observacoes text NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS {schema}.itens_venda (
		id {uuid} PRIMARY KEY,
		venda_id {uuid} NOT NULL{sale_fk},
		produto_id {uuid},
		servico_id {uuid},
		quantidade integer NOT NULL CHECK (quantidade >= 1),
		preco_unitario numeric(12,2) NOT NULL,
		subtotal numeric(12,2) NOT NULL,
		CHECK ((produto_id IS NULL) <> (servico_id IS NULL))
	)`,
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx, attachDir: r.attachDir})
	})
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return e.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return e.ErrDuplicate
	}
	return err
}
