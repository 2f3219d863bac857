package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursetrack-api/internal/models"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, user_type, created_at, updated_at`

// UserRepository provides database access for user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindConflictWithTx returns any user whose username or email matches,
// ignoring case. It returns sql.ErrNoRows when neither key is taken.
func (r *UserRepository) FindConflictWithTx(ctx context.Context, tx *sqlx.Tx, username, email string) (*models.User, error) {
	if tx == nil {
		return nil, fmt.Errorf("nil transaction provided")
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($2) ORDER BY created_at LIMIT 1`
	var user models.User
	if err := sqlx.GetContext(ctx, tx, &user, query, username, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find conflicting user: %w", err)
	}
	return &user, nil
}

// CreateWithTx inserts a user inside an existing transaction.
func (r *UserRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, user *models.User) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	return r.insert(ctx, tx, user)
}

func (r *UserRepository) insert(ctx context.Context, exec sqlx.ExtContext, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = strings.ToLower(user.Email)

	const query = `INSERT INTO users (id, username, email, password_hash, first_name, last_name, user_type, created_at, updated_at) VALUES (:id, :username, :email, :password_hash, :first_name, :last_name, :user_type, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit log entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, new_values, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
