// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/Kusanagi/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CustomerRepository defines operations for customers
type CustomerRepository interface {
	Repository[models.Customer, models.CustomerFilter]
	ByEmail(ctx context.Context, email string) (*models.Customer, error)
	ByUUID(ctx context.Context, uuid string) (*models.Customer, error)
	UpdatePassword(ctx context.Context, customerID uint, passwordHash string) error
	UpdateLastLogin(ctx context.Context, customerID uint, at time.Time) error
}

// CustomerSessionRepository defines operations for customer sessions
type CustomerSessionRepository interface {
	Repository[models.CustomerSession, models.CustomerSessionFilter]
	BySessionToken(ctx context.Context, token string) (*models.CustomerSession, error)
	ByRefreshToken(ctx context.Context, token string) (*models.CustomerSession, error)
	ListActiveSessionsByCustomer(ctx context.Context, customerID uint) ([]*models.CustomerSession, error)
	ExpireSession(ctx context.Context, sessionID uint) error
	ExpireAllCustomerSessions(ctx context.Context, customerID uint) error
	CleanupExpiredSessions(ctx context.Context) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
}

// ShortLinkRepository defines operations for persistent short links
type ShortLinkRepository interface {
	Repository[models.ShortLink, models.ShortLinkFilter]
	ByCode(ctx context.Context, code string) (*models.ShortLink, error)
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.ShortLink, error)
	CountByCustomer(ctx context.Context, customerID uint) (int64, error)
	UpdateDestination(ctx context.Context, id uint, destination string) error
	UpdateCode(ctx context.Context, id uint, code string) error
	IncrementClicks(ctx context.Context, id uint) error
	DeleteWithClicks(ctx context.Context, id uint) error
}

// ShortLinkClickRepository defines operations for click events
type ShortLinkClickRepository interface {
	Repository[models.ShortLinkClick, models.ShortLinkClickFilter]
	ListByShortLink(ctx context.Context, shortLinkID uint, limit, offset int) ([]*models.ShortLinkClick, error)
	CountSince(ctx context.Context, shortLinkID uint, since time.Time) (int64, error)
	TopValues(ctx context.Context, shortLinkID uint, column string, limit int) ([]ValueCount, error)
	HourlyHistogram(ctx context.Context, shortLinkID uint) ([]HourCount, error)
}

// ValueCount is one row of a grouped click aggregation
type ValueCount struct {
	Value string
	Count int64
}

// HourCount is one bucket of the hourly click histogram
type HourCount struct {
	Hour  int
	Count int64
}
