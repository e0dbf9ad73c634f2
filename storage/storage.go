package storage

import (
	"context"
	"errors"

	"atclicenses.app/server/models"
)

var (
	// ErrNotFound marks a lookup for an identifier that has no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate marks a uniqueness violation, e.g. a taken username.
	ErrDuplicate = errors.New("already exists")
)

// Storage is the persistent store behind the API. Controller rows keep
// insertion order. License numbers are NOT unique; lookups by license
// number return the first match.
type Storage interface {
	ListControllers(ctx context.Context, workplace string) ([]models.Controller, error)
	GetController(ctx context.Context, id int64) (*models.Controller, error)
	FindControllerByLicense(ctx context.Context, licenseNumber string) (*models.Controller, error)
	InsertController(ctx context.Context, patch *models.ControllerPatch) (int64, error)
	UpdateController(ctx context.Context, id int64, patch *models.ControllerPatch) (bool, error)
	DeleteController(ctx context.Context, id int64) (bool, error)
	// DeleteAllControllers removes every row and resets identifier
	// numbering, so the next insert gets id 1.
	DeleteAllControllers(ctx context.Context) (int64, error)
	Workplaces(ctx context.Context) ([]string, error)

	CreateUser(ctx context.Context, user *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, username, passwordHash string) (bool, error)
	DeleteUser(ctx context.Context, username string) (bool, error)

	Close() error
}
