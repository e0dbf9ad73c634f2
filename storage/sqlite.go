package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"atclicenses.app/server/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const controllerColumns = `id, full_name, date_of_birth, license_number, eligibility, workplace,
	atco_license_expiry, unit_endorsement_expiry, elp_expiry, med_expiry`

const userColumns = `id, username, password_hash, workplace, admin, created_at`

// SQLiteStorage persists records in a single local SQLite file.
type SQLiteStorage struct {
	db *sqlx.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sqlx.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	drv, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", drv)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *SQLiteStorage) ListControllers(ctx context.Context, workplace string) ([]models.Controller, error) {
	query := `SELECT ` + controllerColumns + ` FROM controllers`
	args := []any{}
	if workplace != "" {
		query += ` WHERE workplace = ?`
		args = append(args, workplace)
	}
	query += ` ORDER BY id`

	controllers := []models.Controller{}
	if err := s.db.SelectContext(ctx, &controllers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list controllers: %w", err)
	}
	return controllers, nil
}

func (s *SQLiteStorage) GetController(ctx context.Context, id int64) (*models.Controller, error) {
	var c models.Controller
	err := s.db.GetContext(ctx, &c, `SELECT `+controllerColumns+` FROM controllers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStorage) FindControllerByLicense(ctx context.Context, licenseNumber string) (*models.Controller, error) {
	var c models.Controller
	err := s.db.GetContext(ctx, &c,
		`SELECT `+controllerColumns+` FROM controllers WHERE license_number = ? ORDER BY id LIMIT 1`,
		licenseNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertController persists exactly the supplied fields. The column
// list comes from the fixed patch schema, never from caller input, and
// all values travel as placeholders.
func (s *SQLiteStorage) InsertController(ctx context.Context, patch *models.ControllerPatch) (int64, error) {
	cols, vals := patch.Columns()
	var query string
	if len(cols) == 0 {
		query = `INSERT INTO controllers DEFAULT VALUES`
	} else {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
		query = fmt.Sprintf(`INSERT INTO controllers (%s) VALUES (%s)`,
			strings.Join(cols, ", "), placeholders)
	}
	res, err := s.db.ExecContext(ctx, query, vals...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert controller: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStorage) UpdateController(ctx context.Context, id int64, patch *models.ControllerPatch) (bool, error) {
	cols, vals := patch.Columns()
	if len(cols) == 0 {
		return false, fmt.Errorf("no fields to update")
	}
	assignments := make([]string, len(cols))
	for i, col := range cols {
		assignments[i] = col + " = ?"
	}
	query := fmt.Sprintf(`UPDATE controllers SET %s WHERE id = ?`, strings.Join(assignments, ", "))
	res, err := s.db.ExecContext(ctx, query, append(vals, id)...)
	if err != nil {
		return false, fmt.Errorf("failed to update controller: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStorage) DeleteController(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM controllers WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete controller: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStorage) DeleteAllControllers(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM controllers`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete controllers: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	// Reset AUTOINCREMENT numbering. sqlite_sequence only exists once a
	// row has been inserted.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'controllers'`); err != nil {
		if !strings.Contains(err.Error(), "no such table") {
			return count, err
		}
	}
	return count, nil
}

func (s *SQLiteStorage) Workplaces(ctx context.Context) ([]string, error) {
	workplaces := []string{}
	err := s.db.SelectContext(ctx, &workplaces,
		`SELECT DISTINCT workplace FROM controllers WHERE workplace != '' ORDER BY workplace`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workplaces: %w", err)
	}
	return workplaces, nil
}

func (s *SQLiteStorage) CreateUser(ctx context.Context, user *models.User) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, workplace, admin) VALUES (?, ?, ?, ?)`,
		user.Username, user.PasswordHash, user.Workplace, user.Admin)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStorage) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLiteStorage) UpdateUserPassword(ctx context.Context, username, passwordHash string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE username = ?`, passwordHash, username)
	if err != nil {
		return false, fmt.Errorf("failed to update password: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStorage) DeleteUser(ctx context.Context, username string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
