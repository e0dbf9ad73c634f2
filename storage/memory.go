package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"atclicenses.app/server/models"
)

// MemoryStorage keeps everything in process memory. Used by tests.
type MemoryStorage struct {
	mu          sync.Mutex
	controllers []models.Controller
	nextID      int64
	users       map[string]models.User
	nextUserID  int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		nextID:     1,
		users:      make(map[string]models.User),
		nextUserID: 1,
	}
}

func (m *MemoryStorage) ListControllers(ctx context.Context, workplace string) ([]models.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := []models.Controller{}
	for _, c := range m.controllers {
		if workplace == "" || c.Workplace == workplace {
			list = append(list, c)
		}
	}
	return list, nil
}

func (m *MemoryStorage) GetController(ctx context.Context, id int64) (*models.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.controllers {
		if c.ID == id {
			copied := c
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) FindControllerByLicense(ctx context.Context, licenseNumber string) (*models.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.controllers {
		if c.LicenseNumber == licenseNumber {
			copied := c
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) InsertController(ctx context.Context, patch *models.ControllerPatch) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := models.Controller{ID: m.nextID}
	patch.Apply(&c)
	m.nextID++
	m.controllers = append(m.controllers, c)
	return c.ID, nil
}

func (m *MemoryStorage) UpdateController(ctx context.Context, id int64, patch *models.ControllerPatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.controllers {
		if m.controllers[i].ID == id {
			patch.Apply(&m.controllers[i])
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStorage) DeleteController(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.controllers {
		if m.controllers[i].ID == id {
			m.controllers = append(m.controllers[:i], m.controllers[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStorage) DeleteAllControllers(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := int64(len(m.controllers))
	m.controllers = nil
	m.nextID = 1
	return count, nil
}

func (m *MemoryStorage) Workplaces(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := map[string]bool{}
	workplaces := []string{}
	for _, c := range m.controllers {
		if c.Workplace != "" && !seen[c.Workplace] {
			seen[c.Workplace] = true
			workplaces = append(workplaces, c.Workplace)
		}
	}
	sort.Strings(workplaces)
	return workplaces, nil
}

func (m *MemoryStorage) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.Username]; exists {
		return ErrDuplicate
	}
	user.ID = m.nextUserID
	m.nextUserID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	m.users[user.Username] = *user
	return nil
}

func (m *MemoryStorage) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, exists := m.users[username]
	if !exists {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStorage) UpdateUserPassword(ctx context.Context, username, passwordHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, exists := m.users[username]
	if !exists {
		return false, nil
	}
	u.PasswordHash = passwordHash
	m.users[username] = u
	return true, nil
}

func (m *MemoryStorage) DeleteUser(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[username]; !exists {
		return false, nil
	}
	delete(m.users, username)
	return true, nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
