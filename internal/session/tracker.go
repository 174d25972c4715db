// Package session tracks which users are signed in, either through the
// single current-user slot or through per-window entries.
package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/angelmondragon/mercerie-backend/internal/notifications"
	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
)

const employeeWindowPrefix = "employee-window:"

// unknownEmployeeName is published when an untracked employee window is cleared.
const unknownEmployeeName = "Unknown"

var (
	ErrNilUser        = errors.New("session: user is required")
	ErrEmptyWindowKey = errors.New("session: window key is required")
)

// EmployeeStatusPublisher receives online/offline transitions of employee windows.
type EmployeeStatusPublisher interface {
	PublishEmployeeStatusChanged(ctx context.Context, event notifications.EmployeeStatusChanged)
}

type entry struct {
	user         *models.User
	registeredAt time.Time
}

// Tracker is safe for concurrent use. State lives in memory only.
type Tracker struct {
	mu      sync.RWMutex
	current *entry
	windows map[string]entry

	publisher EmployeeStatusPublisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewTracker builds an empty tracker. publisher may be nil.
func NewTracker(logg *logger.Logger, publisher EmployeeStatusPublisher) *Tracker {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Tracker{
		windows:   make(map[string]entry),
		publisher: publisher,
		logg:      logg,
		now:       time.Now,
	}
}

func (t *Tracker) stamp(user *models.User) entry {
	return entry{user: user, registeredAt: t.now()}
}

func (t *Tracker) SetCurrentUser(user *models.User) error {
	if user == nil {
		return ErrNilUser
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.stamp(user)
	t.current = &e
	return nil
}

func (t *Tracker) ClearCurrentUser() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = nil
}

func (t *Tracker) CurrentUser() *models.User {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return nil
	}
	return t.current.user
}

func (t *Tracker) IsLoggedIn() bool {
	return t.CurrentUser() != nil
}

// CurrentUserID returns uuid.Nil when nobody holds the current slot.
func (t *Tracker) CurrentUserID() uuid.UUID {
	if user := t.CurrentUser(); user != nil {
		return user.ID
	}
	return uuid.Nil
}

// CurrentClient returns the current user when it is a client, otherwise the
// most recently registered client of any window.
func (t *Tracker) CurrentClient() *models.User {
	if user := t.CurrentUser(); user.IsClient() {
		return user
	}
	return t.MostRecentClient()
}

// CurrentEmployee returns the current user when it is staff.
func (t *Tracker) CurrentEmployee() *models.User {
	if user := t.CurrentUser(); user.IsStaff() {
		return user
	}
	return nil
}

func (t *Tracker) SetWindowUser(key string, user *models.User) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyWindowKey
	}
	if user == nil {
		return ErrNilUser
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.windows[key] = t.stamp(user)
	return nil
}

// ClearWindowUser removes the window and reports whether it was tracked.
func (t *Tracker) ClearWindowUser(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.windows[key]
	delete(t.windows, key)
	return ok
}

func (t *Tracker) WindowUser(key string) *models.User {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if e, ok := t.windows[key]; ok {
		return e.user
	}
	return nil
}

func (t *Tracker) HasWindow(key string) bool {
	return t.WindowUser(key) != nil
}

func (t *Tracker) ClientForWindow(key string) *models.User {
	if user := t.WindowUser(key); user.IsClient() {
		return user
	}
	return nil
}

func (t *Tracker) EmployeeForWindow(key string) *models.User {
	if user := t.WindowUser(key); user.IsStaff() {
		return user
	}
	return nil
}

// entries returns every tracked entry, newest registration first. Ties are
// ordered by user id so the result does not depend on map iteration.
func (t *Tracker) entries() []entry {
	t.mu.RLock()
	all := lo.Values(t.windows)
	if t.current != nil {
		all = append(all, *t.current)
	}
	t.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].registeredAt.Equal(all[j].registeredAt) {
			return all[i].registeredAt.After(all[j].registeredAt)
		}
		return all[i].user.ID.String() < all[j].user.ID.String()
	})
	return all
}

// MostRecentClient returns the client registered last across the current
// slot and every window, or nil.
func (t *Tracker) MostRecentClient() *models.User {
	for _, e := range t.entries() {
		if e.user.IsClient() {
			return e.user
		}
	}
	return nil
}

// LoggedInEmployees lists staff users once each, most recent first.
func (t *Tracker) LoggedInEmployees() []*models.User {
	staff := lo.FilterMap(t.entries(), func(e entry, _ int) (*models.User, bool) {
		return e.user, e.user.IsStaff()
	})
	return lo.UniqBy(staff, func(u *models.User) uuid.UUID { return u.ID })
}

func (t *Tracker) IsEmployeeOnline(id uuid.UUID) bool {
	return lo.ContainsBy(t.LoggedInEmployees(), func(u *models.User) bool { return u.ID == id })
}

func (t *Tracker) IsEmployeeOnlineByUsername(username string) bool {
	username = strings.TrimSpace(username)
	if username == "" {
		return false
	}
	return lo.ContainsBy(t.LoggedInEmployees(), func(u *models.User) bool {
		return strings.EqualFold(u.Username, username)
	})
}

// EmployeeWindowKey is the window key an employee session is tracked under.
func EmployeeWindowKey(id uuid.UUID) string {
	return employeeWindowPrefix + id.String()
}

// SetEmployeeWindow tracks the employee under its window key and announces
// it online.
func (t *Tracker) SetEmployeeWindow(ctx context.Context, employee *models.User) (string, error) {
	if employee == nil {
		return "", ErrNilUser
	}
	key := EmployeeWindowKey(employee.ID)
	if err := t.SetWindowUser(key, employee); err != nil {
		return "", err
	}
	t.logg.Info(t.logg.WithFields(ctx, map[string]any{"employee_id": employee.ID.String(), "window_id": key}), "employee online")
	t.publish(ctx, notifications.EmployeeStatusChanged{
		EmployeeID:   employee.ID,
		EmployeeName: employee.Name,
		Online:       true,
	})
	return key, nil
}

// ClearEmployeeWindow drops the employee window, and the current slot when it
// holds the same employee, then announces the employee offline.
func (t *Tracker) ClearEmployeeWindow(ctx context.Context, id uuid.UUID) {
	key := EmployeeWindowKey(id)

	t.mu.Lock()
	name := unknownEmployeeName
	if e, ok := t.windows[key]; ok {
		name = e.user.Name
		delete(t.windows, key)
	}
	if t.current != nil && t.current.user.ID == id && t.current.user.IsStaff() {
		t.current = nil
	}
	t.mu.Unlock()

	t.logg.Info(t.logg.WithFields(ctx, map[string]any{"employee_id": id.String(), "window_id": key}), "employee offline")
	t.publish(ctx, notifications.EmployeeStatusChanged{
		EmployeeID:   id,
		EmployeeName: name,
		Online:       false,
	})
}

func (t *Tracker) publish(ctx context.Context, event notifications.EmployeeStatusChanged) {
	if t.publisher == nil {
		return
	}
	t.publisher.PublishEmployeeStatusChanged(ctx, event)
}
