// Package models holds the demo's read-only data sources. The fixtures are
// built once at start-up and handed to controllers through the store interfaces.
package models

import (
	"log/slog"
	"slices"
)

// User is a member of the demo company
type User struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

// UserStore is a read-only source of users
type UserStore interface {
	List() []User
	GetByID(id int) (User, bool)
	ByDepartment(department string) []User
}

// DefaultUsers returns the fixture users.
func DefaultUsers() []User {
	return []User{
		{ID: 1, Name: "田中太郎", Email: "tanaka@example.com", Role: "エンジニア", Department: "開発部"},
		{ID: 2, Name: "鈴木花子", Email: "suzuki@example.com", Role: "デザイナー", Department: "デザイン部"},
		{ID: 3, Name: "佐藤次郎", Email: "sato@example.com", Role: "マネージャー", Department: "営業部"},
		{ID: 4, Name: "高橋美咲", Email: "takahashi@example.com", Role: "エンジニア", Department: "開発部"},
	}
}

// MemoryUserStore serves users from an immutable in-memory slice
type MemoryUserStore struct {
	users  []User
	logger *slog.Logger
}

// NewUserStore copies users into a new store. A nil logger disables query logs.
func NewUserStore(users []User, logger *slog.Logger) *MemoryUserStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MemoryUserStore{users: slices.Clone(users), logger: logger}
}

// List returns every user. The slice is a copy.
func (s *MemoryUserStore) List() []User {
	s.logger.Debug("Model query", "model", "user", "op", "list")
	return slices.Clone(s.users)
}

// GetByID returns the user with the given ID
func (s *MemoryUserStore) GetByID(id int) (User, bool) {
	s.logger.Debug("Model query", "model", "user", "op", "get", "id", id)
	i := slices.IndexFunc(s.users, func(u User) bool { return u.ID == id })
	if i < 0 {
		return User{}, false
	}
	return s.users[i], true
}

// ByDepartment returns the users in a department, in fixture order
func (s *MemoryUserStore) ByDepartment(department string) []User {
	s.logger.Debug("Model query", "model", "user", "op", "by_department", "department", department)
	out := []User{}
	for _, u := range s.users {
		if u.Department == department {
			out = append(out, u)
		}
	}
	return out
}
