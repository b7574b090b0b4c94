package domain

import (
	"fmt"
	"github.com/google/uuid"
	"time"
)

const (
	FALSE dbBool = iota
	TRUE
)

type dbBool uint

const (
	RoleStudent = "student"
	RoleMentor  = "mentor"
	RoleAdmin   = "admin"
)

type Account struct {
	Id             uuid.UUID
	Username       string
	Publickey      string
	FullName       string
	Department     string
	Role           string
	Bio            string
	AvatarURL      string
	IsPrivate      bool
	CreatedAt      time.Time
	FirstTimeLogin dbBool
}

func (acc *Account) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tUsername: %s \n\tRole: %s \n\tCREATED_AT: %s)", acc.Id, acc.Username, acc.Role, acc.CreatedAt)
}

// DisplayName prefers the profile full name over the login name.
func (acc *Account) DisplayName() string {
	if acc.FullName != "" {
		return acc.FullName
	}
	return acc.Username
}
