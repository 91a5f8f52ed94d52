package operator

import (
	"context"
	"regexp"
	"strings"
)

// RoleCode scopes what an operator may do on the reconciliation endpoints.
type RoleCode string

const (
	// RoleAdmin may re-run failed fulfillment.
	RoleAdmin RoleCode = "ADMIN"
	// RoleSupport may only inspect pending orders.
	RoleSupport RoleCode = "SUPPORT"
)

var roleCodeRegexp = regexp.MustCompile(`^[A-Z0-9_]{3,64}$`)

func (c RoleCode) IsValid() bool {
	return roleCodeRegexp.MatchString(string(c))
}

func ParseRoleCode(s string) (RoleCode, error) {
	c := RoleCode(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", ErrInvalidRoleCode
	}
	return c, nil
}

type Operator struct {
	Email        string
	Name         string
	PasswordHash string
	RoleCode     RoleCode
}

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*Operator, error)
}
