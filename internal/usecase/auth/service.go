package auth

import (
	"context"
	"strings"

	domoperator "example.com/map-storefront/internal/domain/operator"
)

type PasswordComparer interface {
	Compare(hash string, password string) error
}

type Claims struct {
	RoleCode domoperator.RoleCode
	Email    string
	Name     string
}

type TokenService interface {
	GenerateToken(op *domoperator.Operator) (string, error)
	ParseToken(token string) (*Claims, error)
}

type Service struct {
	operators domoperator.Repository
	checker   PasswordComparer
	tokens    TokenService
}

func NewService(
	operators domoperator.Repository,
	checker PasswordComparer,
	tokens TokenService,
) *Service {
	return &Service{
		operators: operators,
		checker:   checker,
		tokens:    tokens,
	}
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	Token    string
	Operator *domoperator.Operator
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" {
		return nil, domoperator.ErrInvalidCredential
	}

	op, err := s.operators.GetByEmail(ctx, email)
	if err != nil {
		return nil, domoperator.ErrUnauthorized
	}

	if err := s.checker.Compare(op.PasswordHash, in.Password); err != nil {
		return nil, domoperator.ErrUnauthorized
	}

	token, err := s.tokens.GenerateToken(op)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:    token,
		Operator: op,
	}, nil
}

// StaticRepository serves the operators configured at startup. There is no
// operator table; the reconciliation surface is used by a handful of staff.
type StaticRepository struct {
	byEmail map[string]*domoperator.Operator
}

func NewStaticRepository(ops ...domoperator.Operator) *StaticRepository {
	r := &StaticRepository{byEmail: make(map[string]*domoperator.Operator, len(ops))}
	for _, op := range ops {
		if op.Email == "" || op.PasswordHash == "" {
			continue
		}
		op.Email = strings.TrimSpace(strings.ToLower(op.Email))
		r.byEmail[op.Email] = &op
	}
	return r
}

func (r *StaticRepository) GetByEmail(ctx context.Context, email string) (*domoperator.Operator, error) {
	op, ok := r.byEmail[email]
	if !ok {
		return nil, domoperator.ErrOperatorNotFound
	}
	cloned := *op
	return &cloned, nil
}
