package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domoperator "example.com/map-storefront/internal/domain/operator"
	authuc "example.com/map-storefront/internal/usecase/auth"
)

type JWTService struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

func NewJWTService(secret string, expiration time.Duration) *JWTService {
	return &JWTService{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
}

type jwtClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

func (s *JWTService) GenerateToken(op *domoperator.Operator) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := s.now()
	claims := jwtClaims{
		Role:  string(op.RoleCode),
		Email: op.Email,
		Name:  op.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   op.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) ParseToken(token string) (*authuc.Claims, error) {
	if len(s.secret) == 0 {
		return nil, domoperator.ErrUnauthorized
	}
	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return nil, domoperator.ErrUnauthorized
	}

	role, err := domoperator.ParseRoleCode(claims.Role)
	if err != nil {
		return nil, err
	}

	return &authuc.Claims{
		RoleCode: role,
		Email:    claims.Email,
		Name:     claims.Name,
	}, nil
}
