package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken token mal firmado, expirado, de otro emisor o sin empresa.
var ErrInvalidToken = errors.New("jwt: token inválido")

// Identity quién opera: usuario, empresa (tenant) y rol.
type Identity struct {
	UserID    string
	CompanyID string
	Role      string // "admin" | "facturacion" | "consulta"
}

// Claims el usuario viaja en sub; la empresa y el rol en claims propios.
type Claims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"company_id"`
	Role      string `json:"role,omitempty"`
}

// Manager firma y valida tokens HS256 de un emisor.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewManager exige secreto; ttl es la vigencia de los tokens emitidos.
func NewManager(secret, issuer string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	return &Manager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Generate emite un token para id. Usuario y empresa son obligatorios.
func (m *Manager) Generate(id Identity) (string, error) {
	if id.UserID == "" || id.CompanyID == "" {
		return "", fmt.Errorf("jwt: usuario y empresa son obligatorios")
	}
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		CompanyID: id.CompanyID,
		Role:      id.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse valida firma, algoritmo, emisor y expiración y devuelve la identidad.
func (m *Manager) Parse(tokenString string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" || claims.CompanyID == "" {
		return Identity{}, fmt.Errorf("%w: claims incompletos", ErrInvalidToken)
	}
	return Identity{UserID: claims.Subject, CompanyID: claims.CompanyID, Role: claims.Role}, nil
}
