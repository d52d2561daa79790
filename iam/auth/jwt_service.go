package auth

import (
	"time"

	"github.com/Abraxas-365/chatflow/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

// JWTService emite tokens de servicio HS256 que autorizan las llamadas
// salientes que el motor hace en nombre de una sesión
type JWTService struct {
	secretKey []byte
	tokenTTL  time.Duration
	issuer    string
}

// NewJWTService crea una nueva instancia del servicio JWT
func NewJWTService(secretKey string, tokenTTL time.Duration, issuer string) *JWTService {
	if tokenTTL == 0 {
		tokenTTL = 5 * time.Minute
	}
	if issuer == "" {
		issuer = "chatflow"
	}

	return &JWTService{
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
		issuer:    issuer,
	}
}

// ServiceClaims claims de un token de servicio
type ServiceClaims struct {
	TenantID  kernel.TenantID  `json:"tenant_id"`
	SessionID kernel.SessionID `json:"session_id"`
	jwt.RegisteredClaims
}

// MintServiceToken genera un token de corta vida atado a la sesión
func (j *JWTService) MintServiceToken(tenantID kernel.TenantID, sessionID kernel.SessionID) (string, error) {
	now := time.Now()

	claims := ServiceClaims{
		TenantID:  tenantID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   sessionID.String(),
			Audience:  []string{"chatflow-outbound"},
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", ErrTokenGenerationFailed().WithDetail("error", err.Error())
	}

	return tokenString, nil
}
