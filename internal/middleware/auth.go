package middleware

import (
	"net/http"
	"strings"
	"time"

	"requisiciones/internal/apierror"
	"requisiciones/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimsKey = "claims"
)

// JWTClaims are the custom claims embedded in every access token.
// Tokens are issued by the institutional identity service.
type JWTClaims struct {
	UserID uint   `json:"user_id"`
	Nombre string `json:"nombre,omitempty"`
	Rol    string `json:"rol"`
	UREID  *uint  `json:"ure_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the explicit actor passed to every service call.
func (c *JWTClaims) Actor() workflow.Actor {
	return workflow.Actor{ID: c.UserID, Rol: workflow.Rol(c.Rol), UREID: c.UREID}
}

// JWTAuth validates the Bearer token on every protected route.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token invalido o expirado"))
			return
		}
		if claims.UserID == 0 || !workflow.Rol(claims.Rol).Valido() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token sin usuario o con rol desconocido"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
// It is a coarse gate; ownership and URE scoping are enforced by the services.
func RequireRole(roles ...workflow.Rol) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[string(r)] = true
	}
	return func(c *gin.Context) {
		claims, ok := c.MustGet(ClaimsKey).(*JWTClaims)
		if !ok || !allowed[claims.Rol] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	claims, _ := c.MustGet(ClaimsKey).(*JWTClaims)
	return claims
}

// GetActor returns the authenticated actor. Must run behind JWTAuth.
func GetActor(c *gin.Context) workflow.Actor {
	return GetClaims(c).Actor()
}

// FirmarToken signs an HS256 token for the given actor. Used by cmd/devtoken
// and tests; production tokens come from the identity service.
func FirmarToken(secret string, actor workflow.Actor, nombre string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID: actor.ID,
		Nombre: nombre,
		Rol:    string(actor.Rol),
		UREID:  actor.UREID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
