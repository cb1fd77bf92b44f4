package gen

import (
	"github.com/golang-jwt/jwt"

	"github.com/mark3labs/swagger2pytest/internal/ir"
)

// Scenario is one credential-tampering case applied to a secured operation.
// A nil Token means the request carries no credential at all.
type Scenario struct {
	Name  string
	Token *string
}

// The expired credential is minted from fixed claims and a fixed key so
// the literal embedded in generated files never varies between runs.
const (
	expiredTokenKey      = "swagger2pytest-static-signing-key"
	expiredTokenIssuedAt = 1704067200 // 2024-01-01T00:00:00Z
	expiredTokenExpires  = 1704070800
)

// SecurityScenarios lists the credential cases for op. Operations whose
// effective security requirement list is empty get none.
func SecurityScenarios(op ir.Operation) []Scenario {
	if len(op.Security) == 0 {
		return nil
	}
	invalid := "INVALID_TOKEN_123"
	expired := ExpiredToken()
	return []Scenario{
		{Name: "security_no_token"},
		{Name: "security_invalid_token", Token: &invalid},
		{Name: "security_expired_token", Token: &expired},
	}
}

// ExpiredToken mints the deterministic HS256 credential used by the
// expired-token scenario. Unlike a bare placeholder string, the result is
// a structurally valid JWT whose expiry is long past, so servers that
// actually decode the token reject it for the right reason.
func ExpiredToken() string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Subject:   "swagger2pytest",
		IssuedAt:  expiredTokenIssuedAt,
		ExpiresAt: expiredTokenExpires,
	})
	signed, err := token.SignedString([]byte(expiredTokenKey))
	if err != nil {
		// HMAC signing of static claims does not fail.
		return "EXPIRED_TOKEN_MOCK"
	}
	return signed
}
