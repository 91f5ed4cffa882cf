package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// Scopes carried by service tokens
const (
	ScopeProductsWrite = "products:write"
	ScopeScrape        = "scrape"
)

// TokenClaims represents the claims in a service JWT. Subject names the
// calling service.
type TokenClaims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

// HasScope reports whether the token grants a scope. A token without scopes
// grants all of them.
func (c *TokenClaims) HasScope(scope string) bool {
	if len(c.Scopes) == 0 {
		return true
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
