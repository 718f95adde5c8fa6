package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMalformed = errors.New("malformed token")

// AccessClaims is what the client needs from the backend's bearer token.
type AccessClaims struct {
	UserID string
	Roles  []string
	jwt.RegisteredClaims
}

// Expired reports whether the token carries an expiry at or before now.
func (c *AccessClaims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// ClaimsFromToken reads claims without verifying the signature. The signing key
// belongs to the backend; the client only uses claims for display and routing.
func ClaimsFromToken(tokenStr string) (*AccessClaims, error) {
	tkn, _, err := jwt.NewParser().ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	mc, ok := tkn.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMalformed
	}

	claims := &AccessClaims{}
	claims.Subject, _ = mc.GetSubject()
	claims.Issuer, _ = mc.GetIssuer()
	claims.ExpiresAt, _ = mc.GetExpirationTime()
	claims.IssuedAt, _ = mc.GetIssuedAt()

	claims.UserID = idClaim(mc, "id", "userId", "user_id")
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	claims.Roles = rolesClaim(mc)
	return claims, nil
}

func idClaim(mc jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		switch v := mc[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func rolesClaim(mc jwt.MapClaims) []string {
	var roles []string
	switch v := mc["roles"].(type) {
	case []any:
		for _, r := range v {
			if s, ok := r.(string); ok && s != "" {
				roles = append(roles, s)
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				roles = append(roles, s)
			}
		}
	}
	if r, ok := mc["role"].(string); ok && r != "" && len(roles) == 0 {
		roles = append(roles, r)
	}
	return roles
}
