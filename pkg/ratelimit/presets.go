package ratelimit

import "fmt"

// Riot API key types.
const (
	KeyTypeDevelopment = "development"
	KeyTypePersonal    = "personal"
	KeyTypeProduction  = "production"
)

// DevelopmentKey returns the limits of a Riot development key:
// 20 requests per second and 100 requests per two minutes.
func DevelopmentKey() *Group {
	return NewGroup(
		MustLimiter(20, "1seconds"),
		MustLimiter(100, "2minutes"),
	)
}

// PersonalKey returns the limits of a Riot personal key. They currently match
// the development key.
func PersonalKey() *Group {
	return NewGroup(
		MustLimiter(20, "1seconds"),
		MustLimiter(100, "2minutes"),
	)
}

// ProductionKey returns the limits of a Riot production key:
// 500 requests per 10 seconds and 30000 requests per 10 minutes.
func ProductionKey() *Group {
	return NewGroup(
		MustLimiter(500, "10seconds"),
		MustLimiter(30_000, "10minutes"),
	)
}

// ForKeyType returns a fresh group for the named key type.
// Each call returns independent limiters.
func ForKeyType(keyType string) (*Group, error) {
	switch keyType {
	case KeyTypeDevelopment:
		return DevelopmentKey(), nil
	case KeyTypePersonal:
		return PersonalKey(), nil
	case KeyTypeProduction:
		return ProductionKey(), nil
	default:
		return nil, fmt.Errorf("unknown key type %q", keyType)
	}
}
