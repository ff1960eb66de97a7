package ratelimit

import (
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestNewTracker(t *testing.T) {
	// No commands are issued, so the client never dials.
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	group := PersonalKey()
	tracker := NewTracker(client, "personal:EUW1", group, logger)

	if tracker.Key() != "ladder:rate_limit:last_invoked:personal:EUW1" {
		t.Errorf("Key() = %q", tracker.Key())
	}
	if tracker.Group() != group {
		t.Error("Group() should return the group passed to NewTracker")
	}

	var _ Gate = tracker
}
