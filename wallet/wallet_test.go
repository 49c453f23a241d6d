package wallet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscription_IsActive(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	cases := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{"active, no expiry", Subscription{Status: SubscriptionActive}, true},
		{"active, not yet expired", Subscription{Status: SubscriptionActive, ExpiresAt: &future}, true},
		{"active, expired", Subscription{Status: SubscriptionActive, ExpiresAt: &past}, false},
		{"paused", Subscription{Status: SubscriptionPaused}, false},
		{"revoked", Subscription{Status: SubscriptionRevoked}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.sub.IsActive())
		})
	}
}
