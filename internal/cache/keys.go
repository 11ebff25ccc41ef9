package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func ReportKey(ownerID uuid.UUID) string {
	return fmt.Sprintf("insights:report:%s", ownerID)
}

func StatsKey(ownerID uuid.UUID) string {
	return fmt.Sprintf("insights:stats:%s", ownerID)
}

// OwnerKeys lists every derived-data key that goes stale when the owner's
// review history changes.
func OwnerKeys(ownerID uuid.UUID) []string {
	return []string{ReportKey(ownerID), StatsKey(ownerID)}
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
