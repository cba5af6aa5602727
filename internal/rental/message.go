package rental

import (
	"fmt"
	"strings"
	"time"
)

// AlertMessage renders the expiry notice shown to the cashier. The minute
// figure is the configured threshold, not the exact remaining time.
func AlertMessage(client, unit string, threshold time.Duration) string {
	minutes := int64(threshold / time.Minute)
	return fmt.Sprintf("Sewa atas nama \"%s\" di unit \"%s\" akan berakhir dalam %d menit.",
		client, strings.ToUpper(unit), minutes)
}
