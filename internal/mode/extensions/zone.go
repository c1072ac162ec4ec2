package extensions

import "fmt"

// Zone ID format for extensions mode:
// - Available rows: avail:{visibleIndex}
// - Installed rows: inst:{visibleIndex}
const (
	zoneAvailablePrefix = "avail:"
	zoneInstalledPrefix = "inst:"
)

// makeAvailableZoneID creates a zone ID for an available-pane row.
func makeAvailableZoneID(index int) string {
	return fmt.Sprintf("%s%d", zoneAvailablePrefix, index)
}

// makeInstalledZoneID creates a zone ID for an installed-pane row.
func makeInstalledZoneID(index int) string {
	return fmt.Sprintf("%s%d", zoneInstalledPrefix, index)
}
