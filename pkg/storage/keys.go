package storage

import "strings"

// Store keys. Each key has exactly one record type, owned by the package
// noted beside it.
const (
	KeyStorageStructure = "storageStructure"  // Structure
	KeyCurrentSpreads   = "currentSpreads"    // []snapshot.Game
	KeyLastPicks        = "lastPicks"         // selection.Set
	KeyPicksHistory     = "picksHistory"      // selection.History
	KeyPlayerBookmarks  = "playerBookmarks"   // []string
	KeyUserID           = "userId"            // string
	KeyRecentUserIDs    = "recentUserIds"     // []string
	KeyAutoFillUserID   = "autoFillUserId"    // bool
	KeyTeamAliases      = "pses_team_aliases" // teams.Cache
	KeyTimeZone         = "timeZone"          // string (zone label)
)

// GenerateKey joins parts into a namespaced key.
func GenerateKey(parts ...string) string {
	return strings.Join(parts, "_")
}
