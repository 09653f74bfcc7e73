// Package policy holds retention knobs that compliance reviews, not code
// reviews, decide.
package policy

import "time"

// FetchCacheTTL bounds how long a raw registry payload may be served from
// cache. Registry terms of use require reasonably fresh data; keep this short.
const FetchCacheTTL = 5 * time.Minute

// SnapshotRetention is how long raw snapshots must be kept for provenance.
// Snapshots are immutable; deletion below this age is never allowed.
const SnapshotRetention = 10 * 365 * 24 * time.Hour
