package models

// CacheLookup is the outcome of a cache read.
// CacheLookup 表示一次缓存读取的结果。
type CacheLookup int

const (
	// CacheMiss means unknown: the key is missing or could not be read. Never a grant.
	CacheMiss CacheLookup = iota
	// CacheHit means a payload was returned.
	CacheHit
	// CacheAbsent means the authoritative source confirmed the record does not exist.
	CacheAbsent
)

// String returns the metric label of l.
func (l CacheLookup) String() string {
	switch l {
	case CacheHit:
		return "hit"
	case CacheAbsent:
		return "absent"
	default:
		return "miss"
	}
}
