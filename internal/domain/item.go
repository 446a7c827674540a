package domain

import "time"

// Item is one ingested record as produced by a feed source.
type Item struct {
	ID          string
	Title       string
	BodyText    string
	SourceName  string
	Permalink   string
	GUID        string
	PublishedAt time.Time
	FetchedAt   time.Time
}

// TopicDraft is an unvalidated grouping returned by the clustering oracle.
// MemberRefs may hold links, 1-based item numbers, duplicates or values that
// were never part of the request.
type TopicDraft struct {
	Title      string
	Summary    string
	MemberRefs []string
}

// Topic is a validated grouping of batch keys.
type Topic struct {
	Title      string
	Summary    string
	MemberKeys []string
	// Fallback marks the catch-all bucket holding items the oracle did not group.
	Fallback bool
}

// DeliveryRecord lists identity keys that were already delivered, oldest first.
type DeliveryRecord struct {
	Keys       []string
	LastSentAt time.Time
}
