// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package idgen generates the two identifiers the orchestration core hands
// out: monotonic, sortable execution IDs for RunRecords, and slugged,
// collision-salted project IDs.
package idgen

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewExecutionID returns a monotonic, lexicographically sortable, unique
// execution identifier (spec: "ULID-like monotonic, unique").
func NewExecutionID() string {
	return ulid.Make().String()
}

var (
	slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	slugTrim     = regexp.MustCompile(`^-+|-+$`)
)

// MaxSlugLen caps the slug portion of a ProjectId per spec §3.
const MaxSlugLen = 50

// Slugify renders topic as a lowercased, hyphen-separated, length-capped slug.
func Slugify(topic string) string {
	s := strings.ToLower(strings.TrimSpace(topic))
	s = slugNonAlnum.ReplaceAllString(s, "-")
	s = slugTrim.ReplaceAllString(s, "")
	if s == "" {
		s = "untitled"
	}
	if len(s) > MaxSlugLen {
		s = strings.TrimRight(s[:MaxSlugLen], "-")
	}
	return s
}

// allocator tracks, per (topic, second) pair, how many ProjectIds have
// already been minted this process lifetime, so repeat calls in the same
// second are idempotent but distinct topics that collide on the timestamp
// are monotonically salted rather than silently aliased (spec §9 Open
// Question, decided in SPEC_FULL.md).
type allocator struct {
	mu    sync.Mutex
	seen  map[string]string // "topic|second" -> projectId
	slots map[string]int    // "second|slug" -> next salt index
}

var shared = &allocator{
	seen:  make(map[string]string),
	slots: make(map[string]int),
}

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

// NewProjectID allocates a ProjectId of the form
// YYYY-MM-DD_HH-MM-SS_<slug>, idempotent per (topic, second) and
// monotonically salted on slug collision with a different topic.
func NewProjectID(topic string, now Clock) string {
	if now == nil {
		now = time.Now
	}
	ts := now().UTC()
	secondKey := ts.Format("2006-01-02_15-04-05")
	slug := Slugify(topic)

	shared.mu.Lock()
	defer shared.mu.Unlock()

	topicKey := secondKey + "|" + topic
	if existing, ok := shared.seen[topicKey]; ok {
		return existing
	}

	slotKey := secondKey + "|" + slug
	idx := shared.slots[slotKey]
	shared.slots[slotKey] = idx + 1

	id := secondKey + "_" + slug
	if idx > 0 {
		id = fmt.Sprintf("%s_%s-%d", secondKey, slug, idx+1)
	}
	shared.seen[topicKey] = id
	return id
}

// RandomSuffix returns a short, URL-safe random suffix, for callers that
// need an extra disambiguator outside of the (topic, second) allocator.
func RandomSuffix(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failures are effectively unrecoverable; fall back to a
		// fixed, clearly-non-random suffix rather than panicking.
		for i := range b {
			b[i] = alphabet[0]
		}
		return string(b)
	}
	for i, v := range buf {
		b[i] = alphabet[int(v)%len(alphabet)]
	}
	return string(b)
}
