// Package handlecache implements the cached signal-handle table:
// hierarchical-path lookup, backed by an arena of metadata records handed
// out to callers as opaque integer tokens — an arena index, never a
// reinterpreted pointer.
package handlecache

import (
	"fmt"
	"strconv"

	"github.com/verilua-run/govpi/internal/vpiabi"
	"github.com/verilua-run/govpi/internal/vpibridge"
)

// MaxBeats is the hard cap on supported signal width in 32-bit beats.
const MaxBeats = 32

// WriteFormat tags the shape of a staged or applied value.
type WriteFormat int

const (
	FormatNone WriteFormat = iota
	FormatInteger
	FormatVector
	FormatHexStr
	FormatDecStr
	FormatOctStr
	FormatBinStr
	FormatScalar
	FormatSuppress
)

// WriteFlag tags the priority class of a staged write.
type WriteFlag int

const (
	FlagNone WriteFlag = iota
	FlagNoDelay
	FlagForce
	FlagRelease
)

// PendingWrite is the at-most-one queued write embedded in every
// SignalHandle. A zero-value PendingWrite (Flag == FlagNone) means no
// write is staged.
type PendingWrite struct {
	Format  WriteFormat
	Flag    WriteFlag
	Integer uint32
	Str     string
	Vector  [MaxBeats]vpiabi.VecVal
	Beats   int // number of Vector slots in use
}

// Token is the opaque handle a script holds; it is an arena index, never a
// reinterpreted pointer.
type Token int

// InvalidToken is never returned by a successful lookup.
const InvalidToken Token = -1

// SignalHandle is the cached per-signal record.
type SignalHandle struct {
	Token     Token
	Path      string
	Sim       vpiabi.Handle
	Width     int
	BeatCount int
	Pending   PendingWrite

	// MergeRefs counts live merged registrations per task, keyed by edge
	// kind, only populated when the edge callback engine's merge
	// optimization is active for this handle. Owned here (not in
	// internal/edgecb) because the reference counts are a property of the
	// signal.
	MergeRefs [3]map[int]int

	cache *Cache // back-reference; never used to transfer ownership
}

// Cache is the write-once-per-key signal handle table. It
// owns every SignalHandle it hands out; callers only ever see a Token.
type Cache struct {
	sim     vpibridge.Simulator
	arena   []*SignalHandle
	byPath  map[string]Token
}

// NewCache constructs an empty cache bound to a transport.
func NewCache(sim vpibridge.Simulator) *Cache {
	return &Cache{sim: sim, byPath: make(map[string]Token)}
}

// Lookup resolves path, inserting a (possibly null) entry on first sight.
// A null simulator handle (width 0) is cached so repeated misses stay
// O(1); callers that require a live signal must use LookupStrict.
func (c *Cache) Lookup(path string) (Token, error) {
	if tok, ok := c.byPath[path]; ok {
		return tok, nil
	}
	simHandle, err := c.sim.HandleByName(path)
	if err != nil {
		return InvalidToken, fmt.Errorf("handlecache: resolving %q: %w", path, err)
	}
	return c.insert(path, simHandle)
}

// LookupStrict resolves path and fails fatally (returns an error naming
// the path) if the simulator has no such object.
func (c *Cache) LookupStrict(path string) (Token, error) {
	tok, err := c.Lookup(path)
	if err != nil {
		return InvalidToken, err
	}
	if c.arena[tok].Sim == 0 {
		return InvalidToken, fmt.Errorf("handlecache: no such signal %q", path)
	}
	return tok, nil
}

// LookupIndexed resolves "{parent}[{i}]" against an already-resolved
// parent token, caching the composed path like any other entry.
func (c *Cache) LookupIndexed(parent Token, i int) (Token, error) {
	ph, err := c.Get(parent)
	if err != nil {
		return InvalidToken, err
	}
	composed := ph.Path + "[" + strconv.Itoa(i) + "]"
	if tok, ok := c.byPath[composed]; ok {
		return tok, nil
	}
	simHandle, err := c.sim.HandleByIndex(ph.Sim, i)
	if err != nil {
		return InvalidToken, fmt.Errorf("handlecache: resolving %q: %w", composed, err)
	}
	return c.insert(composed, simHandle)
}

func (c *Cache) insert(path string, simHandle vpiabi.Handle) (Token, error) {
	width := 0
	if simHandle != 0 {
		w, err := c.sim.GetWidth(simHandle)
		if err != nil {
			return InvalidToken, fmt.Errorf("handlecache: width of %q: %w", path, err)
		}
		width = w
	}
	beats := (width + 31) / 32
	if beats > MaxBeats {
		return InvalidToken, fmt.Errorf("handlecache: signal %q has %d beats, exceeds max %d", path, beats, MaxBeats)
	}
	h := &SignalHandle{
		Token:     Token(len(c.arena)),
		Path:      path,
		Sim:       simHandle,
		Width:     width,
		BeatCount: beats,
		cache:     c,
	}
	c.arena = append(c.arena, h)
	c.byPath[path] = h.Token
	return h.Token, nil
}

// Get dereferences a token. An out-of-range token (one not issued by this
// cache) yields an error naming the token.
func (c *Cache) Get(tok Token) (*SignalHandle, error) {
	if tok < 0 || int(tok) >= len(c.arena) {
		return nil, fmt.Errorf("handlecache: invalid token %d", tok)
	}
	return c.arena[tok], nil
}

// Len reports the number of cached entries, exposed for finalize
// statistics.
func (c *Cache) Len() int { return len(c.arena) }
