package application

import (
	"encoding/binary"
	"encoding/hex"
	"hash"
	"maps"
	"slices"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/example/fleet-scheduler/internal/calendar"
)

const defaultLayoutCacheSize = 256

// layoutCache keeps recently built calendar layouts keyed by snapshot
// fingerprint. A changed reservation changes the fingerprint, so entries never
// need explicit invalidation.
type layoutCache struct {
	entries *lru.Cache[string, calendar.Layout]
}

func newLayoutCache(size int) *layoutCache {
	if size <= 0 {
		size = defaultLayoutCacheSize
	}
	entries, err := lru.New[string, calendar.Layout](size)
	if err != nil {
		return nil
	}
	return &layoutCache{entries: entries}
}

func (c *layoutCache) Get(key string) (calendar.Layout, bool) {
	if c == nil {
		return calendar.Layout{}, false
	}
	layout, ok := c.entries.Get(key)
	if !ok {
		return calendar.Layout{}, false
	}
	return cloneLayout(layout), true
}

func (c *layoutCache) Store(key string, layout calendar.Layout) {
	if c == nil {
		return
	}
	c.entries.Add(key, cloneLayout(layout))
}

func (c *layoutCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

func cloneLayout(layout calendar.Layout) calendar.Layout {
	out := layout
	out.Window.Cells = slices.Clone(layout.Window.Cells)
	out.Segments = slices.Clone(layout.Segments)
	out.RowLaneCounts = slices.Clone(layout.RowLaneCounts)
	if layout.Lanes != nil {
		out.Lanes = maps.Clone(layout.Lanes)
	}
	return out
}

// snapshotFingerprint hashes everything that can change a rendered calendar:
// the window grid, the visible reservations, and the vehicles they belong to.
func snapshotFingerprint(window calendar.Window, reservations []Reservation, vehicles map[string]Vehicle) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		return ""
	}

	writeString(h, string(window.View))
	writeInt(h, int64(window.RowWidth))
	for _, cell := range window.Cells {
		writeTime(h, cell)
	}
	writeTime(h, window.End)

	ordered := slices.Clone(reservations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for _, r := range ordered {
		writeString(h, r.ID)
		writeString(h, r.VehicleID)
		writeString(h, r.Holder)
		if r.Purpose != nil {
			writeString(h, *r.Purpose)
		}
		writeTime(h, r.Start)
		writeTime(h, r.End)
		writeString(h, string(r.Status))
		writeTime(h, r.UpdatedAt)
	}

	ids := slices.Sorted(maps.Keys(vehicles))
	for _, id := range ids {
		v := vehicles[id]
		writeString(h, v.ID)
		writeString(h, v.Plate)
		writeString(h, string(v.Status))
		writeTime(h, v.UpdatedAt)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeString(h hash.Hash, s string) {
	writeInt(h, int64(len(s)))
	h.Write([]byte(s))
}

func writeInt(h hash.Hash, n int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}

func writeTime(h hash.Hash, t time.Time) {
	writeInt(h, t.UnixNano())
}
