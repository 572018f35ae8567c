package bloom

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"filesearch/internal/store"
)

// sidecarMagic identifies the on-disk bloom filter format; sidecarVersion
// is bumped whenever the encoding changes, forcing a rebuild on mismatch.
const (
	sidecarMagic   uint32 = 0x424c4d31 // "BLM1"
	sidecarVersion uint32 = 1
)

// Filter is a counting-free bloom filter over indexed paths. It is never
// authoritative: a positive from MightContain must be confirmed with
// Store.Get before being trusted.
type Filter struct {
	mu       sync.RWMutex
	bf       *bloom.BloomFilter
	capacity uint
	fpRate   float64
}

// New creates an empty filter sized for capacity items at the given
// target false-positive rate.
func New(capacity uint, fpRate float64) *Filter {
	return &Filter{
		bf:       bloom.NewWithEstimates(capacity, fpRate),
		capacity: capacity,
		fpRate:   fpRate,
	}
}

// Insert records path as present.
func (f *Filter) Insert(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bf.AddString(path)
}

// MightContain reports whether path may be present. False positives are
// possible; false negatives are not.
func (f *Filter) MightContain(path string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.bf.TestString(path)
}

// Reset discards all inserted paths in place, so callers holding a pointer
// to f (e.g. the Indexer) observe the cleared filter without needing to be
// re-wired to a new *Filter (used by Engine.ClearIndex).
func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bf = bloom.NewWithEstimates(f.capacity, f.fpRate)
}

// Load reads a sidecar file written by Save. It returns an error if the
// file is missing, truncated, written by an incompatible version, or sized
// for a different capacity or false-positive rate — callers should treat
// any error here as "rebuild from Store", not as fatal.
func Load(sidecarPath string, capacity uint, fpRate float64) (*Filter, error) {
	file, err := os.Open(sidecarPath)
	if err != nil {
		return nil, fmt.Errorf("open sidecar: %w", err)
	}
	defer file.Close()

	r := bufio.NewReader(file)

	var magic, version uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("read sidecar magic: %w", err)
	}
	if magic != sidecarMagic {
		return nil, fmt.Errorf("sidecar magic mismatch: got %x want %x", magic, sidecarMagic)
	}
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("read sidecar version: %w", err)
	}
	if version != sidecarVersion {
		return nil, fmt.Errorf("sidecar version %d is stale, want %d", version, sidecarVersion)
	}

	var storedCapacity uint64
	var storedFPRate float64
	if err := binary.Read(r, binary.BigEndian, &storedCapacity); err != nil {
		return nil, fmt.Errorf("read sidecar capacity: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &storedFPRate); err != nil {
		return nil, fmt.Errorf("read sidecar fp rate: %w", err)
	}
	if storedCapacity != uint64(capacity) || storedFPRate != fpRate {
		return nil, fmt.Errorf("sidecar sized for (%d, %g), want (%d, %g)", storedCapacity, storedFPRate, capacity, fpRate)
	}

	bf := &bloom.BloomFilter{}
	if _, err := bf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read sidecar bitset: %w", err)
	}

	return &Filter{bf: bf, capacity: capacity, fpRate: fpRate}, nil
}

// Save writes the filter's sidecar file, truncating any previous contents.
func (f *Filter) Save(sidecarPath string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	file, err := os.Create(sidecarPath)
	if err != nil {
		return fmt.Errorf("create sidecar: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := binary.Write(w, binary.BigEndian, sidecarMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, sidecarVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint64(f.capacity)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, f.fpRate); err != nil {
		return err
	}
	if _, err := f.bf.WriteTo(w); err != nil {
		return fmt.Errorf("write sidecar bitset: %w", err)
	}
	return w.Flush()
}

// RebuildFromStore repopulates the filter by scanning every record
// currently in st, used when the sidecar file is missing or stale.
func RebuildFromStore(ctx context.Context, st store.Store, capacity uint, fpRate float64) (*Filter, error) {
	f := New(capacity, fpRate)
	for rec, err := range st.QueryCandidates(ctx, store.PredicateHint{}) {
		if err != nil {
			return nil, fmt.Errorf("rebuild bloom filter: %w", err)
		}
		f.Insert(rec.Path)
	}
	return f, nil
}
