package muindex

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"

	"github.com/relab/bbhash"

	"github.com/eunmann/ssurgo-agg-db/pkg/fileutil"
)

// Index file names within an index directory.
const (
	mphFileName     = "mukey_mph.bin"
	fpFileName      = "mukey_fp.u64"
	blobFileName    = "mukey_blob.bin"
	offsetsFileName = "mukey_offsets.u64"
)

// Builder accumulates map unit keys and builds the on-disk index.
// Keys must be added in artifact row order: the position the MPHF resolves
// to is the key's index in Add order.
type Builder struct {
	keys []string
	seen map[string]struct{}
}

// NewBuilder creates a new index builder.
func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]struct{})}
}

// Add appends a map unit key. Adding the same key twice is an error: MPHF
// construction requires distinct keys.
func (b *Builder) Add(mukey string) error {
	if _, dup := b.seen[mukey]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, mukey)
	}
	b.seen[mukey] = struct{}{}
	b.keys = append(b.keys, mukey)
	return nil
}

// Count returns the number of keys added.
func (b *Builder) Count() int {
	return len(b.keys)
}

// Build constructs the MPHF and writes the index files to outDir. The
// position stored for each key is its Add order, so lookups resolve to the
// artifact row the key was exported at.
func (b *Builder) Build(outDir string) error {
	if len(b.keys) == 0 {
		return b.writeEmpty(outDir)
	}

	// Hash keys to uint64 for bbhash
	hashes := make([]uint64, len(b.keys))
	for i, k := range b.keys {
		hashes[i] = hashKey(k)
	}

	// gamma=2.0 is a good space/time tradeoff
	mph, err := bbhash.New(hashes, bbhash.Gamma(2.0))
	if err != nil {
		return fmt.Errorf("build MPHF: %w", err)
	}

	mphPath := filepath.Join(outDir, mphFileName)
	data, err := mph.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal MPHF: %w", err)
	}
	err = fileutil.WriteTmpThenMove(outDir, mphPath, func(tmpPath string) error {
		return os.WriteFile(tmpPath, data, 0644)
	})
	if err != nil {
		return fmt.Errorf("write MPHF: %w", err)
	}

	// bbhash returns 1-indexed positions. Arrange the fingerprint array
	// and key blob so element[pos] describes the key that hashes to pos,
	// and record each key's Add-order row position.
	fingerprints := make([]uint64, len(b.keys))
	rows := make([]uint64, len(b.keys))
	ordered := make([]string, len(b.keys))

	for row, key := range b.keys {
		hashVal := mph.Find(hashKey(key))
		if hashVal == 0 {
			return fmt.Errorf("MPHF lookup failed for %q", key)
		}
		pos := hashVal - 1
		fingerprints[pos] = fingerprint(key)
		rows[pos] = uint64(row)
		ordered[pos] = key
	}

	if err := writeU64Array(filepath.Join(outDir, fpFileName), fingerprints); err != nil {
		return fmt.Errorf("write fingerprints: %w", err)
	}
	if err := writeU64Array(rowsPath(outDir), rows); err != nil {
		return fmt.Errorf("write row positions: %w", err)
	}

	if err := writeKeyBlob(outDir, ordered); err != nil {
		return fmt.Errorf("write key blob: %w", err)
	}

	return nil
}

func rowsPath(outDir string) string {
	return filepath.Join(outDir, "mukey_rows.u64")
}

func (b *Builder) writeEmpty(outDir string) error {
	if err := os.WriteFile(filepath.Join(outDir, mphFileName), nil, 0644); err != nil {
		return fmt.Errorf("write empty mph: %w", err)
	}
	if err := writeU64Array(filepath.Join(outDir, fpFileName), nil); err != nil {
		return err
	}
	return writeU64Array(rowsPath(outDir), nil)
}

func writeU64Array(path string, vals []uint64) error {
	w, err := NewArrayWriter(path, 8)
	if err != nil {
		return err
	}
	for _, v := range vals {
		if err := w.WriteU64(v); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

func writeKeyBlob(outDir string, keys []string) error {
	w, err := NewBlobWriter(
		filepath.Join(outDir, blobFileName),
		filepath.Join(outDir, offsetsFileName),
	)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := w.WriteString(k); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// Index provides read access to a built map unit key index.
type Index struct {
	mph          *bbhash.BBHash2
	fingerprints *ArrayReader
	rows         *ArrayReader
	keyBlob      *BlobReader
	count        uint64
}

// Open opens an index from the given directory.
func Open(dir string) (*Index, error) {
	mphPath := filepath.Join(dir, mphFileName)

	info, err := os.Stat(mphPath)
	if err != nil {
		return nil, fmt.Errorf("stat mph file: %w", err)
	}
	if info.Size() == 0 {
		return &Index{}, nil
	}

	mphData, err := os.ReadFile(mphPath)
	if err != nil {
		return nil, fmt.Errorf("read mph file: %w", err)
	}

	mph := &bbhash.BBHash2{}
	if err := mph.UnmarshalBinary(mphData); err != nil {
		return nil, fmt.Errorf("unmarshal MPHF: %w", err)
	}

	fingerprints, err := OpenArray(filepath.Join(dir, fpFileName))
	if err != nil {
		return nil, fmt.Errorf("open fingerprints: %w", err)
	}

	rows, err := OpenArray(rowsPath(dir))
	if err != nil {
		fingerprints.Close()
		return nil, fmt.Errorf("open row positions: %w", err)
	}

	// Key blob is optional; without it reverse lookup and Verify fail.
	var keyBlob *BlobReader
	blobPath := filepath.Join(dir, blobFileName)
	if _, err := os.Stat(blobPath); err == nil {
		keyBlob, err = OpenBlob(blobPath, filepath.Join(dir, offsetsFileName))
		if err != nil {
			fingerprints.Close()
			rows.Close()
			return nil, fmt.Errorf("open key blob: %w", err)
		}
	}

	return &Index{
		mph:          mph,
		fingerprints: fingerprints,
		rows:         rows,
		keyBlob:      keyBlob,
		count:        fingerprints.Count(),
	}, nil
}

// Close releases resources.
func (ix *Index) Close() error {
	var firstErr error

	if ix.fingerprints != nil {
		if err := ix.fingerprints.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if ix.rows != nil {
		if err := ix.rows.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if ix.keyBlob != nil {
		if err := ix.keyBlob.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Count returns the number of keys in the index.
func (ix *Index) Count() uint64 {
	return ix.count
}

// Lookup returns the artifact row position for a map unit key, or
// ok=false when the key is not in the index. Absent keys are rejected by
// fingerprint comparison.
func (ix *Index) Lookup(mukey string) (row uint64, ok bool) {
	if ix.count == 0 || ix.mph == nil {
		return 0, false
	}

	hashVal := ix.mph.Find(hashKey(mukey))
	if hashVal == 0 {
		return 0, false
	}

	pos := hashVal - 1
	if pos >= ix.count {
		return 0, false
	}

	if ix.fingerprints.UnsafeGetU64(pos) != fingerprint(mukey) {
		return 0, false
	}

	return ix.rows.UnsafeGetU64(pos), true
}

// Key returns the map unit key stored at the given hash position.
// Requires the key blob.
func (ix *Index) Key(pos uint64) (string, error) {
	if ix.keyBlob == nil {
		return "", fmt.Errorf("key blob not loaded")
	}
	return ix.keyBlob.Get(pos)
}

// Verify replays every stored key through the hash and checks it resolves
// back to its own position. Requires the key blob.
func (ix *Index) Verify() error {
	if ix.count == 0 {
		return nil
	}
	if ix.keyBlob == nil {
		return fmt.Errorf("key blob not loaded")
	}

	for pos := uint64(0); pos < ix.count; pos++ {
		key, err := ix.keyBlob.Get(pos)
		if err != nil {
			return fmt.Errorf("get key %d: %w", pos, err)
		}

		hashVal := ix.mph.Find(hashKey(key))
		if hashVal == 0 {
			return fmt.Errorf("lookup failed for key %q at pos %d", key, pos)
		}
		if hashVal-1 != pos {
			return fmt.Errorf("key %q resolved to pos %d, want %d", key, hashVal-1, pos)
		}
		if ix.fingerprints.UnsafeGetU64(pos) != fingerprint(key) {
			return fmt.Errorf("fingerprint mismatch for key %q at pos %d", key, pos)
		}
	}

	return nil
}

// hashKey computes the uint64 bbhash input for a map unit key.
func hashKey(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// fingerprint computes the membership fingerprint for a key. A different
// hash function than hashKey keeps the collision probability down.
func fingerprint(s string) uint64 {
	h := fnv.New64()
	h.Write([]byte(s))
	return h.Sum64()
}
