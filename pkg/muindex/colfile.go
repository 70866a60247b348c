// Package muindex builds and reads the map unit key index: a minimal
// perfect hash over the exported map unit keys so thematic-map clients
// resolve a mukey to its artifact row position in O(1).
//
// On disk the index is a directory of small columnar files: the serialized
// hash function, a fingerprint array for membership verification, and a
// key blob for reverse lookup. Readers access the arrays via mmap.
package muindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	// MagicNumber identifies ssurgo-agg index files.
	MagicNumber uint32 = 0x4D554958 // "MUIX"
	// Version is the current format version.
	Version uint32 = 1
)

// Header is the common header for the index's columnar files.
type Header struct {
	Magic   uint32
	Version uint32
	Count   uint64 // number of elements
	Width   uint32 // element width in bytes
}

// HeaderSize is the size of the header in bytes.
const HeaderSize = 4 + 4 + 8 + 4 // 20 bytes

// EncodeHeader writes a header to a byte slice.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint64(buf[8:16], h.Count)
	binary.LittleEndian.PutUint32(buf[16:20], h.Width)
	return buf
}

// DecodeHeader reads a header from a byte slice.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrInvalidHeader
	}
	return Header{
		Magic:   binary.LittleEndian.Uint32(buf[0:4]),
		Version: binary.LittleEndian.Uint32(buf[4:8]),
		Count:   binary.LittleEndian.Uint64(buf[8:16]),
		Width:   binary.LittleEndian.Uint32(buf[16:20]),
	}, nil
}

// ArrayWriter writes a fixed-width columnar array with a header.
type ArrayWriter struct {
	file   *os.File
	writer *bufio.Writer
	count  uint64
	width  uint32
}

// NewArrayWriter creates a writer for a columnar array file.
func NewArrayWriter(path string, width uint32) (*ArrayWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create array file: %w", err)
	}

	w := bufio.NewWriter(f)

	// Placeholder header; the count is patched on Close.
	header := EncodeHeader(Header{
		Magic:   MagicNumber,
		Version: Version,
		Count:   0,
		Width:   width,
	})
	if _, err := w.Write(header); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write header: %w", err)
	}

	return &ArrayWriter{
		file:   f,
		writer: w,
		width:  width,
	}, nil
}

// WriteU64 writes a uint64 value.
func (w *ArrayWriter) WriteU64(val uint64) error {
	if w.width != 8 {
		return fmt.Errorf("width mismatch: expected 8, got %d", w.width)
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], val)
	if _, err := w.writer.Write(buf[:]); err != nil {
		return fmt.Errorf("write u64: %w", err)
	}
	w.count++
	return nil
}

// Close flushes, updates the header with the correct count, and closes.
func (w *ArrayWriter) Close() error {
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("flush: %w", err)
	}

	if _, err := w.file.Seek(0, 0); err != nil {
		w.file.Close()
		return fmt.Errorf("seek: %w", err)
	}

	header := EncodeHeader(Header{
		Magic:   MagicNumber,
		Version: Version,
		Count:   w.count,
		Width:   w.width,
	})
	if _, err := w.file.Write(header); err != nil {
		w.file.Close()
		return fmt.Errorf("update header: %w", err)
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// Count returns the number of elements written.
func (w *ArrayWriter) Count() uint64 {
	return w.count
}

// MmapFile represents a memory-mapped file.
type MmapFile struct {
	path string
	data []byte
	size int64
}

// OpenMmap opens a file and maps it into memory.
func OpenMmap(path string) (*MmapFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	size := info.Size()
	if size == 0 {
		return &MmapFile{path: path, data: nil, size: 0}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}

	return &MmapFile{
		path: path,
		data: data,
		size: size,
	}, nil
}

// Close unmaps the file.
func (m *MmapFile) Close() error {
	if m.data == nil {
		return nil
	}
	if err := unix.Munmap(m.data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

// Data returns the raw memory-mapped bytes.
func (m *MmapFile) Data() []byte {
	return m.data
}

// Size returns the file size.
func (m *MmapFile) Size() int64 {
	return m.size
}

// ArrayReader provides read access to a columnar array via mmap.
//
// Safe for concurrent reads from multiple goroutines. Close should only be
// called once, after all reads have completed.
type ArrayReader struct {
	mmap   *MmapFile
	header Header
	data   []byte
}

// OpenArray opens a columnar array file.
func OpenArray(path string) (*ArrayReader, error) {
	mmap, err := OpenMmap(path)
	if err != nil {
		return nil, fmt.Errorf("mmap file: %w", err)
	}

	if mmap.Size() < int64(HeaderSize) {
		mmap.Close()
		return nil, ErrInvalidHeader
	}

	header, err := DecodeHeader(mmap.Data()[:HeaderSize])
	if err != nil {
		mmap.Close()
		return nil, fmt.Errorf("decode header: %w", err)
	}

	if header.Magic != MagicNumber {
		mmap.Close()
		return nil, ErrMagicMismatch
	}

	if header.Version != Version {
		mmap.Close()
		return nil, ErrVersionMismatch
	}

	expectedSize := int64(HeaderSize) + int64(header.Count)*int64(header.Width)
	if mmap.Size() < expectedSize {
		mmap.Close()
		return nil, fmt.Errorf("file too small: %d < %d", mmap.Size(), expectedSize)
	}

	return &ArrayReader{
		mmap:   mmap,
		header: header,
		data:   mmap.Data()[HeaderSize:],
	}, nil
}

// Close releases the memory mapping.
func (r *ArrayReader) Close() error {
	return r.mmap.Close()
}

// Count returns the number of elements.
func (r *ArrayReader) Count() uint64 {
	return r.header.Count
}

// GetU64 returns the uint64 value at the given index.
func (r *ArrayReader) GetU64(idx uint64) (uint64, error) {
	if idx >= r.header.Count {
		return 0, ErrBoundsCheck
	}
	if r.header.Width != 8 {
		return 0, fmt.Errorf("width mismatch: expected 8, got %d", r.header.Width)
	}
	offset := idx * 8
	return binary.LittleEndian.Uint64(r.data[offset:]), nil
}

// UnsafeGetU64 returns the value without bounds checking.
//
// WARNING: no bounds checking is performed. Only use this in hot paths
// where the caller has already validated the index; use GetU64 otherwise.
func (r *ArrayReader) UnsafeGetU64(idx uint64) uint64 {
	return binary.LittleEndian.Uint64(r.data[idx*8:])
}

// BlobWriter writes a key blob with offsets.
type BlobWriter struct {
	blobFile   *os.File
	blobWriter *bufio.Writer
	offsets    *ArrayWriter
	offset     uint64
}

// NewBlobWriter creates a writer for key strings.
func NewBlobWriter(blobPath, offsetsPath string) (*BlobWriter, error) {
	blobFile, err := os.Create(blobPath)
	if err != nil {
		return nil, fmt.Errorf("create blob file: %w", err)
	}

	offsets, err := NewArrayWriter(offsetsPath, 8)
	if err != nil {
		blobFile.Close()
		os.Remove(blobPath)
		return nil, fmt.Errorf("create offsets: %w", err)
	}

	return &BlobWriter{
		blobFile:   blobFile,
		blobWriter: bufio.NewWriter(blobFile),
		offsets:    offsets,
	}, nil
}

// WriteString writes a key string and records its offset.
func (w *BlobWriter) WriteString(s string) error {
	if err := w.offsets.WriteU64(w.offset); err != nil {
		return fmt.Errorf("write offset: %w", err)
	}

	n, err := w.blobWriter.WriteString(s)
	if err != nil {
		return fmt.Errorf("write string: %w", err)
	}
	w.offset += uint64(n)

	return nil
}

// Close finalizes both files, writing a sentinel offset.
func (w *BlobWriter) Close() error {
	// Sentinel offset points one past the end.
	if err := w.offsets.WriteU64(w.offset); err != nil {
		w.blobWriter.Flush()
		w.blobFile.Close()
		w.offsets.Close()
		return fmt.Errorf("write sentinel offset: %w", err)
	}

	if err := w.blobWriter.Flush(); err != nil {
		w.blobFile.Close()
		w.offsets.Close()
		return fmt.Errorf("flush blob: %w", err)
	}

	if err := w.blobFile.Close(); err != nil {
		w.offsets.Close()
		return fmt.Errorf("close blob: %w", err)
	}

	if err := w.offsets.Close(); err != nil {
		return fmt.Errorf("close offsets: %w", err)
	}
	return nil
}

// BlobReader provides read access to key strings via mmap.
//
// Safe for concurrent reads from multiple goroutines.
type BlobReader struct {
	blobMmap *MmapFile
	offsets  *ArrayReader
}

// OpenBlob opens a key blob with its offsets file.
func OpenBlob(blobPath, offsetsPath string) (*BlobReader, error) {
	blobMmap, err := OpenMmap(blobPath)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}

	offsets, err := OpenArray(offsetsPath)
	if err != nil {
		blobMmap.Close()
		return nil, fmt.Errorf("open offsets: %w", err)
	}

	return &BlobReader{
		blobMmap: blobMmap,
		offsets:  offsets,
	}, nil
}

// Close releases resources.
func (r *BlobReader) Close() error {
	err1 := r.blobMmap.Close()
	err2 := r.offsets.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Count returns the number of strings (N, not N+1).
func (r *BlobReader) Count() uint64 {
	if r.offsets.Count() == 0 {
		return 0
	}
	return r.offsets.Count() - 1
}

// Get returns the string at the given index.
func (r *BlobReader) Get(idx uint64) (string, error) {
	if idx >= r.Count() {
		return "", ErrBoundsCheck
	}

	start, err := r.offsets.GetU64(idx)
	if err != nil {
		return "", fmt.Errorf("get start offset: %w", err)
	}

	end, err := r.offsets.GetU64(idx + 1)
	if err != nil {
		return "", fmt.Errorf("get end offset: %w", err)
	}

	if end > uint64(r.blobMmap.Size()) || start > end {
		return "", ErrBoundsCheck
	}

	return string(r.blobMmap.Data()[start:end]), nil
}
