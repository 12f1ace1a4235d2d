package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// bloomMagic identifies a bloom filter file
const bloomMagic uint32 = 0x43504246 // "CPBF"

// ErrInvalidBloomFilter is returned when a filter file cannot be decoded
var ErrInvalidBloomFilter = errors.New("invalid bloom filter file")

// BloomFilter is a probabilistic set used to skip index lookups for keys
// that are definitely absent. False positives are possible, false negatives are not.
type BloomFilter struct {
	mu         sync.RWMutex
	bits       []byte // The bit array
	size       uint64 // The size of the bit array in bits
	hashFuncs  uint64 // The number of probes per key
	insertions uint64 // The number of keys added
}

// NewBloomFilter creates a filter sized for expectedElements keys at the
// given false positive rate (e.g. 0.01 for 1%)
func NewBloomFilter(falsePositiveRate float64, expectedElements uint64) *BloomFilter {
	if expectedElements == 0 {
		expectedElements = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	size := calculateOptimalSize(expectedElements, falsePositiveRate)
	return &BloomFilter{
		bits:      make([]byte, (size+7)/8),
		size:      size,
		hashFuncs: calculateOptimalHashFuncs(size, expectedElements),
	}
}

// Add inserts a key into the filter
func (bf *BloomFilter) Add(key []byte) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	h1, h2 := bloomHashes(key)
	for i := uint64(0); i < bf.hashFuncs; i++ {
		bf.setBit((h1 + i*h2) % bf.size)
	}
	bf.insertions++
}

// Contains reports whether the key might be in the set
func (bf *BloomFilter) Contains(key []byte) bool {
	bf.mu.RLock()
	defer bf.mu.RUnlock()

	h1, h2 := bloomHashes(key)
	for i := uint64(0); i < bf.hashFuncs; i++ {
		if !bf.testBit((h1 + i*h2) % bf.size) {
			return false
		}
	}
	return true
}

// EstimatedFalsePositiveRate returns (1 - e^(-kn/m))^k for the current fill
func (bf *BloomFilter) EstimatedFalsePositiveRate() float64 {
	bf.mu.RLock()
	defer bf.mu.RUnlock()

	k := float64(bf.hashFuncs)
	m := float64(bf.size)
	n := float64(bf.insertions)
	return math.Pow(1-math.Exp(-k*n/m), k)
}

// WriteTo writes the filter in its file format
func (bf *BloomFilter) WriteTo(w io.Writer) (int64, error) {
	bf.mu.RLock()
	defer bf.mu.RUnlock()

	header := make([]byte, 28)
	binary.LittleEndian.PutUint32(header[0:4], bloomMagic)
	binary.LittleEndian.PutUint64(header[4:12], bf.size)
	binary.LittleEndian.PutUint64(header[12:20], bf.hashFuncs)
	binary.LittleEndian.PutUint64(header[20:28], bf.insertions)

	n, err := w.Write(header)
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(bf.bits)
	return int64(n + m), err
}

// SaveToFile writes the filter to filePath
func (bf *BloomFilter) SaveToFile(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)
	if _, err := bf.WriteTo(w); err != nil {
		file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// LoadBloomFilter reads a filter written by SaveToFile
func LoadBloomFilter(filePath string) (*BloomFilter, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := bufio.NewReader(file)
	header := make([]byte, 28)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBloomFilter, err)
	}
	if binary.LittleEndian.Uint32(header[0:4]) != bloomMagic {
		return nil, ErrInvalidBloomFilter
	}

	size := binary.LittleEndian.Uint64(header[4:12])
	hashFuncs := binary.LittleEndian.Uint64(header[12:20])
	if size == 0 || hashFuncs == 0 {
		return nil, ErrInvalidBloomFilter
	}

	bits := make([]byte, (size+7)/8)
	if _, err := io.ReadFull(r, bits); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBloomFilter, err)
	}

	return &BloomFilter{
		bits:       bits,
		size:       size,
		hashFuncs:  hashFuncs,
		insertions: binary.LittleEndian.Uint64(header[20:28]),
	}, nil
}

// bloomHashes derives the two base hashes for double hashing.
// h2 is forced odd so the probe sequence does not collapse.
func bloomHashes(key []byte) (uint64, uint64) {
	h1 := xxhash.Sum64(key)
	h2 := (h1>>33 | h1<<31) ^ 0x9e3779b97f4a7c15
	return h1, h2 | 1
}

func (bf *BloomFilter) setBit(position uint64) {
	bf.bits[position/8] |= 1 << (position % 8)
}

func (bf *BloomFilter) testBit(position uint64) bool {
	return bf.bits[position/8]&(1<<(position%8)) != 0
}

// Size returns the size of the filter in bits
func (bf *BloomFilter) Size() uint64 {
	return bf.size
}

// HashFunctions returns the number of probes per key
func (bf *BloomFilter) HashFunctions() uint64 {
	return bf.hashFuncs
}

// Insertions returns the number of keys added
func (bf *BloomFilter) Insertions() uint64 {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.insertions
}

// m = -n*ln(p) / (ln 2)^2
func calculateOptimalSize(n uint64, p float64) uint64 {
	m := float64(n) * math.Log(p) / (math.Log(2) * math.Log(2) * -1)
	return uint64(math.Max(8, math.Ceil(m)))
}

// k = (m/n) * ln 2
func calculateOptimalHashFuncs(m, n uint64) uint64 {
	k := float64(m) / float64(n) * math.Log(2)
	return uint64(math.Max(1, math.Round(k)))
}
