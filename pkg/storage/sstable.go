package storage

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// SSTable errors
var (
	ErrKeyNotFoundInSSTable = errors.New("key not found in SSTable")
	ErrInvalidSSTableFormat = errors.New("invalid SSTable format")
	ErrUnsortedEntries      = errors.New("SSTable entries must be sorted and unique")
	ErrSSTableClosed        = errors.New("SSTable is closed")
)

// SSTableMagic identifies an SSTable data file
const SSTableMagic uint32 = 0x43505354 // "CPST"

// SSTableVersion is the current version of the SSTable format
const SSTableVersion uint16 = 1

// headerSize is Magic(4) + Version(2) + KeyCount(4)
const headerSize = 10

// maxValueSize bounds a single value read from disk
const maxValueSize = 64 * 1024 * 1024

// File names of one SSTable inside its directory
const (
	dataFileSuffix   = ".data"
	indexFileSuffix  = ".index"
	filterFileSuffix = ".filter"
)

// Entry is one key/value pair written to an SSTable
type Entry struct {
	Key   []byte
	Value []byte
}

// SSTableConfig holds the options for writing or opening an SSTable
type SSTableConfig struct {
	Path              string       // Directory holding the files
	Name              string       // Base name of the files, e.g. "products"
	FalsePositiveRate float64      // Bloom filter target, 0.01 when unset
	Logger            model.Logger // Logger for SSTable operations
}

func (c SSTableConfig) file(suffix string) string {
	return filepath.Join(c.Path, c.Name+suffix)
}

type indexEntry struct {
	key    string
	offset uint64
}

// SSTable is an immutable sorted table on disk made of a data file, an index
// file mapping each key to its data offset, and a bloom filter over the keys.
// The index is held in memory once opened.
type SSTable struct {
	config SSTableConfig
	logger model.Logger

	mu     sync.RWMutex
	data   *os.File
	index  []indexEntry
	filter *BloomFilter
}

// WriteSSTable writes entries, which must be sorted by key without
// duplicates, and returns the opened table
func WriteSSTable(config SSTableConfig, entries []Entry) (*SSTable, error) {
	if config.Logger == nil {
		config.Logger = model.DefaultLoggerInstance
	}
	if config.FalsePositiveRate == 0 {
		config.FalsePositiveRate = 0.01
	}

	for i := 1; i < len(entries); i++ {
		if bytes.Compare(entries[i-1].Key, entries[i].Key) >= 0 {
			return nil, fmt.Errorf("%w: %q after %q", ErrUnsortedEntries, entries[i].Key, entries[i-1].Key)
		}
	}

	if err := os.MkdirAll(config.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create SSTable directory: %w", err)
	}

	if err := writeSSTableFiles(config, entries); err != nil {
		os.Remove(config.file(dataFileSuffix))
		os.Remove(config.file(indexFileSuffix))
		os.Remove(config.file(filterFileSuffix))
		return nil, fmt.Errorf("failed to build SSTable: %w", err)
	}

	config.Logger.Debug("Wrote SSTable %s with %d keys", config.file(dataFileSuffix), len(entries))
	return OpenSSTable(config)
}

func writeSSTableFiles(config SSTableConfig, entries []Entry) error {
	dataFile, err := os.Create(config.file(dataFileSuffix))
	if err != nil {
		return fmt.Errorf("failed to create data file: %w", err)
	}
	defer dataFile.Close()

	indexFile, err := os.Create(config.file(indexFileSuffix))
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer indexFile.Close()

	dataWriter := bufio.NewWriter(dataFile)
	indexWriter := bufio.NewWriter(indexFile)
	filter := NewBloomFilter(config.FalsePositiveRate, uint64(len(entries)))

	var werr error
	write := func(w io.Writer, v interface{}) {
		if werr == nil {
			werr = binary.Write(w, binary.LittleEndian, v)
		}
	}

	write(dataWriter, SSTableMagic)
	write(dataWriter, SSTableVersion)
	write(dataWriter, uint32(len(entries)))

	offset := uint64(headerSize)
	for _, e := range entries {
		if len(e.Key) > 0xFFFF {
			return fmt.Errorf("key of %d bytes is too long", len(e.Key))
		}

		// Index entry: key length, key, data offset
		write(indexWriter, uint16(len(e.Key)))
		write(indexWriter, e.Key)
		write(indexWriter, offset)

		// Data entry: key length, key, value length, value
		write(dataWriter, uint16(len(e.Key)))
		write(dataWriter, e.Key)
		write(dataWriter, uint32(len(e.Value)))
		write(dataWriter, e.Value)

		filter.Add(e.Key)
		offset += 2 + uint64(len(e.Key)) + 4 + uint64(len(e.Value))
	}
	if werr != nil {
		return werr
	}

	if err := dataWriter.Flush(); err != nil {
		return err
	}
	if err := indexWriter.Flush(); err != nil {
		return err
	}
	if err := dataFile.Sync(); err != nil {
		return err
	}
	if err := indexFile.Sync(); err != nil {
		return err
	}
	return filter.SaveToFile(config.file(filterFileSuffix))
}

// OpenSSTable opens an existing SSTable and loads its index and filter
func OpenSSTable(config SSTableConfig) (*SSTable, error) {
	if config.Logger == nil {
		config.Logger = model.DefaultLoggerInstance
	}

	data, err := os.Open(config.file(dataFileSuffix))
	if err != nil {
		return nil, fmt.Errorf("data file not found: %w", err)
	}

	sst := &SSTable{config: config, logger: config.Logger, data: data}

	keyCount, err := sst.readHeader()
	if err != nil {
		data.Close()
		return nil, fmt.Errorf("failed to read SSTable header: %w", err)
	}

	if err := sst.loadIndex(keyCount); err != nil {
		data.Close()
		return nil, err
	}

	// A missing or damaged filter only costs index lookups
	filter, err := LoadBloomFilter(config.file(filterFileSuffix))
	if err != nil {
		sst.logger.Warn("Ignoring bloom filter of %s: %v", config.Name, err)
	} else {
		sst.filter = filter
	}

	return sst, nil
}

func (sst *SSTable) readHeader() (uint32, error) {
	header := make([]byte, headerSize)
	if _, err := sst.data.ReadAt(header, 0); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSSTableFormat, err)
	}
	if binary.LittleEndian.Uint32(header[0:4]) != SSTableMagic {
		return 0, ErrInvalidSSTableFormat
	}
	if binary.LittleEndian.Uint16(header[4:6]) != SSTableVersion {
		return 0, ErrInvalidSSTableFormat
	}
	return binary.LittleEndian.Uint32(header[6:10]), nil
}

func (sst *SSTable) loadIndex(keyCount uint32) error {
	indexData, err := os.ReadFile(sst.config.file(indexFileSuffix))
	if err != nil {
		return fmt.Errorf("failed to read index file: %w", err)
	}

	index := make([]indexEntry, 0, keyCount)
	pos := 0
	for pos < len(indexData) {
		if pos+2 > len(indexData) {
			return fmt.Errorf("%w: truncated index", ErrInvalidSSTableFormat)
		}
		keyLen := int(binary.LittleEndian.Uint16(indexData[pos:]))
		pos += 2
		if pos+keyLen+8 > len(indexData) {
			return fmt.Errorf("%w: truncated index", ErrInvalidSSTableFormat)
		}
		key := string(indexData[pos : pos+keyLen])
		pos += keyLen
		offset := binary.LittleEndian.Uint64(indexData[pos:])
		pos += 8
		index = append(index, indexEntry{key: key, offset: offset})
	}

	if len(index) != int(keyCount) {
		return fmt.Errorf("%w: index holds %d keys, header says %d", ErrInvalidSSTableFormat, len(index), keyCount)
	}
	sst.index = index
	return nil
}

// Get returns the value stored under key
func (sst *SSTable) Get(key []byte) ([]byte, error) {
	sst.mu.RLock()
	defer sst.mu.RUnlock()

	if sst.data == nil {
		return nil, ErrSSTableClosed
	}
	if sst.filter != nil && !sst.filter.Contains(key) {
		return nil, ErrKeyNotFoundInSSTable
	}

	k := string(key)
	i := sort.Search(len(sst.index), func(i int) bool { return sst.index[i].key >= k })
	if i == len(sst.index) || sst.index[i].key != k {
		return nil, ErrKeyNotFoundInSSTable
	}

	_, value, err := readEntryAt(sst.data, int64(sst.index[i].offset))
	return value, err
}

// Contains reports whether key is stored in the table
func (sst *SSTable) Contains(key []byte) (bool, error) {
	_, err := sst.Get(key)
	if errors.Is(err, ErrKeyNotFoundInSSTable) {
		return false, nil
	}
	return err == nil, err
}

// Scan calls fn for every entry in key order. Returning an error from fn
// stops the scan and returns that error.
func (sst *SSTable) Scan(fn func(key, value []byte) error) error {
	sst.mu.RLock()
	defer sst.mu.RUnlock()

	if sst.data == nil {
		return ErrSSTableClosed
	}

	r := bufio.NewReaderSize(io.NewSectionReader(sst.data, headerSize, 1<<62), 256*1024)
	for i := 0; i < len(sst.index); i++ {
		key, value, err := readEntry(r)
		if err != nil {
			return fmt.Errorf("reading entry %d: %w", i, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}

// KeyCount returns the number of keys in the table
func (sst *SSTable) KeyCount() int {
	sst.mu.RLock()
	defer sst.mu.RUnlock()
	return len(sst.index)
}

// Close releases the data file
func (sst *SSTable) Close() error {
	sst.mu.Lock()
	defer sst.mu.Unlock()

	if sst.data == nil {
		return nil
	}
	err := sst.data.Close()
	sst.data = nil
	sst.index = nil
	return err
}

func readEntryAt(f io.ReaderAt, offset int64) ([]byte, []byte, error) {
	return readEntry(bufio.NewReader(io.NewSectionReader(f, offset, 1<<62)))
}

func readEntry(r io.Reader) ([]byte, []byte, error) {
	var keyLen uint16
	if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
		return nil, nil, fmt.Errorf("failed to read key length: %w", err)
	}
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, nil, fmt.Errorf("failed to read key: %w", err)
	}

	var valueLen uint32
	if err := binary.Read(r, binary.LittleEndian, &valueLen); err != nil {
		return nil, nil, fmt.Errorf("failed to read value length: %w", err)
	}
	if valueLen > maxValueSize {
		return nil, nil, fmt.Errorf("%w: value length %d exceeds maximum allowed size", ErrInvalidSSTableFormat, valueLen)
	}
	value := make([]byte, valueLen)
	if _, err := io.ReadFull(r, value); err != nil {
		return nil, nil, fmt.Errorf("failed to read value: %w", err)
	}
	return key, value, nil
}
