package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// versionFile is written next to the SSTable files of a saved table
const versionFile = "version.yaml"

// TableVersion identifies one saved state of a product table
type TableVersion struct {
	Generation string    `yaml:"generation"` // Unique per Save
	SavedAt    time.Time `yaml:"saved_at"`
	Products   int       `yaml:"products"`
	Checksum   string    `yaml:"checksum"` // SHA-256 of the data file
}

// newTableVersion describes the table files in dir
func newTableVersion(dir, generation string, products int) (TableVersion, error) {
	sum, err := fileChecksum(filepath.Join(dir, productsFile+dataFileSuffix))
	if err != nil {
		return TableVersion{}, err
	}
	return TableVersion{
		Generation: generation,
		SavedAt:    time.Now().UTC(),
		Products:   products,
		Checksum:   sum,
	}, nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (v TableVersion) write(dir string) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, versionFile), data, 0644)
}

func readTableVersion(dir string) (TableVersion, error) {
	data, err := os.ReadFile(filepath.Join(dir, versionFile))
	if err != nil {
		return TableVersion{}, err
	}
	var v TableVersion
	if err := yaml.Unmarshal(data, &v); err != nil {
		return TableVersion{}, fmt.Errorf("decoding %s: %w", versionFile, err)
	}
	return v, nil
}

// Equals checks if two versions describe the same table contents
func (v TableVersion) Equals(other TableVersion) bool {
	return v.Generation == other.Generation && v.Checksum == other.Checksum
}

// String returns a short representation of the version
func (v TableVersion) String() string {
	short := v.Checksum
	if len(short) > 12 {
		short = short[:12]
	}
	return fmt.Sprintf("TableVer[Gen:%s,Products:%d,Sum:%s,Time:%s]",
		v.Generation, v.Products, short, v.SavedAt.Format(time.RFC3339))
}

// Versioned is implemented by tables that record when they were saved
type Versioned interface {
	Version() (TableVersion, error)
}

// Age returns the time elapsed since the table was saved
func (v TableVersion) Age() time.Duration {
	return time.Since(v.SavedAt)
}

// IsStale checks if the table was saved longer ago than threshold
func (v TableVersion) IsStale(threshold time.Duration) bool {
	return v.Age() > threshold
}
