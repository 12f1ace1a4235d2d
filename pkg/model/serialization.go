package model

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// Magic bytes that identify our serialized format
	SerializationMagic uint32 = 0x43505244 // "CPRD"

	// Version of the serialization format
	SerializationVersion uint16 = 1

	// Type constants for serialized entities
	TypeProduct uint8 = 1
)

// ErrInvalidSerializedData is returned when attempting to deserialize invalid data
var ErrInvalidSerializedData = errors.New("invalid serialized data")

// ErrUnsupportedVersion is returned when attempting to deserialize data with an unsupported version
var ErrUnsupportedVersion = errors.New("unsupported serialization version")

// ErrInvalidEntityType is returned when encountering an invalid entity type during deserialization
var ErrInvalidEntityType = errors.New("invalid entity type")

// binaryWriter keeps the first write error so callers can check once
type binaryWriter struct {
	buf bytes.Buffer
	err error
}

func (w *binaryWriter) put(v interface{}) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *binaryWriter) putString(s string) {
	if w.err != nil {
		return
	}
	if len(s) > math.MaxUint16 {
		w.err = fmt.Errorf("string of %d bytes exceeds %d", len(s), math.MaxUint16)
		return
	}
	w.put(uint16(len(s)))
	w.buf.WriteString(s)
}

func (w *binaryWriter) putStrings(list []string) {
	w.put(uint32(len(list)))
	for _, s := range list {
		w.putString(s)
	}
}

// SerializeProduct serializes a Product into a binary format
func SerializeProduct(p *Product) ([]byte, error) {
	if p == nil {
		return nil, errors.New("cannot serialize nil Product")
	}

	w := &binaryWriter{}

	// Header
	w.put(SerializationMagic)
	w.put(SerializationVersion)
	w.put(TypeProduct)

	w.put(p.ID)
	w.put(uint16(p.Fields))
	w.put(p.Discontinued)
	w.putString(p.ASIN)
	w.putString(p.Title)
	w.putString(p.Group)
	w.put(p.SalesRank)
	w.put(int32(p.SimilarCount))
	w.putStrings(p.Similar)
	w.put(int32(p.CategoriesCount))
	w.putStrings(p.Categories)
	w.put(int32(p.ReviewsTotal))
	w.put(int32(p.ReviewsDownloaded))
	w.put(p.AvgRating)
	w.putStrings(p.Reviews)

	if w.err != nil {
		return nil, fmt.Errorf("serializing product %d: %w", p.ID, w.err)
	}
	return w.buf.Bytes(), nil
}

type binaryReader struct {
	r   *bytes.Reader
	err error
}

func (r *binaryReader) get(v interface{}) {
	if r.err != nil {
		return
	}
	r.err = binary.Read(r.r, binary.LittleEndian, v)
}

func (r *binaryReader) getString() string {
	var n uint16
	r.get(&n)
	if r.err != nil {
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		r.err = err
		return ""
	}
	return string(b)
}

func (r *binaryReader) getStrings() []string {
	var n uint32
	r.get(&n)
	if r.err != nil {
		return nil
	}
	// Each entry needs at least its two length bytes
	if int64(n)*2 > int64(r.r.Len()) {
		r.err = ErrInvalidSerializedData
		return nil
	}
	list := make([]string, 0, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		list = append(list, r.getString())
	}
	return list
}

// DeserializeProduct deserializes a binary representation into a Product
func DeserializeProduct(data []byte) (*Product, error) {
	if len(data) < 15 { // Magic(4) + Version(2) + Type(1) + ID(8)
		return nil, ErrInvalidSerializedData
	}

	r := &binaryReader{r: bytes.NewReader(data)}

	var magic uint32
	var version uint16
	var entityType uint8

	r.get(&magic)
	if r.err == nil && magic != SerializationMagic {
		return nil, ErrInvalidSerializedData
	}
	r.get(&version)
	if r.err == nil && version != SerializationVersion {
		return nil, ErrUnsupportedVersion
	}
	r.get(&entityType)
	if r.err == nil && entityType != TypeProduct {
		return nil, ErrInvalidEntityType
	}

	p := &Product{}
	var fields uint16
	var similarCount, categoriesCount, reviewsTotal, reviewsDownloaded int32

	r.get(&p.ID)
	r.get(&fields)
	r.get(&p.Discontinued)
	p.ASIN = r.getString()
	p.Title = r.getString()
	p.Group = r.getString()
	r.get(&p.SalesRank)
	r.get(&similarCount)
	p.Similar = r.getStrings()
	r.get(&categoriesCount)
	p.Categories = r.getStrings()
	r.get(&reviewsTotal)
	r.get(&reviewsDownloaded)
	r.get(&p.AvgRating)
	p.Reviews = r.getStrings()

	if r.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSerializedData, r.err)
	}

	p.Fields = FieldSet(fields)
	p.SimilarCount = int(similarCount)
	p.CategoriesCount = int(categoriesCount)
	p.ReviewsTotal = int(reviewsTotal)
	p.ReviewsDownloaded = int(reviewsDownloaded)
	return p, nil
}
