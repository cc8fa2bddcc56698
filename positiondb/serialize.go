package positiondb

import (
	"encoding/binary"
	"io"

	"github.com/grailbio/kmerchain/bitio"
	"github.com/pkg/errors"
)

var dbMagic = [8]byte{'p', 'o', 's', 'D', 'B', '0', '1', ' '}

type dbHeader struct {
	K             uint32
	Skip          uint32
	TableBits     uint32
	PosWidth      uint32
	NumBuckets    uint64
	NumEntries    uint64
	NumPositions  uint64
	HashWidth     uint32
	ChkWidth      uint32
	PayloadWidth  uint32
	PositionWidth uint32
}

func maxOf(vals []uint64) uint64 {
	var m uint64
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}

// WriteTo serializes db as a compact on-disk mirror: a fixed header
// followed by the hash table, bucket array, and position list, each
// packed at the narrowest fixed bit width that holds every value it
// contains.
func (db *DB) WriteTo(w io.Writer) error {
	hashWidth := bitLength(maxOf(db.hashTable) + 1)
	if hashWidth == 0 {
		hashWidth = 1
	}

	var payloadVals []uint64
	for _, e := range db.buckets {
		payloadVals = append(payloadVals, e.payload)
	}
	payloadWidth := bitLength(maxOf(payloadVals)+1)
	if payloadWidth == 0 {
		payloadWidth = 1
	}

	positionWidth := bitLength(maxOf(db.positions) + 1)
	if positionWidth == 0 {
		positionWidth = 1
	}

	entryWidth := 1 + uint(db.params.chkWidth()) + payloadWidth
	if entryWidth > 64 || hashWidth > 64 || positionWidth > 64 {
		return errors.Wrap(ErrUnsupported, "positiondb: WriteTo: a packed field would need more than 64 bits; this k/tbl_bits/position range combination has no on-disk mirror")
	}

	h := dbHeader{
		K:             uint32(db.params.K),
		Skip:          uint32(db.params.Skip),
		TableBits:     uint32(db.params.TableBits),
		PosWidth:      uint32(db.posWidth),
		NumBuckets:    uint64(len(db.hashTable) - 1),
		NumEntries:    uint64(len(db.buckets)),
		NumPositions:  uint64(len(db.positions)),
		HashWidth:     uint32(hashWidth),
		ChkWidth:      uint32(db.params.chkWidth()),
		PayloadWidth:  uint32(payloadWidth),
		PositionWidth: uint32(positionWidth),
	}

	if _, err := w.Write(dbMagic[:]); err != nil {
		return errors.Wrap(err, "positiondb: write magic")
	}
	fields := []interface{}{
		h.K, h.Skip, h.TableBits, h.PosWidth,
		h.NumBuckets, h.NumEntries, h.NumPositions,
		h.HashWidth, h.ChkWidth, h.PayloadWidth, h.PositionWidth,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.BigEndian, f); err != nil {
			return errors.Wrap(err, "positiondb: write header field")
		}
	}

	hashW := bitio.NewMemWriter()
	for _, v := range db.hashTable {
		if err := hashW.PutBits(v, hashWidth); err != nil {
			return err
		}
	}
	entryW := bitio.NewMemWriter()
	for _, e := range db.buckets {
		tag := uint64(0)
		if e.tag {
			tag = 1
		}
		v := (tag << (uint(h.ChkWidth) + payloadWidth)) | (e.check << payloadWidth) | e.payload
		if err := entryW.PutBits(v, entryWidth); err != nil {
			return err
		}
	}
	posW := bitio.NewMemWriter()
	for _, v := range db.positions {
		if err := posW.PutBits(v, positionWidth); err != nil {
			return err
		}
	}

	if err := bitio.WriteWords(w, hashW.Words()); err != nil {
		return err
	}
	if err := bitio.WriteWords(w, entryW.Words()); err != nil {
		return err
	}
	if err := bitio.WriteWords(w, posW.Words()); err != nil {
		return err
	}
	return nil
}

// ReadDBFrom parses a DB previously written by WriteTo.
func ReadDBFrom(r io.Reader) (*DB, error) {
	var got [8]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return nil, errors.Wrap(ErrCorruptArchive, "positiondb: short read in magic")
	}
	if got != dbMagic {
		return nil, errors.Wrap(ErrCorruptArchive, "positiondb: bad magic")
	}
	var h dbHeader
	fields := []interface{}{
		&h.K, &h.Skip, &h.TableBits, &h.PosWidth,
		&h.NumBuckets, &h.NumEntries, &h.NumPositions,
		&h.HashWidth, &h.ChkWidth, &h.PayloadWidth, &h.PositionWidth,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.BigEndian, f); err != nil {
			return nil, errors.Wrap(ErrCorruptArchive, "positiondb: short read in header")
		}
	}

	hashR, err := bitio.ReadAllWords(r, uint64(h.HashWidth)*(h.NumBuckets+1))
	if err != nil {
		return nil, errors.Wrap(ErrCorruptArchive, err.Error())
	}
	hashTable := make([]uint64, h.NumBuckets+1)
	for i := range hashTable {
		v, err := hashR.GetBits(uint(h.HashWidth))
		if err != nil {
			return nil, errors.Wrap(ErrCorruptArchive, "positiondb: short read in hash table")
		}
		hashTable[i] = v
	}

	entryWidth := 1 + uint(h.ChkWidth) + uint(h.PayloadWidth)
	entryR, err := bitio.ReadAllWords(r, uint64(entryWidth)*h.NumEntries)
	if err != nil {
		return nil, errors.Wrap(ErrCorruptArchive, err.Error())
	}
	buckets := make([]bucketEntry, h.NumEntries)
	for i := range buckets {
		v, err := entryR.GetBits(entryWidth)
		if err != nil {
			return nil, errors.Wrap(ErrCorruptArchive, "positiondb: short read in bucket array")
		}
		payloadMask := (uint64(1) << h.PayloadWidth) - 1
		checkMask := (uint64(1) << h.ChkWidth) - 1
		payload := v & payloadMask
		check := (v >> h.PayloadWidth) & checkMask
		tag := (v >> (uint(h.ChkWidth) + uint(h.PayloadWidth))) & 1
		buckets[i] = bucketEntry{check: check, tag: tag == 1, payload: payload}
	}

	posR, err := bitio.ReadAllWords(r, uint64(h.PositionWidth)*h.NumPositions)
	if err != nil {
		return nil, errors.Wrap(ErrCorruptArchive, err.Error())
	}
	positions := make([]uint64, h.NumPositions)
	for i := range positions {
		v, err := posR.GetBits(uint(h.PositionWidth))
		if err != nil {
			return nil, errors.Wrap(ErrCorruptArchive, "positiondb: short read in position list")
		}
		positions[i] = v
	}

	return &DB{
		params: Params{
			K:         uint8(h.K),
			Skip:      uint8(h.Skip),
			TableBits: uint8(h.TableBits),
		},
		posWidth:  uint(h.PosWidth),
		hashTable: hashTable,
		buckets:   buckets,
		positions: positions,
	}, nil
}
