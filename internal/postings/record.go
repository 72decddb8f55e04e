// Package postings decodes the fixed-width binary posting lists of a prebuilt
// field index. A term's list is df consecutive records, possibly continuing
// across shard files; records are little-endian with the padding of the C
// struct the index writer packed.
package postings

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Kind selects the record layout of a field.
type Kind int

const (
	// Scored records carry term statistics: doc_id u32 @0, tf u16 @4,
	// 2 padding bytes, norm_weight f32 @8, doc_len u32 @12.
	Scored Kind = iota
	// Membership records carry only doc_id u32 @0.
	Membership
)

const (
	ScoredRecordSize     = 16
	MembershipRecordSize = 4
)

// RecordSize returns the encoded size of one record of this kind.
func (k Kind) RecordSize() int {
	if k == Membership {
		return MembershipRecordSize
	}
	return ScoredRecordSize
}

func (k Kind) String() string {
	switch k {
	case Scored:
		return "scored"
	case Membership:
		return "membership"
	default:
		return "unknown"
	}
}

// Posting is one document entry of a posting list. Membership postings only
// set DocID.
type Posting struct {
	DocID      uint32
	TF         uint16
	NormWeight float32
	DocLen     uint32
}

// PostingList is a decoded posting list in stored order.
type PostingList []Posting

// Encode appends the encoded records of postings to dst.
func Encode(dst []byte, kind Kind, postings PostingList) []byte {
	var rec [ScoredRecordSize]byte
	for _, p := range postings {
		binary.LittleEndian.PutUint32(rec[0:4], p.DocID)
		if kind == Membership {
			dst = append(dst, rec[:MembershipRecordSize]...)
			continue
		}
		binary.LittleEndian.PutUint16(rec[4:6], p.TF)
		rec[6], rec[7] = 0, 0
		binary.LittleEndian.PutUint32(rec[8:12], math.Float32bits(p.NormWeight))
		binary.LittleEndian.PutUint32(rec[12:16], p.DocLen)
		dst = append(dst, rec[:]...)
	}
	return dst
}

// Decode parses count records from data. data must hold at least
// count*kind.RecordSize() bytes; trailing bytes are ignored.
func Decode(data []byte, kind Kind, count int) (PostingList, error) {
	size := kind.RecordSize()
	if count < 0 || len(data) < count*size {
		return nil, fmt.Errorf("decoding %d %s records: have %d bytes, need %d", count, kind, len(data), count*size)
	}
	list := make(PostingList, count)
	for i := range list {
		rec := data[i*size : (i+1)*size]
		list[i].DocID = binary.LittleEndian.Uint32(rec[0:4])
		if kind == Membership {
			continue
		}
		list[i].TF = binary.LittleEndian.Uint16(rec[4:6])
		list[i].NormWeight = math.Float32frombits(binary.LittleEndian.Uint32(rec[8:12]))
		list[i].DocLen = binary.LittleEndian.Uint32(rec[12:16])
	}
	return list, nil
}
