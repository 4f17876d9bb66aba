// Copyright 2026 The histview Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package snapshot

import (
	"encoding/binary"
	"fmt"

	"github.com/dgryski/go-farm"

	"github.com/bpowers/histview/internal/schema"
)

// Data is a decoded bucket payload.  Buckets are stored on disk as u64
// and decoded two's-complement, so a payload that has had a baseline
// subtracted can hold negative counts.
type Data []int64

// Sum returns the total of all buckets.
func (d Data) Sum() int64 {
	var sum int64
	for _, v := range d {
		sum += v
	}
	return sum
}

// Snapshot is one point-in-time read of a source.  Header and Data are
// read separately and may come from different producer generations.
type Snapshot struct {
	Header schema.Header
	Data   Data
	// Fingerprint is a hash of the raw payload bytes.
	Fingerprint uint64
}

// dataCodec decodes len u64 little-endian words starting at off.
type dataCodec struct {
	len int   // length in number of elements
	off int64 // offset in bytes of the start of the payload
}

func newDataCodec(bucketCount uint64) (dataCodec, error) {
	if bucketCount > maxBuckets {
		return dataCodec{}, fmt.Errorf("bucket count %d exceeds limit of %d", bucketCount, maxBuckets)
	}
	return dataCodec{
		len: int(bucketCount),
		off: schema.DataOffset,
	}, nil
}

// size is the payload length in bytes.
func (c dataCodec) size() int {
	return 8 * c.len
}

// end is the smallest file size that holds the whole payload.
func (c dataCodec) end() int64 {
	return c.off + int64(c.size())
}

func (c dataCodec) decode(buf []byte) (Data, uint64, error) {
	if len(buf) != c.size() {
		return nil, 0, fmt.Errorf("payload is %d bytes, expected %d", len(buf), c.size())
	}
	data := make(Data, c.len)
	for i := range data {
		data[i] = int64(binary.LittleEndian.Uint64(buf[8*i : 8*(i+1)]))
	}
	return data, farm.Fingerprint64(buf), nil
}
