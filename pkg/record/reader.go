// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package record

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrCorrupt is wrapped by every decode failure
var ErrCorrupt = errors.New("corrupt record")

// Decoder reassembles records from a byte stream
type Decoder struct {
	inRecord   bool
	escapeNext bool
	buffer     []byte
}

// NewDecoder creates a decoder
func NewDecoder() *Decoder {
	return &Decoder{buffer: make([]byte, 0, MaxRecordSize)}
}

// Reset drops any partial record
func (d *Decoder) Reset() {
	d.inRecord = false
	d.escapeNext = false
	d.buffer = d.buffer[:0]
}

// DecodeByte feeds one byte. It returns an entry when b completes a valid
// record, and an error wrapping ErrCorrupt when it completes an invalid
// one.
func (d *Decoder) DecodeByte(b byte) (*Entry, error) {
	switch {
	case b == StartByte:
		d.Reset()
		d.inRecord = true
		return nil, nil

	case !d.inRecord:
		return nil, nil

	case b == EndByte:
		defer d.Reset()
		if d.escapeNext {
			return nil, fmt.Errorf("%w: incomplete escape sequence", ErrCorrupt)
		}
		return d.finish()

	case b == EscByte:
		d.escapeNext = true
		return nil, nil
	}

	if d.escapeNext {
		b ^= EscXor
		d.escapeNext = false
	}
	if len(d.buffer) >= MaxRecordSize {
		d.Reset()
		return nil, fmt.Errorf("%w: record exceeds %d bytes", ErrCorrupt, MaxRecordSize)
	}
	d.buffer = append(d.buffer, b)
	return nil, nil
}

func (d *Decoder) finish() (*Entry, error) {
	if len(d.buffer) < 4 {
		return nil, fmt.Errorf("%w: short record (%d bytes)", ErrCorrupt, len(d.buffer))
	}

	n := len(d.buffer) - 2
	expected := uint16(d.buffer[n])<<8 | uint16(d.buffer[n+1])
	if calculated := CalculateCRC(d.buffer[:n]); calculated != expected {
		return nil, fmt.Errorf("%w: CRC mismatch: expected 0x%04X, got 0x%04X", ErrCorrupt, calculated, expected)
	}

	length := int(binary.BigEndian.Uint16(d.buffer))
	body := d.buffer[2:n]
	if length != len(body) {
		return nil, fmt.Errorf("%w: length %d, got %d bytes", ErrCorrupt, length, len(body))
	}

	e, err := unmarshalEntry(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return &e, nil
}

// Reader reads entries from a capture, skipping corrupt records
type Reader struct {
	r       *bufio.Reader
	dec     *Decoder
	corrupt int
}

// NewReader creates a reader
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r), dec: NewDecoder()}
}

// Next returns the next valid entry, or io.EOF at the end of the capture
func (r *Reader) Next() (*Entry, error) {
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			return nil, err
		}
		e, err := r.dec.DecodeByte(b)
		if err != nil {
			r.corrupt++
			continue
		}
		if e != nil {
			return e, nil
		}
	}
}

// Corrupt returns the number of records skipped so far
func (r *Reader) Corrupt() int {
	return r.corrupt
}
