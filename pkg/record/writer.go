// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package record

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Thermoquad/tripwire/pkg/frame"
)

// Writer appends records to a capture
type Writer struct {
	w     io.Writer
	count int
}

// NewWriter creates a writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write appends f as one record
func (w *Writer) Write(f *frame.Frame) error {
	data, err := Encode(NewEntry(f))
	if err != nil {
		return err
	}
	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of records written
func (w *Writer) Count() int {
	return w.count
}

// Encode returns the framed record for e
func Encode(e Entry) ([]byte, error) {
	body, err := marshalEntry(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode CBOR entry: %w", err)
	}
	if len(body) > MaxEntrySize {
		return nil, fmt.Errorf("entry too large: %d bytes (max %d)", len(body), MaxEntrySize)
	}

	data := make([]byte, 2, 2+len(body)+2)
	binary.BigEndian.PutUint16(data, uint16(len(body)))
	data = append(data, body...)

	crc := CalculateCRC(data)
	data = append(data, byte(crc>>8), byte(crc&0xFF))

	stuffed := stuffBytes(data)
	record := make([]byte, 0, len(stuffed)+2)
	record = append(record, StartByte)
	record = append(record, stuffed...)
	record = append(record, EndByte)
	return record, nil
}

// stuffBytes replaces each framing byte with ESC followed by the byte XOR
// EscXor
func stuffBytes(data []byte) []byte {
	result := make([]byte, 0, len(data)*2)
	for _, b := range data {
		if b == StartByte || b == EndByte || b == EscByte {
			result = append(result, EscByte, b^EscXor)
		} else {
			result = append(result, b)
		}
	}
	return result
}
