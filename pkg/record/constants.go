// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package record stores received frames in a capture file.
//
// Each record is framed and byte-stuffed:
//
//	START | stuffed(LENGTH[2] | CBOR entry | CRC[2]) | END
//
// LENGTH is the big-endian size of the CBOR entry and CRC is CRC-16-CCITT
// over LENGTH and the entry. A corrupt record is skipped at the next START.
package record

// Framing bytes
const (
	StartByte = 0x7E
	EndByte   = 0x7F
	EscByte   = 0x7D
	EscXor    = 0x20
)

// Size limits
const (
	MaxEntrySize  = 1024
	MaxRecordSize = 2 + MaxEntrySize + 2
)

const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)
