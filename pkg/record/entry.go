// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package record

import (
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/tripwire/pkg/frame"
)

// Entry is one captured frame
type Entry struct {
	Time    int64  `cbor:"0,keyasint"` // receive time, Unix nanoseconds
	Address int    `cbor:"1,keyasint"`
	Length  int    `cbor:"2,keyasint"`
	Payload string `cbor:"3,keyasint"`
	RSSI    int    `cbor:"4,keyasint"`
	SNR     int    `cbor:"5,keyasint"`
}

// NewEntry captures f
func NewEntry(f *frame.Frame) Entry {
	return Entry{
		Time:    f.Timestamp.UnixNano(),
		Address: f.Address,
		Length:  f.Length,
		Payload: f.Payload,
		RSSI:    f.RSSI,
		SNR:     f.SNR,
	}
}

// Frame returns the captured frame
func (e Entry) Frame() *frame.Frame {
	return &frame.Frame{
		Address:   e.Address,
		Length:    e.Length,
		Payload:   e.Payload,
		RSSI:      e.RSSI,
		SNR:       e.SNR,
		Timestamp: time.Unix(0, e.Time),
	}
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

func marshalEntry(e Entry) ([]byte, error) {
	return encMode.Marshal(e)
}

func unmarshalEntry(data []byte) (Entry, error) {
	var e Entry
	err := cbor.Unmarshal(data, &e)
	return e, err
}
