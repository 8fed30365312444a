// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jy901

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var sampleEncMode = func() cbor.EncMode {
	mode, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// MarshalSample encodes a sample as a CBOR map keyed by the JSON field names
func MarshalSample(s *Sample) ([]byte, error) {
	data, err := sampleEncMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sample: %w", err)
	}
	return data, nil
}

// UnmarshalSample decodes a sample produced by MarshalSample
func UnmarshalSample(data []byte) (*Sample, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty CBOR payload")
	}
	var s Sample
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	return &s, nil
}
