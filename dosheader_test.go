// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func dosHeaderBytes(t *testing.T, hdr ImageDOSHeader) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, hdr); err != nil {
		t.Fatalf("binary.Write() failed: %v", err)
	}
	data := buf.Bytes()
	if len(data) < TinyPESize {
		data = append(data, make([]byte, TinyPESize-len(data))...)
	}
	return data
}

func TestParseDOSHeader(t *testing.T) {
	want := ImageDOSHeader{
		Magic:                 ImageDOSSignature,
		AddressOfNewEXEHeader: 0x40,
	}

	file, err := NewBytes(dosHeaderBytes(t, want), &Options{Fast: true})
	if err != nil {
		t.Fatalf("NewBytes() failed: %v", err)
	}
	defer file.Close()

	if err := file.ParseDOSHeader(); err != nil {
		t.Fatalf("ParseDOSHeader() failed: %v", err)
	}

	if got := file.DOSHeader; got != want {
		t.Errorf("ParseDOSHeader() got %+v, want %+v", got, want)
	}
	if !file.HasDOSHdr {
		t.Errorf("HasDOSHdr = false, want true")
	}
}

func TestParseDOSHeaderBadMagic(t *testing.T) {
	hdr := ImageDOSHeader{Magic: 0x1234, AddressOfNewEXEHeader: 0x40}
	file, err := NewBytes(dosHeaderBytes(t, hdr), &Options{Fast: true})
	if err != nil {
		t.Fatalf("NewBytes() failed: %v", err)
	}
	defer file.Close()

	if err := file.ParseDOSHeader(); err != ErrDOSMagicNotFound {
		t.Errorf("ParseDOSHeader() got %v, want %v", err, ErrDOSMagicNotFound)
	}
}

func TestParseDOSHeaderInvalidElfanew(t *testing.T) {
	hdr := ImageDOSHeader{Magic: ImageDOSSignature, AddressOfNewEXEHeader: 2}
	file, err := NewBytes(dosHeaderBytes(t, hdr), &Options{Fast: true})
	if err != nil {
		t.Fatalf("NewBytes() failed: %v", err)
	}
	defer file.Close()

	if err := file.ParseDOSHeader(); err != ErrInvalidElfanewValue {
		t.Errorf("ParseDOSHeader() got %v, want %v", err, ErrInvalidElfanewValue)
	}
}
