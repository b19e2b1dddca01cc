// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"encoding/binary"
	"testing"
)

func TestParseSecurityDirectoryEmptyCert(t *testing.T) {
	data := make([]byte, 256)
	file, err := NewBytes(data, &Options{})
	if err != nil {
		t.Fatalf("NewBytes() failed: %v", err)
	}
	defer file.Close()

	// A WinCertificate header whose Length is zero is rejected outright.
	if err := file.parseSecurityDirectory(0, 8); err != ErrSecurityDataDirInvalid {
		t.Fatalf("parseSecurityDirectory() got %v, want %v", err, ErrSecurityDataDirInvalid)
	}
}

func TestParseSecurityDirectoryOutsideBoundary(t *testing.T) {
	data := make([]byte, 16)
	file, err := NewBytes(data, &Options{})
	if err != nil {
		t.Fatalf("NewBytes() failed: %v", err)
	}
	defer file.Close()

	if err := file.parseSecurityDirectory(100, 8); err != ErrOutsideBoundary {
		t.Fatalf("parseSecurityDirectory() got %v, want %v", err, ErrOutsideBoundary)
	}
}

func TestParseSecurityDirectoryTruncatedCert(t *testing.T) {
	data := make([]byte, 256)
	binary.LittleEndian.PutUint32(data[0:4], 0x1000) // certHeader.Length beyond file size
	binary.LittleEndian.PutUint16(data[4:6], WinCertRevision2_0)
	binary.LittleEndian.PutUint16(data[6:8], WinCertTypePKCSSignedData)

	file, err := NewBytes(data, &Options{})
	if err != nil {
		t.Fatalf("NewBytes() failed: %v", err)
	}
	defer file.Close()

	if err := file.parseSecurityDirectory(0, 8); err != ErrOutsideBoundary {
		t.Fatalf("parseSecurityDirectory() got %v, want %v", err, ErrOutsideBoundary)
	}
}
