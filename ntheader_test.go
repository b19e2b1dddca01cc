// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"strconv"
	"testing"
)

func TestNtHeaderMachineType(t *testing.T) {

	tests := []struct {
		in  ImageFileHeaderMachineType
		out string
	}{
		{ImageFileHeaderMachineType(ImageFileMachineAMD64), "x64"},
		{ImageFileHeaderMachineType(ImageFileMachineI386), "x86"},
		{ImageFileHeaderMachineType(ImageFileMachineARM64), "ARM64 little endian"},
		{ImageFileHeaderMachineType(0xffff), "?"},
	}

	for _, tt := range tests {
		name := "CaseNtHeaderMachineTypeEqualTo_" + strconv.Itoa(int(tt.in))
		t.Run(name, func(t *testing.T) {

			got := tt.in.String()
			if got != tt.out {
				t.Errorf("nt header machine type assertion failed, got %v, want %v",
					got, tt.out)
			}
		})
	}
}

func TestPrettyOptionalHeaderMagic(t *testing.T) {
	tests := []struct {
		in  uint16
		out string
	}{
		{ImageNtOptionalHeader32Magic, "PE32"},
		{ImageNtOptionalHeader64Magic, "PE32+"},
	}

	for _, tt := range tests {
		file := &File{}
		if tt.in == ImageNtOptionalHeader64Magic {
			file.Is64 = true
			file.NtHeader.OptionalHeader = ImageOptionalHeader64{Magic: tt.in}
		} else {
			file.NtHeader.OptionalHeader = ImageOptionalHeader32{Magic: tt.in}
		}
		if got := file.PrettyOptionalHeaderMagic(); got != tt.out {
			t.Errorf("PrettyOptionalHeaderMagic() got %v, want %v", got, tt.out)
		}
	}
}
