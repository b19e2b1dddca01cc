// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"reflect"
	"sort"
	"testing"
)

func TestSectionString(t *testing.T) {
	sec := Section{Header: ImageSectionHeader{
		Name: [8]uint8{0x2e, 0x70, 0x64, 0x61, 0x74, 0x61, 0x0, 0x0},
	}}
	if got := sec.String(); got != ".pdata" {
		t.Errorf("Section.String() got %q, want %q", got, ".pdata")
	}
}

func TestPrettySectionFlags(t *testing.T) {
	sec := Section{Header: ImageSectionHeader{
		Characteristics: ImageScnCntInitializedData | ImageScnMemRead,
	}}

	want := []string{"Initialized Data", "Readable"}
	got := sec.PrettySectionFlags()
	sort.Strings(got)
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PrettySectionFlags() got %v, want %v", got, want)
	}
}

func TestSectionContains(t *testing.T) {
	file := &File{
		Sections: []Section{
			{Header: ImageSectionHeader{
				VirtualAddress: 0x1000,
				VirtualSize:    0x200,
			}},
		},
	}
	file.NtHeader.OptionalHeader = ImageOptionalHeader32{
		FileAlignment:    0x200,
		SectionAlignment: 0x1000,
	}

	sec := &file.Sections[0]
	if !sec.Contains(0x1050, file) {
		t.Errorf("Contains(0x1050) = false, want true")
	}
	if sec.Contains(0x5000, file) {
		t.Errorf("Contains(0x5000) = true, want false")
	}
}
