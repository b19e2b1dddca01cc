// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "testing"

func TestMetadataTableIndexToString(t *testing.T) {
	tests := []struct {
		in  int
		out string
	}{
		{Module, "Module"},
		{TypeRef, "TypeRef"},
		{AssemblyRef, "AssemblyRef"},
		{ExportedType, "ExportedType"},
		{GenericParamConstraint, "GenericParamConstraint"},
		{0xff, ""},
	}
	for _, tt := range tests {
		if got := MetadataTableIndexToString(tt.in); got != tt.out {
			t.Errorf("MetadataTableIndexToString(%d) = %q, want %q", tt.in, got, tt.out)
		}
	}
}

func TestGetMetadataStreamIndexSize(t *testing.T) {
	tests := []struct {
		name  string
		heaps uint8
		pos   int
		want  int
	}{
		{"narrow string index", 0x0, StringStream, 2},
		{"wide string index", 0x1, StringStream, 4},
		{"wide GUID index", 0x2, GUIDStream, 4},
		{"narrow GUID index", 0x1, GUIDStream, 2},
		{"wide blob index", 0x4, BlobStream, 4},
		{"narrow blob index", 0x3, BlobStream, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &File{}
			f.CLR.MetadataTablesStreamHeader.Heaps = tt.heaps
			if got := f.GetMetadataStreamIndexSize(tt.pos); got != tt.want {
				t.Errorf("GetMetadataStreamIndexSize(%d) with Heaps=%#x = %d, want %d", tt.pos, tt.heaps, got, tt.want)
			}
		})
	}
}

// getCodedIndexSize widens to a 4-byte column the moment any referenced
// table's row count overflows the coded index's available tag-free bits.
func TestGetCodedIndexSizeWidensOnLargeTable(t *testing.T) {
	f := &File{}
	f.CLR.MetadataTables = map[int]*MetadataTable{
		TypeDef: {CountCols: 1<<15 + 1},
	}
	// idxTypeOrMethodDef has 1 tag bit, so the 16-bit boundary is 1<<15.
	if got := f.getCodedIndexSize(1, TypeDef, MethodDef); got != 4 {
		t.Errorf("getCodedIndexSize with an oversized table = %d, want 4", got)
	}

	f.CLR.MetadataTables[TypeDef].CountCols = 10
	if got := f.getCodedIndexSize(1, TypeDef, MethodDef); got != 2 {
		t.Errorf("getCodedIndexSize with a small table = %d, want 2", got)
	}
}

func TestDecodeCodedIndex(t *testing.T) {
	tests := []struct {
		name      string
		kind      string
		raw       uint32
		wantTable int
		wantRow   uint32
	}{
		{"TypeDefOrRef tag 0 is TypeDef", "TypeDefOrRef", (5 << 2) | 0, TypeDef, 5},
		{"TypeDefOrRef tag 1 is TypeRef", "TypeDefOrRef", (7 << 2) | 1, TypeRef, 7},
		{"TypeDefOrRef tag 2 is TypeSpec", "TypeDefOrRef", (1 << 2) | 2, TypeSpec, 1},
		{"ResolutionScope tag 2 is AssemblyRef", "ResolutionScope", (3 << 2) | 2, AssemblyRef, 3},
		{"CustomAttributeType tag 3 is MemberRef", "CustomAttributeType", (9 << 3) | 3, MemberRef, 9},
		{"Implementation tag 1 is ExportedType", "Implementation", (4 << 2) | 1, ExportedType, 4},
		{"unknown kind", "NoSuchKind", 42, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, row := DecodeCodedIndex(tt.kind, tt.raw)
			if table != tt.wantTable || row != tt.wantRow {
				t.Errorf("DecodeCodedIndex(%q, %#x) = (%d, %d), want (%d, %d)",
					tt.kind, tt.raw, table, row, tt.wantTable, tt.wantRow)
			}
		})
	}
}

func TestDecodeCodedIndexOutOfRangeTag(t *testing.T) {
	// CustomAttributeType only uses tags 2 and 3; tag 4 is past the end of
	// its tag table per ECMA-335 II.24.2.6 but must not panic.
	table, _ := DecodeCodedIndex("CustomAttributeType", (1<<3)|4)
	if table != -1 {
		t.Errorf("DecodeCodedIndex with an out-of-range tag = %d, want -1", table)
	}
}

func TestStringAtIndex(t *testing.T) {
	f := &File{}
	f.CLR.MetadataStreams = map[string][]byte{
		"#Strings": append([]byte{0x00}, "Contoso.Core\x00System\x00"...),
	}
	if got, err := f.StringAtIndex(0); err != nil || got != "" {
		t.Errorf("StringAtIndex(0) = (%q, %v), want (\"\", nil)", got, err)
	}
	if got, err := f.StringAtIndex(1); err != nil || got != "Contoso.Core" {
		t.Errorf("StringAtIndex(1) = (%q, %v), want (\"Contoso.Core\", nil)", got, err)
	}
	if got, err := f.StringAtIndex(14); err != nil || got != "System" {
		t.Errorf("StringAtIndex(14) = (%q, %v), want (\"System\", nil)", got, err)
	}
}

func TestStringAtIndexMissingHeap(t *testing.T) {
	f := &File{}
	if got, err := f.StringAtIndex(1); err != nil || got != "" {
		t.Errorf("StringAtIndex with no #Strings heap = (%q, %v), want (\"\", nil)", got, err)
	}
}

func TestBlobAtIndexOneByteLength(t *testing.T) {
	f := &File{}
	f.CLR.MetadataStreams = map[string][]byte{
		"#Blob": {0x00, 0x03, 0xAA, 0xBB, 0xCC},
	}
	got, err := f.BlobAtIndex(1)
	if err != nil {
		t.Fatalf("BlobAtIndex: %v", err)
	}
	want := []byte{0xAA, 0xBB, 0xCC}
	if len(got) != len(want) || string(got) != string(want) {
		t.Errorf("BlobAtIndex(1) = %v, want %v", got, want)
	}
}

func TestBlobAtIndexTwoByteLength(t *testing.T) {
	f := &File{}
	// 0x81 0x00 decodes to a 256-byte blob per ECMA-335 II.23.2.
	blob := make([]byte, 2+256)
	blob[0] = 0x81
	blob[1] = 0x00
	for i := range blob[2:] {
		blob[2+i] = byte(i)
	}
	f.CLR.MetadataStreams = map[string][]byte{"#Blob": blob}

	got, err := f.BlobAtIndex(0)
	if err != nil {
		t.Fatalf("BlobAtIndex: %v", err)
	}
	if len(got) != 256 || got[0] != 0 || got[255] != 255 {
		t.Errorf("BlobAtIndex(0) returned %d bytes, want a 256-byte blob", len(got))
	}
}

func TestBlobAtIndexInvalidPrefix(t *testing.T) {
	f := &File{}
	f.CLR.MetadataStreams = map[string][]byte{"#Blob": {0xf8}}
	if _, err := f.BlobAtIndex(0); err != ErrInvalidBlobPrefix {
		t.Errorf("BlobAtIndex with a reserved prefix byte = %v, want ErrInvalidBlobPrefix", err)
	}
}
