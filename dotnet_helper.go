package pe

import "errors"

// ErrInvalidBlobPrefix is returned when a #Blob heap entry's compressed
// length prefix does not match any of the three ECMA-335 II.23.2 encodings.
var ErrInvalidBlobPrefix = errors.New("invalid blob heap length prefix")

const (
	// these are intentionally made so they do not collide with StringStream, GUIDStream, and BlobStream
	// they are used only for the getCodedIndexSize function
	idxStringStream = iota + 100
	idxGUIDStream
	idxBlobStream
)

type codedidx struct {
	tagbits uint8
	idx     []int
}

var (
	idxTypeDefOrRef        = codedidx{tagbits: 2, idx: []int{TypeDef, TypeRef, TypeSpec}}
	idxResolutionScope     = codedidx{tagbits: 2, idx: []int{Module, ModuleRef, AssemblyRef, TypeRef}}
	idxMemberRefParent     = codedidx{tagbits: 3, idx: []int{TypeDef, TypeRef, ModuleRef, MethodDef, TypeSpec}}
	idxHasConstant         = codedidx{tagbits: 2, idx: []int{Field, Param, Property}}
	idxHasCustomAttributes = codedidx{tagbits: 5, idx: []int{Field, TypeRef, TypeDef, Param, InterfaceImpl, MemberRef, Module, Property, Event, StandAloneSig, ModuleRef, TypeSpec, Assembly, AssemblyRef, FileMD, ExportedType, ManifestResource}}
	idxCustomAttributeType = codedidx{tagbits: 3, idx: []int{-1, -1, MethodDef, MemberRef}} // tags 0, 1 and 4 are unused
	idxHasFieldMarshall    = codedidx{tagbits: 1, idx: []int{Field, Param}}
	idxHasDeclSecurity     = codedidx{tagbits: 2, idx: []int{TypeDef, MethodDef, Assembly}}
	idxHasSemantics        = codedidx{tagbits: 1, idx: []int{Event, Property}}
	idxMethodDefOrRef      = codedidx{tagbits: 1, idx: []int{MethodDef, MemberRef}}
	idxMemberForwarded     = codedidx{tagbits: 1, idx: []int{Field, MethodDef}}
	idxImplementation      = codedidx{tagbits: 2, idx: []int{AssemblyRef, ExportedType}}
	idxTypeOrMethodDef     = codedidx{tagbits: 1, idx: []int{TypeDef, MethodDef}}

	idxField        = codedidx{tagbits: 0, idx: []int{Field}}
	idxMethodDef    = codedidx{tagbits: 0, idx: []int{MethodDef}}
	idxParam        = codedidx{tagbits: 0, idx: []int{Param}}
	idxTypeDef      = codedidx{tagbits: 0, idx: []int{TypeDef}}
	idxEvent        = codedidx{tagbits: 0, idx: []int{Event}}
	idxProperty     = codedidx{tagbits: 0, idx: []int{Property}}
	idxModuleRef    = codedidx{tagbits: 0, idx: []int{ModuleRef}}
	idxGenericParam = codedidx{tagbits: 0, idx: []int{GenericParam}}

	idxString = codedidx{tagbits: 0, idx: []int{idxStringStream}}
	idxBlob   = codedidx{tagbits: 0, idx: []int{idxBlobStream}}
	idxGUID   = codedidx{tagbits: 0, idx: []int{idxGUIDStream}}
)

func (pe *File) getCodedIndexSize(tagbits uint32, idx ...int) uint32 {
	// special case String/GUID/Blob streams
	switch idx[0] {
	case int(idxStringStream):
		return uint32(pe.GetMetadataStreamIndexSize(StringStream))
	case int(idxGUIDStream):
		return uint32(pe.GetMetadataStreamIndexSize(GUIDStream))
	case int(idxBlobStream):
		return uint32(pe.GetMetadataStreamIndexSize(BlobStream))
	}

	// now deal with coded indices or single table
	var maxIndex16 uint32 = 1 << (16 - tagbits)
	var maxColumnCount uint32
	for _, tblidx := range idx {
		tbl, ok := pe.CLR.MetadataTables[tblidx]
		if ok {
			if tbl.CountCols > maxColumnCount {
				maxColumnCount = tbl.CountCols
			}
		}
	}
	if maxColumnCount > maxIndex16 {
		return 4
	}
	return 2
}

func (pe *File) readFromMetadataStream(cidx codedidx, off uint32, out *uint32) (uint32, error) {
	indexSize := pe.getCodedIndexSize(uint32(cidx.tagbits), cidx.idx...)
	var data uint32
	var err error
	switch indexSize {
	case 2:
		d, err := pe.ReadUint16(off)
		if err != nil {
			return 0, err
		}
		data = uint32(d)
	case 4:
		data, err = pe.ReadUint32(off)
		if err != nil {
			return 0, err
		}
	}

	*out = data
	return uint32(indexSize), nil
}

// StringAtIndex returns the null-terminated UTF-8 string stored at index
// into the #Strings heap. A zero index is the empty string, per ECMA-335
// II.24.2.3.
func (pe *File) StringAtIndex(index uint32) (string, error) {
	heap, ok := pe.CLR.MetadataStreams["#Strings"]
	if !ok || index == 0 || index >= uint32(len(heap)) {
		return "", nil
	}
	end := index
	for end < uint32(len(heap)) && heap[end] != 0 {
		end++
	}
	return string(heap[index:end]), nil
}

// BlobAtIndex returns the byte slice stored at index into the #Blob heap,
// decoding the ECMA-335 II.23.2 compressed length prefix (1, 2, or 4 bytes).
func (pe *File) BlobAtIndex(index uint32) ([]byte, error) {
	heap, ok := pe.CLR.MetadataStreams["#Blob"]
	if !ok || index >= uint32(len(heap)) {
		return nil, nil
	}

	b0 := heap[index]
	var length, prefixLen uint32
	switch {
	case b0&0x80 == 0:
		length = uint32(b0)
		prefixLen = 1
	case b0&0xc0 == 0x80:
		if index+1 >= uint32(len(heap)) {
			return nil, ErrOutsideBoundary
		}
		length = (uint32(b0&0x3f) << 8) | uint32(heap[index+1])
		prefixLen = 2
	case b0&0xe0 == 0xc0:
		if index+3 >= uint32(len(heap)) {
			return nil, ErrOutsideBoundary
		}
		length = (uint32(b0&0x1f) << 24) | (uint32(heap[index+1]) << 16) |
			(uint32(heap[index+2]) << 8) | uint32(heap[index+3])
		prefixLen = 4
	default:
		return nil, ErrInvalidBlobPrefix
	}

	start := index + prefixLen
	end := start + length
	if end > uint32(len(heap)) {
		return nil, ErrOutsideBoundary
	}
	return heap[start:end], nil
}

// codedIndexTags maps the exported coded-index kinds a consumer outside this
// package needs to decode (scope/parent columns on TypeRef, MemberRef,
// CustomAttribute, and the Implementation column on ExportedType) to the
// tag tables above.
var codedIndexTags = map[string]codedidx{
	"TypeDefOrRef":        idxTypeDefOrRef,
	"ResolutionScope":     idxResolutionScope,
	"MemberRefParent":     idxMemberRefParent,
	"HasCustomAttributes": idxHasCustomAttributes,
	"CustomAttributeType": idxCustomAttributeType,
	"Implementation":      idxImplementation,
}

// DecodeCodedIndex splits a coded-index column value (already read from a
// metadata table row) into the metadata
// table it refers to and the 1-based row number within that table.
// kind must be one of "TypeDefOrRef", "ResolutionScope", "MemberRefParent",
// "HasCustomAttributes", "CustomAttributeType", or "Implementation".
// Returns table == -1 if kind is unrecognized or the tag bits are out of range.
func DecodeCodedIndex(kind string, raw uint32) (table int, row uint32) {
	cidx, ok := codedIndexTags[kind]
	if !ok {
		return -1, 0
	}
	if cidx.tagbits == 0 {
		return cidx.idx[0], raw
	}
	mask := uint32(1)<<cidx.tagbits - 1
	tag := raw & mask
	row = raw >> cidx.tagbits
	if int(tag) >= len(cidx.idx) {
		return -1, row
	}
	return cidx.idx[tag], row
}
