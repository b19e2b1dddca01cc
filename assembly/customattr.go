package assembly

import pe "github.com/binarycompat/bincompat"

// resolveAttributeTypeName returns the full name of the type declaring a
// CustomAttribute row's constructor, resolved through the CustomAttributeType
// coded index (MethodDef or MemberRef). Returns "" when the constructor is a
// MethodDef defined in this same assembly (never the case for a framework
// marker or IVT attribute, both always imported via a MemberRef) or when the
// row can't be resolved.
func resolveAttributeTypeName(mod *Module, row pe.CustomAttributeTableRow) string {
	table, idx := pe.DecodeCodedIndex("CustomAttributeType", row.Type)
	if table != pe.MemberRef {
		return ""
	}
	i := int(idx) - 1
	if i < 0 || i >= len(mod.MemberRefs) {
		return ""
	}
	return mod.MemberRefs[i].Class.Name
}

// decodeAttributeStringArgs decodes the first n fixed string arguments of a
// custom attribute's Value blob (ECMA-335 II.23.3), after the 2-byte prolog
// 0x0001. It does not attempt to decode named arguments.
func decodeAttributeStringArgs(blob []byte, n int) ([]string, bool) {
	if len(blob) < 2 || blob[0] != 0x01 || blob[1] != 0x00 {
		return nil, false
	}
	rest := blob[2:]
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if len(rest) == 0 {
			return nil, false
		}
		if rest[0] == 0xff {
			out = append(out, "")
			rest = rest[1:]
			continue
		}
		length, prefixLen, ok := readCompressedLength(rest)
		if !ok || prefixLen+int(length) > len(rest) {
			return nil, false
		}
		out = append(out, string(rest[prefixLen:prefixLen+int(length)]))
		rest = rest[prefixLen+int(length):]
	}
	return out, true
}

// readCompressedLength decodes an ECMA-335 II.23.2 compressed unsigned
// integer from the start of b, returning its value and encoded width.
func readCompressedLength(b []byte) (length uint32, prefixLen int, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	b0 := b[0]
	switch {
	case b0&0x80 == 0:
		return uint32(b0), 1, true
	case b0&0xc0 == 0x80:
		if len(b) < 2 {
			return 0, 0, false
		}
		return (uint32(b0&0x3f) << 8) | uint32(b[1]), 2, true
	case b0&0xe0 == 0xc0:
		if len(b) < 4 {
			return 0, 0, false
		}
		return (uint32(b0&0x1f) << 24) | (uint32(b[1]) << 16) | (uint32(b[2]) << 8) | uint32(b[3]), 4, true
	}
	return 0, 0, false
}
