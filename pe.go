// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// Image executable types. Only the signatures a managed assembly probe
// needs to tell apart from a genuine PE are kept; the rest (NE/LE/LX/TE)
// exist purely so ParseNTHeader can return a precise diagnostic instead
// of a generic parse failure.
const (
	// The DOS MZ executable format is the executable file format used
	// for .EXE files in DOS.
	ImageDOSSignature   = 0x5A4D // MZ
	ImageDOSZMSignature = 0x4D5A // ZM

	// The New Executable (NE) 16-bit format, predecessor to PE.
	ImageOS2Signature = 0x454E

	// Linear Executable, used by 32-bit OS/2 and Windows VxD files.
	ImageOS2LESignature = 0x454C

	// LX (32-bit) variant of the LE family.
	ImageVXDSignature = 0x584C

	// Terse Executables have a 'VZ' signature.
	ImageTESignature = 0x5A56

	// The Portable Executable (PE) format is a file format for
	// executables, object code, DLLs used on Windows. Managed assemblies
	// are always PE files.
	ImageNTSignature = 0x00004550 // PE00
)

// Optional Header magic.
const (
	ImageNtOptionalHeader32Magic = 0x10b
	ImageNtOptionalHeader64Magic = 0x20b
	ImageROMOptionalHeaderMagic  = 0x10
)

// Image file machine types. Managed assemblies are most commonly
// ImageFileMachineI386 (AnyCPU/x86) or ImageFileMachineAMD64, but the
// loader does not reject other machine types — the CLR header probe is
// the only gate for "is this a managed assembly".
const (
	ImageFileMachineUnknown = ImageFileHeaderMachineType(0x0)
	ImageFileMachineAM33    = ImageFileHeaderMachineType(0x1d3)
	ImageFileMachineAMD64   = ImageFileHeaderMachineType(0x8664)
	ImageFileMachineARM     = ImageFileHeaderMachineType(0x1c0)
	ImageFileMachineARM64   = ImageFileHeaderMachineType(0xaa64)
	ImageFileMachineARMNT   = ImageFileHeaderMachineType(0x1c4)
	ImageFileMachineI386    = ImageFileHeaderMachineType(0x14c)
	ImageFileMachineIA64    = ImageFileHeaderMachineType(0x200)
)

// The Characteristics field contains flags that indicate attributes of
// the object or image file. Only the flags used by IsDLL/IsEXE and the
// 32-bit machine flag are kept.
const (
	ImageFileExecutableImage = 0x0002
	ImageFile32BitMachine    = 0x0100
	ImageFileDLL             = 0x2000
)

// ImageDirectoryEntry represents an entry inside the data directories.
type ImageDirectoryEntry int

// DataDirectory entries of an OptionalHeader. The full 16-entry layout
// is kept so that positional indexing into DataDirectory[16] stays
// correct even though this analyzer only parses the Certificate and CLR
// entries.
const (
	ImageDirectoryEntryExport       ImageDirectoryEntry = iota // Export Table
	ImageDirectoryEntryImport                                  // Import Table
	ImageDirectoryEntryResource                                // Resource Table
	ImageDirectoryEntryException                               // Exception Table
	ImageDirectoryEntryCertificate                             // Certificate Directory
	ImageDirectoryEntryBaseReloc                                // Base Relocation Table
	ImageDirectoryEntryDebug                                    // Debug
	ImageDirectoryEntryArchitecture                             // Architecture Specific Data
	ImageDirectoryEntryGlobalPtr                                // Global pointer register value
	ImageDirectoryEntryTLS                                      // Thread local storage table
	ImageDirectoryEntryLoadConfig                               // Load configuration table
	ImageDirectoryEntryBoundImport                              // Bound import table
	ImageDirectoryEntryIAT                                      // Import Address Table
	ImageDirectoryEntryDelayImport                              // Delay Import Descriptor
	ImageDirectoryEntryCLR                                      // CLR Runtime Header
	ImageDirectoryEntryReserved                                 // Must be zero
	ImageNumberOfDirectoryEntries                               // Tables count.
)

// FileInfo carries the subset of PE envelope flags the reference
// checker and loader need; unlike the teacher's FileInfo, it does not
// track native-code-only directories (imports, resources, TLS, ...)
// since this analyzer never inspects them.
type FileInfo struct {
	Is32           bool
	Is64           bool
	HasDOSHdr      bool
	HasNTHdr       bool
	HasSections    bool
	HasCLR         bool
	HasCertificate bool
	IsSigned       bool
}
