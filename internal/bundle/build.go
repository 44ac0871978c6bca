package bundle

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Module is one compiled unit to package: its module name (as it will
// be looked up at load time) and its compiled bytecode bytes.
type Module struct {
	Name string
	Code []byte
}

// Build concatenates the running interpreter's own executable image,
// every module's bytecode in order, the index, and the footer, writing
// the result to outputPath and marking it executable on POSIX. args is
// the set of CLI args preserved ahead of the entrypoint at run time.
func Build(outputPath string, selfImage []byte, entrypoint string, args []string, modules []Module) error {
	if len(entrypoint) > 0xFFFF {
		return fmt.Errorf("bundle: entrypoint name too long")
	}

	out := make([]byte, 0, len(selfImage)+len(selfImage)/2)
	out = append(out, selfImage...)

	files := make([]File, 0, len(modules))
	offset := uint32(0)
	for _, m := range modules {
		if len(m.Name) > 0xFFFF {
			return fmt.Errorf("bundle: module name %q too long", m.Name)
		}
		files = append(files, File{Name: m.Name, Offset: offset, Size: uint32(len(m.Code))})
		out = append(out, m.Code...)
		offset += uint32(len(m.Code))
	}

	index := encodeIndex(entrypoint, args, files)
	out = append(out, index...)

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], uint32(len(index)))
	copy(footer[4:8], Magic[:])
	out = append(out, footer...)

	if err := os.WriteFile(outputPath, out, 0o755); err != nil {
		return fmt.Errorf("bundle: writing output: %w", err)
	}
	return nil
}

func encodeIndex(entrypoint string, args []string, files []File) []byte {
	var buf []byte
	buf = append(buf, Version)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(args)))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(files)))
	buf = appendString(buf, entrypoint)
	for _, a := range args {
		buf = appendString(buf, a)
	}
	for _, f := range files {
		buf = appendString(buf, f.Name)
		buf = binary.LittleEndian.AppendUint32(buf, f.Offset)
		buf = binary.LittleEndian.AppendUint32(buf, f.Size)
	}
	return buf
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}
