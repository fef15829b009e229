package board

import "testing"

// fdtBuilder assembles a minimal synthetic flattened device tree in
// memory so Parse can be exercised without any riscv64 hardware or a
// real bootloader-supplied blob.
type fdtBuilder struct {
	strings []byte
	strOff  map[string]uint32
	structs []byte
}

func newFDTBuilder() *fdtBuilder {
	return &fdtBuilder{strOff: map[string]uint32{}}
}

func (b *fdtBuilder) internString(s string) uint32 {
	if off, ok := b.strOff[s]; ok {
		return off
	}
	off := uint32(len(b.strings))
	b.strings = append(b.strings, s...)
	b.strings = append(b.strings, 0)
	b.strOff[s] = off
	return off
}

func putBE32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func putBE64(v uint64) []byte {
	return append(putBE32(uint32(v>>32)), putBE32(uint32(v))...)
}

func pad4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func (b *fdtBuilder) beginNode(name string) {
	b.structs = append(b.structs, putBE32(tagBeginNode)...)
	nameBytes := append([]byte(name), 0)
	b.structs = append(b.structs, pad4(nameBytes)...)
}

func (b *fdtBuilder) endNode() {
	b.structs = append(b.structs, putBE32(tagEndNode)...)
}

func (b *fdtBuilder) prop(name string, value []byte) {
	b.structs = append(b.structs, putBE32(tagProp)...)
	b.structs = append(b.structs, putBE32(uint32(len(value)))...)
	b.structs = append(b.structs, putBE32(b.internString(name))...)
	b.structs = append(b.structs, pad4(append([]byte{}, value...))...)
}

// build assembles the full FDT byte stream: header, struct block,
// strings block, in that order (the exact layout Parse expects via
// off_dt_struct/off_dt_strings).
func (b *fdtBuilder) build() []byte {
	b.structs = append(b.structs, putBE32(tagEnd)...)

	const headerSize = 40
	offStruct := uint32(headerSize)
	offStrings := offStruct + uint32(len(b.structs))
	total := offStrings + uint32(len(b.strings))

	hdr := putBE32(fdtMagic)
	hdr = append(hdr, putBE32(total)...)
	hdr = append(hdr, putBE32(offStruct)...)
	hdr = append(hdr, putBE32(offStrings)...)
	hdr = append(hdr, putBE32(0)...) // off_mem_rsvmap (unused by Parse)
	hdr = append(hdr, putBE32(17)...)
	hdr = append(hdr, putBE32(16)...)
	hdr = append(hdr, putBE32(0)...) // boot_cpuid_phys
	hdr = append(hdr, putBE32(uint32(len(b.strings)))...)
	hdr = append(hdr, putBE32(uint32(len(b.structs)))...)

	out := append(hdr, b.structs...)
	out = append(out, b.strings...)
	return out
}

func buildSampleTree() []byte {
	b := newFDTBuilder()
	b.beginNode("")
	b.prop("model", append([]byte("riscv-virt,qemu"), 0))

	b.beginNode("cpus")
	b.beginNode("cpu@0")
	b.endNode()
	b.beginNode("cpu@1")
	b.endNode()
	b.endNode() // cpus

	b.beginNode("memory@80000000")
	b.prop("reg", append(putBE64(0x80000000), putBE64(0x8000000)...))
	b.endNode()

	b.beginNode("soc")
	b.prop("timebase-frequency", putBE32(10000000))

	b.beginNode("uart@10000000")
	b.prop("reg", append(putBE64(0x10000000), putBE64(0x100)...))
	b.endNode()

	b.beginNode("clint@2000000")
	b.prop("reg", append(putBE64(0x2000000), putBE64(0x10000)...))
	b.endNode()

	b.beginNode("test@100000")
	b.prop("reg", append(putBE64(0x100000), putBE64(0x1000)...))
	b.endNode()

	b.endNode() // soc
	b.endNode() // root

	return b.build()
}

func TestParseExtractsBoardInfo(t *testing.T) {
	data := buildSampleTree()
	info, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if info.Model != "riscv-virt,qemu" {
		t.Errorf("Model = %q", info.Model)
	}
	if info.HartCount != 2 {
		t.Errorf("HartCount = %d, want 2", info.HartCount)
	}
	if info.TimeBaseFreq != 10000000 {
		t.Errorf("TimeBaseFreq = %d, want 10000000", info.TimeBaseFreq)
	}
	if info.Memory.Low != 0x80000000 || info.Memory.Size() != 0x8000000 {
		t.Errorf("Memory = %+v", info.Memory)
	}
	if info.UART.Low != 0x10000000 || info.UART.Size() != 0x100 {
		t.Errorf("UART = %+v", info.UART)
	}
	if info.CLINT.Low != 0x2000000 || info.CLINT.Size() != 0x10000 {
		t.Errorf("CLINT = %+v", info.CLINT)
	}
	if info.Test.Low != 0x100000 || info.Test.Size() != 0x1000 {
		t.Errorf("Test = %+v", info.Test)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	if _, err := Parse([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}); err != ErrBadMagic {
		t.Fatalf("got %v, want ErrBadMagic", err)
	}
}

func TestParseTooShortIsBadMagic(t *testing.T) {
	if _, err := Parse([]byte{1, 2, 3}); err != ErrBadMagic {
		t.Fatalf("got %v, want ErrBadMagic", err)
	}
}
