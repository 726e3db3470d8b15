package core

import (
	"bytes"
	"compress/zlib"
	"io"
	"strings"
	"testing"

	"brushless/protocol"
)

func TestDictionaryGenerate(t *testing.T) {
	dict := NewDictionary(NewCommandRegistry())

	dict.AddConstant("CLOCK_FREQ", uint32(12000000))
	dict.AddConstant("MCU", "rp2040")
	dict.AddEnumeration("drive_mode", []string{"asymmetric", "complementary"})

	dict.commandReg.Register("bldc_stop", "oid=%c", func(data *[]byte) error { return nil })
	dict.commandReg.Register("bldc_state", "oid=%c state=%c", nil)

	output := string(dict.Generate())

	if !strings.Contains(output, `"version":"`+protocol.Version+`"`) {
		t.Error("dictionary missing version")
	}
	if !strings.Contains(output, `"CLOCK_FREQ":"12000000"`) {
		t.Error("dictionary missing CLOCK_FREQ")
	}
	if !strings.Contains(output, `"MCU":"rp2040"`) {
		t.Error("dictionary missing MCU")
	}
	if !strings.Contains(output, `"bldc_stop oid=%c":0`) {
		t.Error("dictionary missing command entry")
	}
	if !strings.Contains(output, `"bldc_state oid=%c state=%c":1`) {
		t.Error("dictionary missing response entry")
	}
	if !strings.Contains(output, `"asymmetric":0`) || !strings.Contains(output, `"complementary":1`) {
		t.Error("dictionary missing drive_mode enumeration values")
	}
}

func TestDictionaryBuildCompresses(t *testing.T) {
	dict := NewDictionary(NewCommandRegistry())
	dict.AddConstant("CLOCK_FREQ", uint32(12000000))
	dict.commandReg.Register("bldc_stop", "oid=%c", func(data *[]byte) error { return nil })

	plain := string(dict.Generate())
	dict.BuildDictionary()
	compressed := dict.Generate()

	// The cached dictionary is zlib-framed; a host-side reader must get the
	// original JSON back.
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("compressed dictionary unreadable: %v", err)
	}
	decompressed, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(decompressed) != plain {
		t.Error("decompressed dictionary differs from the generated JSON")
	}
}

func TestDictionaryChunks(t *testing.T) {
	dict := NewDictionary(NewCommandRegistry())
	dict.AddConstant("TEST", uint32(123))

	data := dict.Generate()

	chunk := dict.GetChunk(0, 10)
	if len(chunk) != 10 {
		t.Errorf("chunk length = %d, want 10", len(chunk))
	}
	if string(chunk) != string(data[:10]) {
		t.Error("chunk content mismatch")
	}

	// Past the end.
	chunk = dict.GetChunk(uint32(len(data))+100, 10)
	if len(chunk) != 0 {
		t.Errorf("out-of-range chunk length = %d, want 0", len(chunk))
	}

	// Straddling the end.
	chunk = dict.GetChunk(uint32(len(data))-3, 10)
	if len(chunk) != 3 {
		t.Errorf("tail chunk length = %d, want 3", len(chunk))
	}
}
