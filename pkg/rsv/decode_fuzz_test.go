package rsv

import (
	"bytes"
	"testing"
)

func FuzzDecode(f *testing.F) {
	f.Add([]byte{})
	f.Add(sampleBytes)
	f.Add([]byte{NULL, 'x', EOV, EOR, EOR})
	f.Add([]byte{'a', EOR, EOV, NULL})
	f.Add([]byte{0xC3, 0x28, EOV, EOR})

	f.Fuzz(func(t *testing.T, b []byte) {
		table, err := Decode(b)
		streamed, streamErr := NewReader(bytes.NewReader(b)).ReadAll()
		if (err == nil) != (streamErr == nil) {
			t.Fatalf("Decode err=%v, Reader err=%v", err, streamErr)
		}
		if err != nil {
			return
		}
		if !table.Equal(streamed) {
			t.Fatalf("Decode and Reader disagree: %v vs %v", table, streamed)
		}

		// Decoded text never contains reserved bytes, so the table must
		// survive a strict round trip.
		enc, err := EncodeStrict(table)
		if err != nil {
			t.Fatalf("EncodeStrict: %v", err)
		}
		again, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(Encode): %v", err)
		}
		if !table.Equal(again) {
			t.Fatalf("round trip mismatch: %v vs %v", table, again)
		}
	})
}
