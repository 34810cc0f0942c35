package checksum

import (
	"bytes"
	"math/rand"
	"testing"
)

// TestCRC32CBasic tests basic CRC32C computation.
func TestCRC32CBasic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint32
	}{
		{"empty", []byte{}, 0},
		{"zero_byte", []byte{0x00}, 0x527d5351},
		{"one_byte_ff", []byte{0xff}, 0xff000000},
		// Standard test vector for CRC32C
		{"123456789", []byte("123456789"), 0xe3069283},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Value(tt.data)
			if got != tt.want {
				t.Errorf("Value(%v) = 0x%08x, want 0x%08x", tt.data, got, tt.want)
			}
		})
	}
}

// TestCRC32CStandardResults tests RFC3720 test vectors.
func TestCRC32CStandardResults(t *testing.T) {
	// From RFC 3720 section B.4
	buf := make([]byte, 32)

	for i := range buf {
		buf[i] = 0
	}
	if got := Value(buf); got != 0x8a9136aa {
		t.Errorf("All zeros: got 0x%08x, want 0x8a9136aa", got)
	}

	for i := range buf {
		buf[i] = 0xFF
	}
	if got := Value(buf); got != 0x62a8ab43 {
		t.Errorf("All 0xFF: got 0x%08x, want 0x62a8ab43", got)
	}

	for i := range buf {
		buf[i] = byte(i)
	}
	if got := Value(buf); got != 0x46dd794e {
		t.Errorf("Ascending: got 0x%08x, want 0x46dd794e", got)
	}

	for i := range buf {
		buf[i] = byte(31 - i)
	}
	if got := Value(buf); got != 0x113fdb5c {
		t.Errorf("Descending: got 0x%08x, want 0x113fdb5c", got)
	}

	data := []byte{
		0x01, 0xc0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x14, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0x00,
		0x00, 0x00, 0x00, 0x14, 0x00, 0x00, 0x00, 0x18, 0x28, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	if got := Value(data); got != 0xd9963a56 {
		t.Errorf("48-byte vector: got 0x%08x, want 0xd9963a56", got)
	}
}

// TestCRC32CValues tests that different inputs produce different outputs.
func TestCRC32CValues(t *testing.T) {
	a := Value([]byte("a"))
	foo := Value([]byte("foo"))
	if a == foo {
		t.Errorf("Value(\"a\") == Value(\"foo\"), both 0x%08x", a)
	}
}

// TestCRC32CExtend tests the Extend function.
func TestCRC32CExtend(t *testing.T) {
	full := Value([]byte("hello world"))
	partial := Value([]byte("hello "))
	extended := Extend(partial, []byte("world"))

	if extended != full {
		t.Errorf("Extend mismatch: got 0x%08x, want 0x%08x", extended, full)
	}
}

// TestCRC32CExtendMultiple tests multiple incremental extensions.
func TestCRC32CExtendMultiple(t *testing.T) {
	data := []byte("The quick brown fox jumps over the lazy dog")

	full := Value(data)

	var crc uint32 = 0
	for i := range data {
		if i == 0 {
			crc = Value(data[0:1])
		} else {
			crc = Extend(crc, data[i:i+1])
		}
	}

	if crc != full {
		t.Errorf("Incremental byte-by-byte mismatch: got 0x%08x, want 0x%08x", crc, full)
	}
}

// TestCRC32CEmptyExtend tests extending an empty CRC.
func TestCRC32CEmptyExtend(t *testing.T) {
	data := []byte("test")
	fromEmpty := Extend(0, data)
	direct := Value(data)

	if fromEmpty != direct {
		t.Errorf("Extend from 0 mismatch: got 0x%08x, want 0x%08x", fromEmpty, direct)
	}
}

// TestCRC32CLargeBuffer tests CRC on larger buffers.
func TestCRC32CLargeBuffer(t *testing.T) {
	sizes := []int{1024, 4096, 32768, 65536}

	for _, size := range sizes {
		buf := make([]byte, size)
		for i := range buf {
			buf[i] = byte(i % 256)
		}

		crc := Value(buf)
		if crc == 0 && size > 0 {
			t.Logf("Warning: CRC of %d bytes is zero", size)
		}

		half := size / 2
		crc1 := Value(buf[:half])
		crc2 := Extend(crc1, buf[half:])
		if crc2 != crc {
			t.Errorf("Extend mismatch for size %d: got 0x%08x, want 0x%08x", size, crc2, crc)
		}
	}
}

// TestCRC32CStitching tests stitching two computations together.
func TestCRC32CStitching(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for length := range 100 {
		data := make([]byte, length)
		for i := range data {
			data[i] = byte(rng.Intn(256))
		}

		full := Value(data)

		for split := 0; split <= length; split++ {
			part1 := data[:split]
			part2 := data[split:]

			crc1 := Value(part1)
			crc2 := Extend(crc1, part2)

			if crc2 != full {
				t.Errorf("Stitching failed at length=%d, split=%d: got 0x%08x, want 0x%08x",
					length, split, crc2, full)
			}
		}
	}
}

// Golden test vectors.
func TestCRC32CGolden(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		unmasked uint32
	}{
		{"empty", []byte{}, 0x00000000},
		{"foo", []byte("foo"), 0xcfc4ae1d},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unmasked := Value(tt.data)
			if unmasked != tt.unmasked {
				t.Errorf("Value(%q) = 0x%08x, want 0x%08x", tt.data, unmasked, tt.unmasked)
			}
		})
	}
}

// FuzzCRC32CExtend checks that Extend stitches Value computations correctly.
func FuzzCRC32CExtend(f *testing.F) {
	f.Add([]byte("hello"), []byte("world"))
	f.Add([]byte(""), []byte("test"))

	f.Fuzz(func(t *testing.T, part1, part2 []byte) {
		full := Value(append(part1, part2...))
		crc1 := Value(part1)
		crc2 := Extend(crc1, part2)

		if crc2 != full {
			t.Errorf("Extend mismatch for parts of len %d and %d", len(part1), len(part2))
		}
	})
}

func BenchmarkCRC32C(b *testing.B) {
	data := bytes.Repeat([]byte("x"), 4096)
	b.SetBytes(int64(len(data)))

	for b.Loop() {
		Value(data)
	}
}

func BenchmarkCRC32CExtend(b *testing.B) {
	data := bytes.Repeat([]byte("x"), 4096)
	b.SetBytes(int64(len(data)))

	for b.Loop() {
		crc := Value(data[:2048])
		Extend(crc, data[2048:])
	}
}
