package vector

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func testArtifact(t *testing.T) *Artifact {
	t.Helper()
	m, err := FromRows([][]float32{{0.5, -1.25, 3}, {0, 1e-7, -2}}, 3)
	if err != nil {
		t.Fatal(err)
	}
	return &Artifact{Matrix: m, Fingerprint: FingerprintTexts([]string{"a", "b"})}
}

func TestFingerprintTexts(t *testing.T) {
	base := FingerprintTexts([]string{"ab", "c"})
	if base != FingerprintTexts([]string{"ab", "c"}) {
		t.Error("fingerprint should be stable")
	}
	for _, texts := range [][]string{
		{"a", "bc"},
		{"c", "ab"},
		{"ab", "c", ""},
		{"ab", "d"},
	} {
		if FingerprintTexts(texts) == base {
			t.Errorf("fingerprint of %q collides with base", texts)
		}
	}
}

func TestArtifact_EncodeDecode(t *testing.T) {
	a := testArtifact(t)
	b, err := a.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeArtifact(b)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Matrix.Equal(a.Matrix, 0) {
		t.Error("matrix changed across encode/decode")
	}
	if got.Fingerprint != a.Fingerprint {
		t.Error("fingerprint changed across encode/decode")
	}
}

func TestArtifact_EmptyMatrix(t *testing.T) {
	m, _ := NewMatrix(0, 8, nil)
	b, err := (&Artifact{Matrix: m}).Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeArtifact(b)
	if err != nil {
		t.Fatal(err)
	}
	if got.Matrix.Rows() != 0 || got.Matrix.Cols() != 8 {
		t.Errorf("shape=%dx%d", got.Matrix.Rows(), got.Matrix.Cols())
	}
}

// overflowingHeader encodes a 2^31 x 2^31 shape with no payload and a valid checksum. The
// element count wraps to zero bytes when multiplied naively.
func overflowingHeader() []byte {
	b := make([]byte, headerSize+trailerSize)
	copy(b, artifactMagic)
	binary.LittleEndian.PutUint16(b[4:], artifactVersion)
	binary.LittleEndian.PutUint32(b[6:], 1<<31)
	binary.LittleEndian.PutUint32(b[10:], 1<<31)
	binary.LittleEndian.PutUint32(b[headerSize:], crc32.ChecksumIEEE(b[:headerSize]))
	return b
}

func TestDecodeArtifact_Corrupt(t *testing.T) {
	good, _ := testArtifact(t).Encode()
	mutate := func(f func([]byte) []byte) []byte {
		b := append([]byte(nil), good...)
		return f(b)
	}
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", good[:len(good)-5]},
		{"trailing", append(append([]byte(nil), good...), 0)},
		{"magic", mutate(func(b []byte) []byte { b[0] = 'X'; return b })},
		{"version", mutate(func(b []byte) []byte { b[4] = 9; return b })},
		{"payload", mutate(func(b []byte) []byte { b[headerSize] ^= 0xff; return b })},
		{"rows", mutate(func(b []byte) []byte { b[6] = 3; return b })},
		{"overflowing shape", overflowingHeader()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeArtifact(tt.data); !errors.Is(err, ErrCorruptArtifact) {
				t.Errorf("expected ErrCorruptArtifact, got %v", err)
			}
		})
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	id := "neurips_2024"
	if ok, _ := s.Exists(id); ok {
		t.Fatal("artifact should not exist yet")
	}
	if _, err := s.Load(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	a := testArtifact(t)
	if err := s.Save(id, a); err != nil {
		t.Fatal(err)
	}
	if filepath.Base(s.Path(id)) != "neurips_2024_embeddings.vec" {
		t.Errorf("Path=%s", s.Path(id))
	}
	if ok, err := s.Exists(id); err != nil || !ok {
		t.Fatalf("Exists=%v err=%v", ok, err)
	}
	got, err := s.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Matrix.Equal(a.Matrix, 0) {
		t.Error("loaded matrix differs")
	}

	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 1 {
		t.Errorf("expected only the artifact in the directory, found %d entries", len(entries))
	}
	ids, err := s.Identities()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []string{id}) {
		t.Errorf("Identities=%v", ids)
	}

	if err := s.Remove(id); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(id); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	s, _ := NewFileStore(t.TempDir())
	if err := os.WriteFile(s.Path("broken"), []byte("CATV garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load("broken"); !errors.Is(err, ErrCorruptArtifact) {
		t.Errorf("expected ErrCorruptArtifact, got %v", err)
	}
}

func TestFileStore_InvalidIdentity(t *testing.T) {
	s, _ := NewFileStore(t.TempDir())
	for _, id := range []string{"", "..", "a/b", `a\b`} {
		if err := s.Save(id, testArtifact(t)); err == nil {
			t.Errorf("Save(%q) should fail", id)
		}
	}
}
