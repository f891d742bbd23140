package vector

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
)

// ErrCorruptArtifact is returned when an artifact fails validation on load.
var ErrCorruptArtifact = errors.New("corrupt embedding artifact")

const (
	artifactMagic   = "CATV"
	artifactVersion = uint16(1)
	// magic + version + rows + cols + fingerprint
	headerSize  = 4 + 2 + 4 + 4 + sha256.Size
	trailerSize = 4
)

// Fingerprint identifies the exact texts a matrix was computed from.
type Fingerprint [sha256.Size]byte

// FingerprintTexts hashes the row count and every text, length-prefixed, so that any edit,
// insertion, or reordering changes the result.
func FingerprintTexts(texts []string) Fingerprint {
	h := sha256.New()
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(texts)))
	h.Write(n[:])
	for _, t := range texts {
		binary.LittleEndian.PutUint64(n[:], uint64(len(t)))
		h.Write(n[:])
		h.Write([]byte(t))
	}
	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}

// Artifact is a persisted embedding matrix plus the fingerprint of its source texts.
type Artifact struct {
	Matrix      *Matrix
	Fingerprint Fingerprint
}

// Encode serializes the artifact. All integers and floats are little-endian and the last
// four bytes are a CRC-32 (IEEE) of everything before them.
func (a *Artifact) Encode() ([]byte, error) {
	if a == nil || a.Matrix == nil {
		return nil, errors.New("encode artifact: nil matrix")
	}
	m := a.Matrix
	if uint64(m.rows) > math.MaxUint32 || uint64(m.cols) > math.MaxUint32 {
		return nil, fmt.Errorf("encode artifact: matrix %dx%d too large", m.rows, m.cols)
	}
	buf := make([]byte, headerSize+4*len(m.data)+trailerSize)
	copy(buf, artifactMagic)
	binary.LittleEndian.PutUint16(buf[4:], artifactVersion)
	binary.LittleEndian.PutUint32(buf[6:], uint32(m.rows))
	binary.LittleEndian.PutUint32(buf[10:], uint32(m.cols))
	copy(buf[14:headerSize], a.Fingerprint[:])
	off := headerSize
	for _, v := range m.data {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:], crc32.ChecksumIEEE(buf[:off]))
	return buf, nil
}

// DecodeArtifact parses an encoded artifact. Any truncation, trailing data, bad magic,
// unknown version, or checksum mismatch yields ErrCorruptArtifact.
func DecodeArtifact(b []byte) (*Artifact, error) {
	if len(b) < headerSize+trailerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptArtifact, len(b))
	}
	if !bytes.Equal(b[:4], []byte(artifactMagic)) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptArtifact, b[:4])
	}
	if v := binary.LittleEndian.Uint16(b[4:]); v != artifactVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptArtifact, v)
	}
	rows := uint64(binary.LittleEndian.Uint32(b[6:]))
	cols := uint64(binary.LittleEndian.Uint32(b[10:]))
	if cols == 0 {
		return nil, fmt.Errorf("%w: zero columns", ErrCorruptArtifact)
	}
	// Bound rows by the payload first; rows*cols can overflow uint64 otherwise.
	capacity := uint64(len(b)-headerSize-trailerSize) / 4
	if rows > capacity/cols {
		return nil, fmt.Errorf("%w: header claims %dx%d, payload holds %d values", ErrCorruptArtifact, rows, cols, capacity)
	}
	want := uint64(headerSize) + 4*rows*cols + trailerSize
	if uint64(len(b)) != want {
		return nil, fmt.Errorf("%w: size %d, header implies %d", ErrCorruptArtifact, len(b), want)
	}
	body := len(b) - trailerSize
	if crc32.ChecksumIEEE(b[:body]) != binary.LittleEndian.Uint32(b[body:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptArtifact)
	}

	var fp Fingerprint
	copy(fp[:], b[14:headerSize])
	data := make([]float32, rows*cols)
	off := headerSize
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
		off += 4
	}
	m, err := NewMatrix(int(rows), int(cols), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	return &Artifact{Matrix: m, Fingerprint: fp}, nil
}
