package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// The index persists as two co-located artifacts under one directory:
// vectors.bin (binary payload) and docstore.json (ordered chunk records).
// They are written and read as one atomic unit. Both carry the same save
// stamp so artifacts from different saves can never be read as a pair.

const (
	vectorsFile  = "vectors.bin"
	docstoreFile = "docstore.json"

	vectorsMagic   = "EVIX"
	vectorsVersion = 2
	headerSize     = 24
)

type docstore struct {
	Stamp     uint64  `json:"stamp"`
	Dimension int     `json:"dimension"`
	Count     int     `json:"count"`
	Chunks    []Chunk `json:"chunks"`
}

// Save writes both artifacts to temporary files and renames each over
// its predecessor. File-over-file rename is atomic, so a crash at any
// point leaves either the old artifact or the new one at every path,
// never a partial write and never an empty slot; a crash between the
// two renames leaves a mixed pair, which Load rejects via the stamp.
func (x *Index) Save(path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return err
	}

	stamp := uint64(time.Now().UnixNano())
	vecTmp := filepath.Join(path, vectorsFile+".tmp")
	docTmp := filepath.Join(path, docstoreFile+".tmp")

	if err := x.writeVectors(vecTmp, stamp); err != nil {
		os.Remove(vecTmp)
		return err
	}
	if err := x.writeDocstore(docTmp, stamp); err != nil {
		os.Remove(vecTmp)
		os.Remove(docTmp)
		return err
	}

	if err := os.Rename(vecTmp, filepath.Join(path, vectorsFile)); err != nil {
		return err
	}
	return os.Rename(docTmp, filepath.Join(path, docstoreFile))
}

// Load reads a previously saved index. Returns ErrNotFound when the
// directory is missing and ErrCorrupt when the two artifacts disagree.
func Load(path string) (*Index, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	dim, stamp, vectors, err := readVectors(filepath.Join(path, vectorsFile))
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filepath.Join(path, docstoreFile)) // #nosec G304 -- path is from application config, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: missing %s", ErrCorrupt, docstoreFile)
		}
		return nil, err
	}
	var ds docstore
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if ds.Stamp != stamp {
		return nil, fmt.Errorf("%w: artifacts are from different saves", ErrCorrupt)
	}
	count := len(vectors) / dim
	if ds.Dimension != dim || ds.Count != count || len(ds.Chunks) != count {
		return nil, fmt.Errorf("%w: vectors has %d x %d, docstore claims %d x %d (%d chunks)",
			ErrCorrupt, count, dim, ds.Count, ds.Dimension, len(ds.Chunks))
	}

	return &Index{dim: dim, vectors: vectors, chunks: ds.Chunks}, nil
}

// Delete removes both artifacts. A missing directory is not an error.
func Delete(path string) error {
	return os.RemoveAll(path)
}

func (x *Index) writeVectors(path string, stamp uint64) error {
	f, err := os.Create(path) // #nosec G304 -- path is derived from application config
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]byte, headerSize)
	copy(header[0:4], vectorsMagic)
	binary.LittleEndian.PutUint32(header[4:8], vectorsVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(x.dim))
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(x.chunks)))
	binary.LittleEndian.PutUint64(header[16:24], stamp)
	if _, err := f.Write(header); err != nil {
		return err
	}

	buf := make([]byte, 4*len(x.vectors))
	for i, v := range x.vectors {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	if _, err := f.Write(buf); err != nil {
		return err
	}
	return f.Sync()
}

func (x *Index) writeDocstore(path string, stamp uint64) error {
	ds := docstore{Stamp: stamp, Dimension: x.dim, Count: len(x.chunks), Chunks: x.chunks}
	raw, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func readVectors(path string) (int, uint64, []float32, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path is derived from application config
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil, fmt.Errorf("%w: missing %s", ErrCorrupt, vectorsFile)
		}
		return 0, 0, nil, err
	}
	if len(raw) < headerSize || string(raw[0:4]) != vectorsMagic {
		return 0, 0, nil, fmt.Errorf("%w: bad vector file header", ErrCorrupt)
	}
	if binary.LittleEndian.Uint32(raw[4:8]) != vectorsVersion {
		return 0, 0, nil, fmt.Errorf("%w: unsupported vector file version", ErrCorrupt)
	}
	dim := int(binary.LittleEndian.Uint32(raw[8:12]))
	count := int(binary.LittleEndian.Uint32(raw[12:16]))
	stamp := binary.LittleEndian.Uint64(raw[16:24])
	if dim <= 0 {
		return 0, 0, nil, fmt.Errorf("%w: non-positive dimension", ErrCorrupt)
	}

	payload := raw[headerSize:]
	if len(payload) != 4*dim*count {
		return 0, 0, nil, fmt.Errorf("%w: vector payload size does not match header", ErrCorrupt)
	}
	vectors := make([]float32, dim*count)
	for i := range vectors {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return dim, stamp, vectors, nil
}
