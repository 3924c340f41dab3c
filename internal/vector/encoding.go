package vector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Serialized index layout (little-endian):
//
//	magic "MRIX" | version u16 | kind u8 | metric u8 | dim u32 | n u32 | body
//
// The flat body is n*dim float32 values. The vptree body is the flat body
// followed by the node table (see vptree.go). The faiss body is a u32 length
// and the blob written by faiss_write_index_fname.
const (
	indexMagic   = "MRIX"
	indexVersion = uint16(1)
	headerSize   = 4 + 2 + 1 + 1 + 4 + 4

	kindFlat   = uint8(1)
	kindVPTree = uint8(2)
	kindFAISS  = uint8(3)
)

var errTruncated = errors.New("index data truncated")

func metricCode(m Metric) uint8 {
	switch m {
	case MetricCosine:
		return 1
	case MetricInnerProduct:
		return 2
	default:
		return 0
	}
}

func metricFromCode(c uint8) (Metric, error) {
	switch c {
	case 0:
		return MetricL2, nil
	case 1:
		return MetricCosine, nil
	case 2:
		return MetricInnerProduct, nil
	default:
		return "", fmt.Errorf("unknown metric code %d", c)
	}
}

type encoder struct {
	buf bytes.Buffer
}

func newEncoder(kind uint8, metric Metric, dim, n int) *encoder {
	e := &encoder{}
	e.buf.WriteString(indexMagic)
	e.u16(indexVersion)
	e.buf.WriteByte(kind)
	e.buf.WriteByte(metricCode(metric))
	e.u32(uint32(dim))
	e.u32(uint32(n))
	return e
}

func (e *encoder) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) i32(v int32) { e.u32(uint32(v)) }

func (e *encoder) f64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	e.buf.Write(b[:])
}

func (e *encoder) floats(vs []float32) {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	e.buf.Write(b)
}

func (e *encoder) bytes() []byte { return e.buf.Bytes() }

type decoder struct {
	data []byte
	off  int
	dim  int
	n    int
}

// newDecoder validates the header against the expected kind and metric.
func newDecoder(data []byte, kind uint8, metric Metric) (*decoder, error) {
	if len(data) < headerSize {
		return nil, errTruncated
	}
	if string(data[:4]) != indexMagic {
		return nil, fmt.Errorf("bad index magic %q", data[:4])
	}
	d := &decoder{data: data, off: 4}
	version, _ := d.u16()
	if version != indexVersion {
		return nil, fmt.Errorf("unsupported index version %d", version)
	}
	gotKind := d.data[d.off]
	gotMetric, err := metricFromCode(d.data[d.off+1])
	d.off += 2
	if err != nil {
		return nil, err
	}
	if gotKind != kind {
		return nil, fmt.Errorf("index kind mismatch: data has %d, expected %d", gotKind, kind)
	}
	if gotMetric != metric {
		return nil, fmt.Errorf("index metric mismatch: data has %s, expected %s", gotMetric, metric)
	}
	dim, _ := d.u32()
	n, _ := d.u32()
	// every kind stores at least n*dim floats after the header
	if uint64(dim)*uint64(n) > uint64(len(d.data)-d.off)/4 {
		return nil, fmt.Errorf("index header claims %d x %d vectors: %w", n, dim, errTruncated)
	}
	d.dim, d.n = int(dim), int(n)
	return d, nil
}

func (d *decoder) u16() (uint16, error) {
	if d.off+2 > len(d.data) {
		return 0, errTruncated
	}
	v := binary.LittleEndian.Uint16(d.data[d.off:])
	d.off += 2
	return v, nil
}

func (d *decoder) u32() (uint32, error) {
	if d.off+4 > len(d.data) {
		return 0, errTruncated
	}
	v := binary.LittleEndian.Uint32(d.data[d.off:])
	d.off += 4
	return v, nil
}

func (d *decoder) i32() (int32, error) {
	v, err := d.u32()
	return int32(v), err
}

func (d *decoder) f64() (float64, error) {
	if d.off+8 > len(d.data) {
		return 0, errTruncated
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(d.data[d.off:]))
	d.off += 8
	return v, nil
}

func (d *decoder) floats(count int) ([]float32, error) {
	if count < 0 || count > (len(d.data)-d.off)/4 {
		return nil, errTruncated
	}
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(d.data[d.off+4*i:]))
	}
	d.off += 4 * count
	return out, nil
}

// done fails if unread bytes remain.
func (d *decoder) done() error {
	if d.off != len(d.data) {
		return fmt.Errorf("index data has %d trailing bytes", len(d.data)-d.off)
	}
	return nil
}
