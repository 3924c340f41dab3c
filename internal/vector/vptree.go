package vector

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/hyperjump/movierec/internal/models"
)

// vpNode is one vantage point. Points in the inside subtree lie at tree distance
// <= threshold from the vantage point, points in the outside subtree at >= threshold.
type vpNode struct {
	point     int32
	threshold float64
	inside    int32
	outside   int32
}

// VPTreeIndex is an exact vantage-point tree index. Tree distances are Euclidean;
// under cosine the tree is built over L2-normalized copies of the vectors, which
// preserves ranking because |a-b|^2 = 2(1-cos) for unit vectors.
type VPTreeIndex struct {
	base  *FlatIndex
	space []float32 // tree-space vectors, aliases base.data under l2
	zeros []int32   // zero-norm vectors kept outside the tree (cosine only)
	nodes []vpNode
}

// NewVPTreeIndex builds a vantage-point tree over vectors. Vector i gets id i.
// Supported metrics: l2, cosine.
func NewVPTreeIndex(metric Metric, vectors [][]float32) (*VPTreeIndex, error) {
	base, err := NewFlatIndex(metric, vectors)
	if err != nil {
		return nil, err
	}
	return newVPTree(base, nil)
}

// newVPTree wraps base. With nodes == nil the tree is built; otherwise nodes
// are validated and adopted.
func newVPTree(base *FlatIndex, nodes []vpNode) (*VPTreeIndex, error) {
	if base.metric == MetricInnerProduct {
		return nil, fmt.Errorf("vptree index does not support metric %s (supported: l2, cosine)", base.metric)
	}
	t := &VPTreeIndex{base: base, space: base.data}
	var points []int32
	if base.metric == MetricCosine {
		t.space = make([]float32, len(base.data))
		for i := 0; i < base.n; i++ {
			norm := base.norms[i]
			if norm == 0 {
				t.zeros = append(t.zeros, int32(i))
				continue
			}
			row := base.row(i)
			out := t.space[i*base.dimensions : (i+1)*base.dimensions]
			for j, v := range row {
				out[j] = float32(float64(v) / norm)
			}
			points = append(points, int32(i))
		}
	} else {
		points = make([]int32, base.n)
		for i := range points {
			points[i] = int32(i)
		}
	}

	if nodes == nil {
		t.nodes = make([]vpNode, 0, len(points))
		t.build(points)
		return t, nil
	}
	if err := t.checkNodes(nodes, len(points)); err != nil {
		return nil, err
	}
	t.nodes = nodes
	return t, nil
}

func (t *VPTreeIndex) spaceRow(i int32) []float32 {
	d := t.base.dimensions
	return t.space[int(i)*d : (int(i)+1)*d]
}

func (t *VPTreeIndex) treeDistance(a []float32, p int32) float64 {
	return math.Sqrt(SquaredL2(a, t.spaceRow(p)))
}

// build appends the subtree over points in preorder and returns its root.
func (t *VPTreeIndex) build(points []int32) int32 {
	if len(points) == 0 {
		return -1
	}
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, vpNode{point: points[0], inside: -1, outside: -1})
	rest := points[1:]
	if len(rest) == 0 {
		return idx
	}

	vp := t.spaceRow(points[0])
	dists := make(map[int32]float64, len(rest))
	for _, p := range rest {
		dists[p] = t.treeDistance(vp, p)
	}
	sort.Slice(rest, func(i, j int) bool {
		di, dj := dists[rest[i]], dists[rest[j]]
		if di != dj {
			return di < dj
		}
		return rest[i] < rest[j]
	})
	mid := len(rest) / 2
	t.nodes[idx].threshold = dists[rest[mid]]
	inside := t.build(rest[:mid])
	outside := t.build(rest[mid:])
	t.nodes[idx].inside = inside
	t.nodes[idx].outside = outside
	return idx
}

// checkNodes verifies a decoded node table: every tree point appears exactly
// once, children always follow their parent, and every node except the root
// has exactly one parent, so all nodes are reachable from node 0.
func (t *VPTreeIndex) checkNodes(nodes []vpNode, points int) error {
	if len(nodes) != points {
		return fmt.Errorf("vptree has %d nodes, expected %d", len(nodes), points)
	}
	seen := make([]bool, t.base.n)
	for _, z := range t.zeros {
		seen[z] = true
	}
	hasParent := make([]bool, len(nodes))
	for i, nd := range nodes {
		if nd.point < 0 || int(nd.point) >= t.base.n || seen[nd.point] {
			return fmt.Errorf("vptree node %d has invalid point %d", i, nd.point)
		}
		seen[nd.point] = true
		for _, c := range []int32{nd.inside, nd.outside} {
			if c == -1 {
				continue
			}
			if c <= int32(i) || int(c) >= len(nodes) || hasParent[c] {
				return fmt.Errorf("vptree node %d has invalid child %d", i, c)
			}
			hasParent[c] = true
		}
	}
	for i := 1; i < len(nodes); i++ {
		if !hasParent[i] {
			return fmt.Errorf("vptree node %d is unreachable", i)
		}
	}
	return nil
}

// Query returns the k nearest vectors. Results are identical to FlatIndex.
func (t *VPTreeIndex) Query(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	b := t.base
	if err := validateQuery(query, k, b.n, b.dimensions); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	qNorm := L2Norm(query)
	if b.metric == MetricCosine && qNorm == 0 {
		// every distance is 1, so ties decide
		out := make([]Neighbor, k)
		for i := range out {
			out[i] = Neighbor{ID: models.ItemID(i), Distance: 1}
		}
		return out, nil
	}

	q := query
	if b.metric == MetricCosine {
		q = make([]float32, len(query))
		for i, v := range query {
			q[i] = float32(float64(v) / qNorm)
		}
	}

	h := newNeighborHeap(k)
	for _, z := range t.zeros {
		h.offer(Neighbor{ID: models.ItemID(z), Distance: b.metric.Distance(query, b.row(int(z)), qNorm, 0)})
	}
	if len(t.nodes) > 0 {
		s := &vpSearch{t: t, query: query, q: q, qNorm: qNorm, heap: h}
		s.visit(0)
	}
	return h.sorted(), nil
}

type vpSearch struct {
	t     *VPTreeIndex
	query []float32
	q     []float32
	qNorm float64
	heap  *neighborHeap
}

// radius converts the current heap bound into a tree-space search radius, with
// slack for rounding differences between the two distance formulas.
func (s *vpSearch) radius() float64 {
	if !s.heap.full() {
		return math.Inf(1)
	}
	bound := math.Max(s.heap.bound(), 0)
	var r float64
	if s.t.base.metric == MetricCosine {
		r = math.Sqrt(2 * bound)
	} else {
		r = math.Sqrt(bound)
	}
	return r*(1+1e-6) + 1e-9
}

func (s *vpSearch) visit(i int32) {
	if i < 0 {
		return
	}
	nd := s.t.nodes[i]
	b := s.t.base
	p := int(nd.point)
	s.heap.offer(Neighbor{
		ID:       models.ItemID(p),
		Distance: b.metric.Distance(s.query, b.row(p), s.qNorm, b.norms[p]),
	})
	d := s.t.treeDistance(s.q, nd.point)

	if d < nd.threshold {
		if d-s.radius() <= nd.threshold {
			s.visit(nd.inside)
		}
		if d+s.radius() >= nd.threshold {
			s.visit(nd.outside)
		}
		return
	}
	if d+s.radius() >= nd.threshold {
		s.visit(nd.outside)
	}
	if d-s.radius() <= nd.threshold {
		s.visit(nd.inside)
	}
}

// Size returns the number of indexed vectors.
func (t *VPTreeIndex) Size() int { return t.base.n }

// Dimensions returns the vector dimension.
func (t *VPTreeIndex) Dimensions() int { return t.base.dimensions }

// Metric returns the distance metric.
func (t *VPTreeIndex) Metric() Metric { return t.base.metric }

// Type returns the index type identifier.
func (t *VPTreeIndex) Type() string { return string(IndexTypeVPTree) }

// MarshalBinary serializes the vectors followed by the node table.
func (t *VPTreeIndex) MarshalBinary() ([]byte, error) {
	b := t.base
	enc := newEncoder(kindVPTree, b.metric, b.dimensions, b.n)
	enc.floats(b.data)
	enc.u32(uint32(len(t.nodes)))
	for _, nd := range t.nodes {
		enc.i32(nd.point)
		enc.f64(nd.threshold)
		enc.i32(nd.inside)
		enc.i32(nd.outside)
	}
	return enc.bytes(), nil
}

// Close is a no-op for VPTreeIndex.
func (t *VPTreeIndex) Close() error { return nil }

func decodeVPTree(metric Metric, data []byte) (*VPTreeIndex, error) {
	dec, err := newDecoder(data, kindVPTree, metric)
	if err != nil {
		return nil, err
	}
	vecs, err := dec.floats(dec.n * dec.dim)
	if err != nil {
		return nil, err
	}
	count, err := dec.u32()
	if err != nil {
		return nil, err
	}
	if int(count) > dec.n {
		return nil, fmt.Errorf("vptree has %d nodes for %d vectors", count, dec.n)
	}
	nodes := make([]vpNode, count)
	for i := range nodes {
		var nd vpNode
		if nd.point, err = dec.i32(); err != nil {
			return nil, err
		}
		if nd.threshold, err = dec.f64(); err != nil {
			return nil, err
		}
		if nd.inside, err = dec.i32(); err != nil {
			return nil, err
		}
		if nd.outside, err = dec.i32(); err != nil {
			return nil, err
		}
		nodes[i] = nd
	}
	if err := dec.done(); err != nil {
		return nil, err
	}
	base, err := newFlatFromData(metric, dec.dim, dec.n, vecs)
	if err != nil {
		return nil, err
	}
	return newVPTree(base, nodes)
}
