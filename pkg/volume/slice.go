package volume

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/chazu/ember/pkg/kernel"
	"github.com/chazu/ember/pkg/pqueue"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	// A box has 12 edges and the sweep activates each one at most once.
	maxEdges = 12

	// A plane cuts a box in at most a hexagon.
	maxPolygon = 6
)

// activeEdge is a box edge currently crossed by the sweep plane. pos and tex
// hold the intersection with the current plane; the deltas move them to the
// next plane.
type activeEdge struct {
	expired    bool
	start, end int

	pos, tex           v3.Vec
	deltaPos, deltaTex v3.Vec

	prev, next int
}

// sweep holds the per-call state of a slicing pass.
type sweep struct {
	box *Box

	distance      [numCorners]float64
	sliceDistance float64

	edges [maxEdges]activeEdge
	count int
	first int

	// Edge indices keyed by the distance of their end corner, highest first.
	expirations *pqueue.Queue[int]
}

// Slice cuts the box with planes perpendicular to view, a unit vector in
// object space pointing from the viewer into the scene. Planes lie at integer
// multiples of the spacing along view, starting at the farthest corner. The
// returned mesh lists slices far to near; each slice is a convex polygon
// fanned into triangles.
//
// A box whose corners all project to the same distance produces a single
// degenerate triangle. Errors of type ErrTypeCapacityExceeded or
// ErrTypeTopology indicate a broken sweep; no partial mesh is returned.
func (b *Box) Slice(view v3.Vec) (*kernel.Mesh, error) {
	s := &sweep{
		box:         b,
		expirations: pqueue.New[int](),
	}
	return s.run(view)
}

func (s *sweep) run(view v3.Vec) (*kernel.Mesh, error) {
	b := s.box

	maxCorner := 0
	maxDistance := math.Inf(-1)
	minDistance := math.Inf(1)
	for i := 0; i < numCorners; i++ {
		d := b.pos[i].Dot(view)
		s.distance[i] = d
		if d > maxDistance {
			maxCorner = i
			maxDistance = d
		}
		if d < minDistance {
			minDistance = d
		}
	}

	first := math.Floor(maxDistance/b.spacing) * b.spacing
	if first > maxDistance {
		first -= b.spacing
	}
	s.sliceDistance = first

	for i, end := range b.neighbors[maxCorner] {
		idx, err := s.createEdge(maxCorner, end)
		if err != nil {
			return nil, err
		}
		s.edges[idx].prev = (i + 2) % 3
		s.edges[idx].next = (i + 1) % 3
	}

	vertices, indices := b.Capacity()
	mesh := &kernel.Mesh{
		Vertices:  make([]float32, 0, vertices*3),
		TexCoords: make([]float32, 0, vertices*3),
		Indices:   make([]uint32, 0, indices),
	}

	if maxDistance == minDistance {
		if err := s.checkCycle(); err != nil {
			return nil, err
		}
		s.emit(mesh)
		return mesh, nil
	}

	for k := 0; ; k++ {
		s.sliceDistance = first - float64(k)*b.spacing
		if !(s.sliceDistance > minDistance) {
			break
		}
		if err := s.expire(); err != nil {
			return nil, err
		}
		if err := s.checkCycle(); err != nil {
			return nil, err
		}
		s.emit(mesh)
	}
	return mesh, nil
}

// createEdge activates the box edge from start to end, positioned on the
// current plane, and returns its index.
func (s *sweep) createEdge(start, end int) (int, error) {
	if s.count >= maxEdges {
		return -1, errors.New("active edge capacity exceeded").
			WithType(ErrTypeCapacityExceeded).
			WithTag("max_edges", maxEdges).
			WithTag("start", start).
			WithTag("end", end)
	}

	b := s.box
	idx := s.count
	s.count++

	e := &s.edges[idx]
	*e = activeEdge{
		start: start,
		end:   end,
		pos:   b.pos[start],
		tex:   b.tex[start],
	}

	// Zero-length edges along the view stay pinned to their start corner.
	if r := s.distance[start] - s.distance[end]; r != 0 {
		deltaPos := b.pos[end].Sub(b.pos[start]).MulScalar(1 / r)
		deltaTex := b.tex[end].Sub(b.tex[start]).MulScalar(1 / r)

		step := s.distance[start] - s.sliceDistance
		e.pos = e.pos.Add(deltaPos.MulScalar(step))
		e.tex = e.tex.Add(deltaTex.MulScalar(step))

		e.deltaPos = deltaPos.MulScalar(b.spacing)
		e.deltaTex = deltaTex.MulScalar(b.spacing)
	}

	s.expirations.Push(idx, s.distance[end])
	return idx, nil
}

// turn looks up the corner following from when the sweep passes corner at.
func (s *sweep) turn(at, from int) (int, error) {
	next := s.box.incoming[at][from]
	if next < 0 {
		return -1, errors.New("corners share no box edge").
			WithType(ErrTypeTopology).
			WithTag("corner", at).
			WithTag("from", from).
			WithTag("slice_distance", s.sliceDistance)
	}
	return next, nil
}

// expire processes every edge whose end corner the plane has reached.
func (s *sweep) expire() error {
	for {
		idx, priority, ok := s.expirations.Top()
		if !ok || priority < s.sliceDistance {
			return nil
		}
		s.expirations.Pop()

		e := &s.edges[idx]
		if e.expired {
			continue
		}

		var err error
		if e.end != s.edges[e.prev].end && e.end != s.edges[e.next].end {
			err = s.split(idx)
		} else {
			err = s.merge(idx)
		}
		if err != nil {
			return err
		}
	}
}

// split replaces an edge with the two edges leaving its end corner.
func (s *sweep) split(idx int) error {
	e := &s.edges[idx]
	e.expired = true
	corner, prev, next := e.end, e.prev, e.next

	c1, err := s.turn(corner, e.start)
	if err != nil {
		return err
	}
	e1, err := s.createEdge(corner, c1)
	if err != nil {
		return err
	}
	c2, err := s.turn(corner, c1)
	if err != nil {
		return err
	}
	e2, err := s.createEdge(corner, c2)
	if err != nil {
		return err
	}

	s.edges[e1].prev = prev
	s.edges[prev].next = e1
	s.edges[e1].next = e2
	s.edges[e2].prev = e1
	s.edges[e2].next = next
	s.edges[next].prev = e2

	s.first = e2
	return nil
}

// merge replaces an edge and its neighbour sharing the same end corner with
// the single edge leaving that corner.
func (s *sweep) merge(idx int) error {
	e := &s.edges[idx]
	corner := e.end

	prev, next := idx, e.next
	if s.edges[e.prev].end == corner {
		prev, next = e.prev, idx
	}
	s.edges[prev].expired = true
	s.edges[next].expired = true

	c, err := s.turn(corner, s.edges[prev].start)
	if err != nil {
		return err
	}
	m, err := s.createEdge(corner, c)
	if err != nil {
		return err
	}

	before, after := s.edges[prev].prev, s.edges[next].next
	s.edges[m].prev = before
	s.edges[before].next = m
	s.edges[m].next = after
	s.edges[after].prev = m

	s.first = m
	return nil
}

// checkCycle verifies that the live edges form one closed, consistently
// linked polygon.
func (s *sweep) checkCycle() error {
	n := 0
	for cur := s.first; ; {
		e := &s.edges[cur]
		switch {
		case e.expired:
			return s.cycleError("expired edge in cycle", cur, n)
		case s.edges[e.next].prev != cur:
			return s.cycleError("inconsistent cycle links", cur, n)
		}

		n++
		if n > maxPolygon {
			return s.cycleError("cycle longer than a box cross-section", cur, n)
		}

		cur = e.next
		if cur == s.first {
			break
		}
	}
	if n < 3 {
		return s.cycleError("cycle shorter than a triangle", s.first, n)
	}
	return nil
}

func (s *sweep) cycleError(msg string, edge, length int) error {
	return errors.New(msg).
		WithType(ErrTypeTopology).
		WithTag("edge", edge).
		WithTag("length", length).
		WithTag("slice_distance", s.sliceDistance)
}

// emit appends the current polygon as a triangle fan and advances every live
// edge to the next plane.
func (s *sweep) emit(m *kernel.Mesh) {
	base := uint32(m.VertexCount())

	n := 0
	for cur := s.first; ; {
		e := &s.edges[cur]
		m.Vertices = append(m.Vertices, float32(e.pos.X), float32(e.pos.Y), float32(e.pos.Z))
		m.TexCoords = append(m.TexCoords, float32(e.tex.X), float32(e.tex.Y), float32(e.tex.Z))
		e.pos = e.pos.Add(e.deltaPos)
		e.tex = e.tex.Add(e.deltaTex)
		n++

		cur = e.next
		if cur == s.first {
			break
		}
	}

	for i := 2; i < n; i++ {
		m.Indices = append(m.Indices, base, base+uint32(i-1), base+uint32(i))
	}
	m.Slices++
}
