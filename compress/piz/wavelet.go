// 2D reversible Haar-like wavelet transform over u16 wavelet
// coefficients, operating under modular (wraparound) arithmetic so
// the transform is exactly invertible regardless of intermediate
// overflow.
//
// Grounded on jpeg2000/wavelet/dwt53.go's shape: a 1D lifting pass
// that splits a row into low-pass/high-pass halves via a temporary
// buffer, applied recursively level by level (horizontal pass over
// every row, then vertical pass over every column), adapted here from
// the 5/3 predict/update coefficients to the simpler reversible Haar
// lifting PIZ's 16-bit-modular transform uses.
package piz

// liftForward1D splits data in place into a low-pass half (first sn
// entries) and a high-pass half (remaining dn entries), using
// reversible integer lifting: for each adjacent pair (a,b),
// d = a-b, s = b + (d>>1), both mod 65536. Odd-length rows carry their
// last sample through unchanged, mirroring dwt53's odd-width handling.
func liftForward1D(data []uint16) {
	n := len(data)
	if n <= 1 {
		return
	}
	sn := (n + 1) / 2
	dn := n - sn
	tmp := make([]uint16, n)
	for i := 0; i < dn; i++ {
		a := data[2*i]
		b := data[2*i+1]
		d := a - b
		s := b + uint16(int16(d)>>1)
		tmp[i] = s
		tmp[sn+i] = d
	}
	if n%2 == 1 {
		tmp[sn-1] = data[n-1]
	}
	copy(data, tmp)
}

// liftInverse1D is the exact inverse of liftForward1D.
func liftInverse1D(data []uint16) {
	n := len(data)
	if n <= 1 {
		return
	}
	sn := (n + 1) / 2
	dn := n - sn
	tmp := make([]uint16, n)
	if n%2 == 1 {
		tmp[n-1] = data[sn-1]
	}
	for i := 0; i < dn; i++ {
		s := data[i]
		d := data[sn+i]
		b := s - uint16(int16(d)>>1)
		a := b + d
		tmp[2*i] = a
		tmp[2*i+1] = b
	}
	copy(data, tmp)
}

type wavLevel struct{ w, h int }

// levelSequence returns the (w,h) size at each recursive level of the
// transform, largest first, stopping once both dimensions are 1.
func levelSequence(width, height int) []wavLevel {
	var levels []wavLevel
	w, h := width, height
	for w > 1 || h > 1 {
		levels = append(levels, wavLevel{w, h})
		w = (w + 1) / 2
		h = (h + 1) / 2
	}
	return levels
}

// Forward2D transforms data (row-major, stride=width) in place across
// every recursive level: horizontal lifting over each active row, then
// vertical lifting over each active column, then recurse into the
// low-pass (top-left w'xh') quadrant.
func Forward2D(data []uint16, width, height int) {
	for _, lvl := range levelSequence(width, height) {
		w, h := lvl.w, lvl.h
		if w > 1 {
			row := make([]uint16, w)
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					row[x] = data[y*width+x]
				}
				liftForward1D(row)
				for x := 0; x < w; x++ {
					data[y*width+x] = row[x]
				}
			}
		}
		if h > 1 {
			col := make([]uint16, h)
			for x := 0; x < w; x++ {
				for y := 0; y < h; y++ {
					col[y] = data[y*width+x]
				}
				liftForward1D(col)
				for y := 0; y < h; y++ {
					data[y*width+x] = col[y]
				}
			}
		}
	}
}

// Inverse2D is the exact inverse of Forward2D.
func Inverse2D(data []uint16, width, height int) {
	levels := levelSequence(width, height)
	for i := len(levels) - 1; i >= 0; i-- {
		w, h := levels[i].w, levels[i].h
		if h > 1 {
			col := make([]uint16, h)
			for x := 0; x < w; x++ {
				for y := 0; y < h; y++ {
					col[y] = data[y*width+x]
				}
				liftInverse1D(col)
				for y := 0; y < h; y++ {
					data[y*width+x] = col[y]
				}
			}
		}
		if w > 1 {
			row := make([]uint16, w)
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					row[x] = data[y*width+x]
				}
				liftInverse1D(row)
				for x := 0; x < w; x++ {
					data[y*width+x] = row[x]
				}
			}
		}
	}
}
