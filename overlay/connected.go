package overlay

import (
	"github.com/theodesp/unionfind"
)

// Components labels the 4-connected regions of equal, nonzero ID in p. It
// returns, for every pixel, the root pixel index of its region (-1 for
// background), and the pixel count of every region keyed by root.
func Components(p IDPlane) ([]int, map[int]int) {
	uf := unionfind.New(len(p.Pix))

	for y := 0; y < p.Rows; y++ {
		for x := 0; x < p.Cols; x++ {
			i := y*p.Cols + x
			id := p.Pix[i]
			if id == 0 {
				continue
			}

			// Join with the pixel above and the pixel to the left when they
			// carry the same label.
			if y > 0 && p.Pix[i-p.Cols] == id {
				uf.Union(i-p.Cols, i)
			}
			if x > 0 && p.Pix[i-1] == id {
				uf.Union(i-1, i)
			}
		}
	}

	roots := make([]int, len(p.Pix))
	sizes := make(map[int]int)
	for i, id := range p.Pix {
		if id == 0 {
			roots[i] = -1
			continue
		}
		r := uf.Root(i)
		roots[i] = r
		sizes[r]++
	}

	return roots, sizes
}

// RemoveSmallComponents zeroes every region of p with fewer than minPixels
// pixels, into a new plane. It also reports how many regions were kept.
func RemoveSmallComponents(p IDPlane, minPixels int) (IDPlane, int) {
	out := IDPlane{Rows: p.Rows, Cols: p.Cols, Pix: make([]uint8, len(p.Pix))}

	roots, sizes := Components(p)
	for i, r := range roots {
		if r >= 0 && sizes[r] >= minPixels {
			out.Pix[i] = p.Pix[i]
		}
	}

	kept := 0
	for _, n := range sizes {
		if n >= minPixels {
			kept++
		}
	}

	return out, kept
}
