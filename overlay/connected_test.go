package overlay

import "testing"

func TestComponents(t *testing.T) {
	// Two regions of ID 1 and one region of ID 2 touching the second.
	p := plane(3, 4,
		1, 1, 0, 1,
		0, 1, 0, 2,
		0, 0, 0, 2,
	)

	roots, sizes := Components(p)
	if len(sizes) != 3 {
		t.Fatalf("expected 3 regions, got %d: %v", len(sizes), sizes)
	}
	if roots[0] != roots[5] {
		t.Error("pixels 0 and 5 are connected through pixel 1")
	}
	if roots[3] == roots[7] {
		t.Error("different IDs must not share a region")
	}
	if roots[2] != -1 {
		t.Error("background has no region")
	}
	if sizes[roots[0]] != 3 || sizes[roots[7]] != 2 {
		t.Errorf("unexpected sizes %v", sizes)
	}
}

func TestRemoveSmallComponents(t *testing.T) {
	p := plane(2, 4,
		1, 1, 0, 1,
		1, 0, 0, 0,
	)

	out, kept := RemoveSmallComponents(p, 2)
	if kept != 1 {
		t.Errorf("expected 1 region kept, got %d", kept)
	}

	want := []uint8{1, 1, 0, 0, 1, 0, 0, 0}
	for i, v := range want {
		if out.Pix[i] != v {
			t.Errorf("pixel %d: expected %d, got %d", i, v, out.Pix[i])
		}
	}
	if p.Pix[3] != 1 {
		t.Error("input must not be modified")
	}
}
