package engine

// Pick returns the index of the topmost entity under the screen point, or -1.
// Entities are drawn in arena order, so the scan runs backwards. The hit
// padding is given in screen pixels and divided by zoom, keeping the target
// usable when zoomed out.
func Pick(ents []Entity, cam *Camera, sx, sy, hitPadding float64) int {
	if cam == nil || cam.K <= 0 {
		return -1
	}
	wx, wy := cam.ScreenToWorld(sx, sy)
	pad := hitPadding / cam.K
	for i := len(ents) - 1; i >= 0; i-- {
		e := &ents[i]
		dx := wx - e.X
		dy := wy - e.Y
		r := e.Radius + pad
		if dx*dx+dy*dy < r*r {
			return i
		}
	}
	return -1
}
