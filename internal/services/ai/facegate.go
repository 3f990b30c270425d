package ai

// FaceGate locates face regions. A non-nil error means the detector is
// unavailable, which is distinct from finding zero faces.
type FaceGate interface {
	Detect(img RawImage) ([]FaceRegion, error)
}

// FaceGateParams are the cascade search parameters.
type FaceGateParams struct {
	MinSize      int     // minimum face side in pixels
	ScaleFactor  float64 // image pyramid step
	MinNeighbors int     // neighbor rectangles needed to keep a candidate
}

// DefaultFaceGateParams returns 60x60 px, 1.2 and 4.
func DefaultFaceGateParams() FaceGateParams {
	return FaceGateParams{MinSize: 60, ScaleFactor: 1.2, MinNeighbors: 4}
}

// SelectFace picks one region: the largest by area when largest is set
// (earlier regions win equal areas), otherwise the first reported one.
func SelectFace(regions []FaceRegion, largest bool) (FaceRegion, bool) {
	if len(regions) == 0 {
		return FaceRegion{}, false
	}
	if !largest {
		return regions[0], true
	}
	best := regions[0]
	for _, r := range regions[1:] {
		if r.Area() > best.Area() {
			best = r
		}
	}
	return best, true
}
