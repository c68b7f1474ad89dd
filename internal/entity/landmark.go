package entity

// Landmark is one face mesh point as returned by the landmark service. X and Y
// are normalized to the frame size.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type LandmarkResult struct {
	Status string       `json:"status"`
	Faces  [][]Landmark `json:"faces"`
	Error  string       `json:"error,omitempty"`
}
