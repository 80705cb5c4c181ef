package motion

// gravityAlpha is the low-pass weight given to the previous estimate.
const gravityAlpha = 0.8

// GravityFilter separates the slowly varying gravity component from linear
// acceleration. The zero value starts from a zero estimate.
type GravityFilter struct {
	g Vector3
}

// Update folds a into the gravity estimate and returns the linear
// acceleration a - g'.
func (f *GravityFilter) Update(a Vector3) Vector3 {
	f.g = Vector3{
		X: gravityAlpha*f.g.X + (1-gravityAlpha)*a.X,
		Y: gravityAlpha*f.g.Y + (1-gravityAlpha)*a.Y,
		Z: gravityAlpha*f.g.Z + (1-gravityAlpha)*a.Z,
	}
	return a.Sub(f.g)
}

func (f *GravityFilter) Gravity() Vector3 { return f.g }

func (f *GravityFilter) Reset() { f.g = Vector3{} }
