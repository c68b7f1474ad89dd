package pose

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrTooFewPoints = errors.New("pose: not enough correspondences")
	ErrNotConverged = errors.New("pose: solver did not converge")
)

const (
	minCorrespondences = 4
	maxIterations      = 200
	stepTolerance      = 1e-10
	costTolerance      = 1e-12
)

type Vec2 struct{ X, Y float64 }

type Vec3 struct{ X, Y, Z float64 }

type Mat3 [3][3]float64

func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

func (m Mat3) Mul(o Mat3) Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return out
}

// Camera is a pinhole model without lens distortion.
type Camera struct {
	FX, FY float64
	CX, CY float64
}

// CameraForImage uses the image width as focal length and the image centre as
// principal point.
func CameraForImage(width, height int) Camera {
	return Camera{
		FX: float64(width),
		FY: float64(width),
		CX: float64(width) / 2,
		CY: float64(height) / 2,
	}
}

func (c Camera) Project(p Vec3) (Vec2, bool) {
	if p.Z <= 0 {
		return Vec2{}, false
	}
	return Vec2{
		X: c.FX*p.X/p.Z + c.CX,
		Y: c.FY*p.Y/p.Z + c.CY,
	}, true
}

// Extrinsics is the solved camera pose: Rotation is a Rodrigues vector.
type Extrinsics struct {
	Rotation    Vec3
	Translation Vec3
	RMSError    float64
}

func (e Extrinsics) Matrix() Mat3 {
	return Rodrigues(e.Rotation)
}

// Rodrigues converts a rotation vector (axis * angle) into a rotation matrix.
func Rodrigues(r Vec3) Mat3 {
	theta := math.Sqrt(r.X*r.X + r.Y*r.Y + r.Z*r.Z)
	if theta < 1e-12 {
		return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}
	kx, ky, kz := r.X/theta, r.Y/theta, r.Z/theta
	c, s := math.Cos(theta), math.Sin(theta)
	v := 1 - c
	return Mat3{
		{c + kx*kx*v, kx*ky*v - kz*s, kx*kz*v + ky*s},
		{ky*kx*v + kz*s, c + ky*ky*v, ky*kz*v - kx*s},
		{kz*kx*v - ky*s, kz*ky*v + kx*s, c + kz*kz*v},
	}
}

// EulerAngles decomposes a rotation as Rz(roll) * Ry(yaw) * Rx(pitch), which
// is the order an RQ decomposition yields for a pure rotation. Angles are in
// degrees.
func EulerAngles(m Mat3) (pitch, yaw, roll float64) {
	sy := math.Hypot(m[2][1], m[2][2])
	pitch = math.Atan2(m[2][1], m[2][2])
	yaw = math.Atan2(-m[2][0], sy)
	if sy > 1e-9 {
		roll = math.Atan2(m[1][0], m[0][0])
	} else {
		roll = math.Atan2(-m[0][1], m[1][1])
	}
	return degrees(pitch), degrees(yaw), degrees(roll)
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// SolvePnP estimates the rotation and translation mapping object points onto
// their image projections by Levenberg-Marquardt minimisation of the
// reprojection error, starting from an identity rotation.
func SolvePnP(object []Vec3, observed []Vec2, cam Camera) (Extrinsics, error) {
	if len(object) != len(observed) || len(object) < minCorrespondences {
		return Extrinsics{}, ErrTooFewPoints
	}

	params, err := initialGuess(object, observed, cam)
	if err != nil {
		return Extrinsics{}, err
	}

	n := len(object)
	residuals := make([]float64, 2*n)
	cost, ok := reprojection(params, object, observed, cam, residuals)
	if !ok {
		return Extrinsics{}, ErrNotConverged
	}

	lambda := 1e-3
	jac := mat.NewDense(2*n, 6, nil)
	trial := make([]float64, 2*n)
	converged := cost < costTolerance

	for iter := 0; iter < maxIterations && !converged; iter++ {
		if !jacobian(params, object, observed, cam, jac) {
			return Extrinsics{}, ErrNotConverged
		}

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var jte mat.VecDense
		jte.MulVec(jac.T(), mat.NewVecDense(2*n, residuals))

		improved := false
		for attempt := 0; attempt < 10; attempt++ {
			a := mat.DenseCopyOf(&jtj)
			for i := 0; i < 6; i++ {
				a.Set(i, i, a.At(i, i)*(1+lambda)+1e-12)
			}
			var delta mat.VecDense
			if err := delta.SolveVec(a, &jte); err != nil {
				lambda *= 10
				continue
			}

			var next [6]float64
			stepNorm := 0.0
			for i := 0; i < 6; i++ {
				next[i] = params[i] - delta.AtVec(i)
				stepNorm += delta.AtVec(i) * delta.AtVec(i)
			}

			nextCost, ok := reprojection(next, object, observed, cam, trial)
			if ok && nextCost < cost {
				converged = math.Sqrt(stepNorm) < stepTolerance || cost-nextCost < costTolerance*(1+cost)
				params = next
				cost = nextCost
				copy(residuals, trial)
				lambda = math.Max(lambda/10, 1e-12)
				improved = true
				break
			}
			lambda *= 10
		}

		if !improved {
			// No step reduces the cost any further: a local minimum.
			converged = true
		}
	}

	for _, p := range params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return Extrinsics{}, ErrNotConverged
		}
	}
	if !converged {
		return Extrinsics{}, ErrNotConverged
	}

	return Extrinsics{
		Rotation:    Vec3{params[0], params[1], params[2]},
		Translation: Vec3{params[3], params[4], params[5]},
		RMSError:    math.Sqrt(cost / float64(n)),
	}, nil
}

func initialGuess(object []Vec3, observed []Vec2, cam Camera) ([6]float64, error) {
	var oc Vec3
	var ic Vec2
	for i := range object {
		oc.X += object[i].X
		oc.Y += object[i].Y
		oc.Z += object[i].Z
		ic.X += observed[i].X
		ic.Y += observed[i].Y
	}
	n := float64(len(object))
	oc = Vec3{oc.X / n, oc.Y / n, oc.Z / n}
	ic = Vec2{ic.X / n, ic.Y / n}

	var objSpread, imgSpread float64
	for i := range object {
		objSpread += math.Hypot(object[i].X-oc.X, object[i].Y-oc.Y)
		imgSpread += math.Hypot(observed[i].X-ic.X, observed[i].Y-ic.Y)
	}
	if objSpread == 0 || imgSpread == 0 {
		return [6]float64{}, ErrTooFewPoints
	}

	depth := cam.FX * objSpread / imgSpread
	return [6]float64{
		0, 0, 0,
		(ic.X-cam.CX)*depth/cam.FX - oc.X,
		(ic.Y-cam.CY)*depth/cam.FY - oc.Y,
		depth - oc.Z,
	}, nil
}

// reprojection fills residuals and returns the summed squared error. It
// reports false when a point lands behind the camera.
func reprojection(params [6]float64, object []Vec3, observed []Vec2, cam Camera, residuals []float64) (float64, bool) {
	rot := Rodrigues(Vec3{params[0], params[1], params[2]})
	t := Vec3{params[3], params[4], params[5]}

	cost := 0.0
	for i, p := range object {
		pc := rot.MulVec(p)
		pc = Vec3{pc.X + t.X, pc.Y + t.Y, pc.Z + t.Z}
		proj, ok := cam.Project(pc)
		if !ok {
			return math.Inf(1), false
		}
		dx := proj.X - observed[i].X
		dy := proj.Y - observed[i].Y
		residuals[2*i] = dx
		residuals[2*i+1] = dy
		cost += dx*dx + dy*dy
	}
	return cost, true
}

func jacobian(params [6]float64, object []Vec3, observed []Vec2, cam Camera, jac *mat.Dense) bool {
	n := len(object)
	plus := make([]float64, 2*n)
	minus := make([]float64, 2*n)

	for j := 0; j < 6; j++ {
		h := 1e-6 * math.Max(1, math.Abs(params[j]))

		hi, lo := params, params
		hi[j] += h
		lo[j] -= h

		if _, ok := reprojection(hi, object, observed, cam, plus); !ok {
			return false
		}
		if _, ok := reprojection(lo, object, observed, cam, minus); !ok {
			return false
		}
		for i := 0; i < 2*n; i++ {
			jac.Set(i, j, (plus[i]-minus[i])/(2*h))
		}
	}
	return true
}
