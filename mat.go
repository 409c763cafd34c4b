package physics

import "github.com/go-gl/mathgl/mgl64"

// Mat22 is a 2x2 matrix stored by columns.
type Mat22 struct {
	Ex, Ey Vector
}

func (m Mat22) gl() mgl64.Mat2 {
	return mgl64.Mat2{m.Ex.X, m.Ex.Y, m.Ey.X, m.Ey.Y}
}

func mat22FromGL(g mgl64.Mat2) Mat22 {
	return Mat22{Vector{g[0], g[1]}, Vector{g[2], g[3]}}
}

func (m Mat22) MulV(v Vector) Vector {
	return Vector{m.Ex.X*v.X + m.Ey.X*v.Y, m.Ex.Y*v.X + m.Ey.Y*v.Y}
}

// Inverse returns the zero matrix when m is singular.
func (m Mat22) Inverse() Mat22 {
	return mat22FromGL(m.gl().Inv())
}

// Solve solves m * x = b. A singular matrix yields zero.
func (m Mat22) Solve(b Vector) Vector {
	r := m.gl().Inv().Mul2x1(mgl64.Vec2{b.X, b.Y})
	return Vector{r[0], r[1]}
}

// Mat33 is a 3x3 matrix used by joints constraining two translations and a rotation.
type Mat33 struct {
	m mgl64.Mat3
}

func NewMat33(ex, ey, ez mgl64.Vec3) Mat33 {
	return Mat33{mgl64.Mat3FromCols(ex, ey, ez)}
}

// Solve33 solves the full system. A singular matrix yields zero.
func (m Mat33) Solve33(b mgl64.Vec3) mgl64.Vec3 {
	return m.m.Inv().Mul3x1(b)
}

// Solve22 solves the upper 2x2 block only.
func (m Mat33) Solve22(b Vector) Vector {
	block := Mat22{Vector{m.m.At(0, 0), m.m.At(1, 0)}, Vector{m.m.At(0, 1), m.m.At(1, 1)}}
	return block.Solve(b)
}

// SymInverse33 returns the inverse, or the inverse of the 2x2 block with a
// scalar angular term when the matrix is singular.
func (m Mat33) SymInverse33() Mat33 {
	inv := m.m.Inv()
	if inv != (mgl64.Mat3{}) {
		return Mat33{inv}
	}
	block := Mat22{Vector{m.m.At(0, 0), m.m.At(1, 0)}, Vector{m.m.At(0, 1), m.m.At(1, 1)}}.Inverse()
	var k float64
	if c := m.m.At(2, 2); c != 0 {
		k = 1.0 / c
	}
	return Mat33{mgl64.Mat3{
		block.Ex.X, block.Ex.Y, 0,
		block.Ey.X, block.Ey.Y, 0,
		0, 0, k,
	}}
}

func (m Mat33) Mul(v mgl64.Vec3) mgl64.Vec3 {
	return m.m.Mul3x1(v)
}

func (m Mat33) At(row, col int) float64 {
	return m.m.At(row, col)
}

// Mul22 multiplies by the upper 2x2 block.
func (m Mat33) Mul22(v Vector) Vector {
	return Vector{m.m.At(0, 0)*v.X + m.m.At(0, 1)*v.Y, m.m.At(1, 0)*v.X + m.m.At(1, 1)*v.Y}
}

// Inverse22 inverts the upper 2x2 block and zeroes the rest.
func (m Mat33) Inverse22() Mat33 {
	block := Mat22{Vector{m.m.At(0, 0), m.m.At(1, 0)}, Vector{m.m.At(0, 1), m.m.At(1, 1)}}.Inverse()
	return Mat33{mgl64.Mat3{
		block.Ex.X, block.Ex.Y, 0,
		block.Ey.X, block.Ey.Y, 0,
		0, 0, 0,
	}}
}

// Set stores v at row, col.
func (m *Mat33) Set(row, col int, v float64) {
	m.m.Set(row, col, v)
}
