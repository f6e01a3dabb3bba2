package particle

import "github.com/go-gl/mathgl/mgl64"

// Box is a periodic simulation box centered on the origin.
type Box struct {
	L          mgl64.Vec3
	Dimensions int // 2 or 3
}

// NewBox creates a periodic box with edge lengths lx, ly, lz.
func NewBox(lx, ly, lz float64, dimensions int) Box {
	if dimensions == 2 {
		lz = 0
	}
	return Box{L: mgl64.Vec3{lx, ly, lz}, Dimensions: dimensions}
}

// MinImage returns the minimum-image displacement from a to b.
func (b Box) MinImage(a, p mgl64.Vec3) mgl64.Vec3 {
	d := p.Sub(a)
	for i := 0; i < b.Dimensions; i++ {
		l := b.L[i]
		if l <= 0 {
			continue
		}
		for d[i] > l/2 {
			d[i] -= l
		}
		for d[i] < -l/2 {
			d[i] += l
		}
	}
	return d
}

// Wrap maps p back into the primary box image.
func (b Box) Wrap(p mgl64.Vec3) mgl64.Vec3 {
	for i := 0; i < b.Dimensions; i++ {
		l := b.L[i]
		if l <= 0 {
			continue
		}
		for p[i] >= l/2 {
			p[i] -= l
		}
		for p[i] < -l/2 {
			p[i] += l
		}
	}
	return p
}
