package engine

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Renderer draws the simulation into a raylib window. Particles are
// drawn in the xy-plane; 3D runs show the projection.
type Renderer struct {
	screenW, screenH int32
	scale            float64
}

// NewRenderer creates a renderer that fits the simulation box to the
// screen configured for s.
func NewRenderer(s *Simulation) *Renderer {
	cfg := s.cfg
	box := s.pd.Box()

	sx := float64(cfg.Screen.Width) / box.L[0]
	sy := float64(cfg.Screen.Height) / box.L[1]
	scale := sx
	if sy < sx {
		scale = sy
	}
	return &Renderer{
		screenW: int32(cfg.Screen.Width),
		screenH: int32(cfg.Screen.Height),
		scale:   scale,
	}
}

// toScreen maps box coordinates (origin-centered) to screen pixels.
func (r *Renderer) toScreen(x, y float64) (int32, int32) {
	sx := float64(r.screenW)/2 + x*r.scale
	sy := float64(r.screenH)/2 - y*r.scale
	return int32(sx), int32(sy)
}

// Draw renders one complete frame.
func (r *Renderer) Draw(s *Simulation) {
	rl.BeginDrawing()
	r.DrawScene(s)
	rl.EndDrawing()
}

// DrawScene renders the particles and HUD into the current drawing
// scope, for callers that composite their own overlays.
func (r *Renderer) DrawScene(s *Simulation) {
	rl.ClearBackground(rl.Color{R: 12, G: 16, B: 24, A: 255})

	pd := s.Particles()
	store := s.Force().Store()
	headingLen := 4.0 * r.scale

	for i := 0; i < pd.N(); i++ {
		p := pd.Pos[i]
		dir := store.ForceDir(pd.Tag(i))

		x, y := r.toScreen(p[0], p[1])
		hx := x + int32(dir[0]*headingLen)
		hy := y - int32(dir[1]*headingLen)

		rl.DrawLine(x, y, hx, hy, rl.Color{R: 90, G: 140, B: 220, A: 200})
		rl.DrawCircle(x, y, 2, rl.Color{R: 220, G: 230, B: 250, A: 255})
	}

	rl.DrawText(fmt.Sprintf("step %d", s.StepCount()), 10, 10, 18, rl.RayWhite)
	rl.DrawText(fmt.Sprintf("order %.3f", s.Order()), 10, 32, 18, rl.RayWhite)
	rl.DrawFPS(10, 54)
}
