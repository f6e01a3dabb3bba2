// Parameter lab - live Vicsek preview with sliders for the coupling
// and noise parameters.
//
// Usage: go run ./cmd/paramlab
package main

import (
	"fmt"
	"log/slog"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/devitrification/activematter/config"
	"github.com/devitrification/activematter/engine"
)

const (
	windowWidth  = 1100
	windowHeight = 760
	panelWidth   = 280
)

func main() {
	if err := config.Init(""); err != nil {
		slog.Error("failed to load defaults", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// A smaller population keeps the preview responsive.
	cfg.Particles.Count = 512
	cfg.Screen.Width = windowWidth - panelWidth
	cfg.Screen.Height = windowHeight

	rl.InitWindow(windowWidth, windowHeight, "activematter param lab")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	sim, err := engine.New(engine.Options{Seed: 12345})
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}
	defer sim.Close()

	renderer := engine.NewRenderer(sim)

	coupling := float32(cfg.Active.Coupling)
	rotDiff := float32(cfg.Active.RotationDiff)
	stepsPerFrame := float32(1)

	for !rl.WindowShouldClose() {
		sim.Force().SetCoupling(float64(coupling))
		sim.Force().SetRotationDiff(float64(rotDiff))

		for i := 0; i < int(stepsPerFrame); i++ {
			sim.Step()
		}

		rl.BeginDrawing()
		renderer.DrawScene(sim)

		panelX := float32(windowWidth - panelWidth)
		rl.DrawRectangle(int32(panelX), 0, panelWidth, windowHeight, rl.Color{R: 24, G: 28, B: 36, A: 255})

		y := float32(20)
		rl.DrawText("Parameters", int32(panelX)+16, int32(y), 18, rl.RayWhite)
		y += 40

		coupling = gui.Slider(rl.NewRectangle(panelX+80, y, 140, 20), "coupling", fmt.Sprintf("%.2f", coupling), coupling, 0, 10)
		y += 36
		rotDiff = gui.Slider(rl.NewRectangle(panelX+80, y, 140, 20), "noise", fmt.Sprintf("%.2f", rotDiff), rotDiff, 0, 5)
		y += 36
		stepsPerFrame = gui.Slider(rl.NewRectangle(panelX+80, y, 140, 20), "steps", fmt.Sprintf("%d", int(stepsPerFrame)), stepsPerFrame, 1, 20)
		y += 48

		rl.DrawText(fmt.Sprintf("order  %.3f", sim.Order()), int32(panelX)+16, int32(y), 16, rl.RayWhite)
		y += 24
		rl.DrawText(fmt.Sprintf("step   %d", sim.StepCount()), int32(panelX)+16, int32(y), 16, rl.RayWhite)

		rl.EndDrawing()
	}
}
