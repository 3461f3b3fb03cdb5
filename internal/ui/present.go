// Package ui hosts the presentation pipeline: framebuffer upload, the
// CPU-side preprocess shaders, integer prescaling with optional scanlines,
// and the final filtered blit with letterboxing, plus frame pacing and the
// dialog shell.
package ui

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"

	"tetra-core/internal/debug"
)

// Options selects the presentation pipeline's behavior.
type Options struct {
	// Prescale is the integer prescale factor; 0 derives it from the
	// ratio of display area to frame size.
	Prescale int
	// PreprocessShader is "none", "blur" or "antidither".
	PreprocessShader string
	// Scanlines is "none", "dim" or "black".
	Scanlines string
	// Filter is "nearest" or "linear" and applies to the final draw.
	Filter string
	// ForceIntegerHeight restricts the final scale to integer multiples
	// of the frame height.
	ForceIntegerHeight bool
	// PixelAspect stretches the frame horizontally (1.0 = square).
	PixelAspect float64
}

// Presenter owns the window, renderer and the intermediate textures of the
// presentation pipeline.
type Presenter struct {
	window   *sdl.Window
	renderer *sdl.Renderer

	srcTex    *sdl.Texture
	scaledTex *sdl.Texture
	srcW      int
	srcH      int
	prescale  int

	opts Options

	// scratch holds the preprocessed pixels between shader and upload.
	scratch []uint32

	// osdFrames counts down the transient status flash.
	osdFrames int
	osdColor  sdl.Color

	log *debug.Logger
}

// NewPresenter opens the host window and GPU renderer.
func NewPresenter(title string, width, height int, fullscreen, vsync bool, opts Options, logger *debug.Logger) (*Presenter, error) {
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("failed to initialize video: %w", err)
	}

	var windowFlags uint32 = sdl.WINDOW_RESIZABLE | sdl.WINDOW_ALLOW_HIGHDPI
	if fullscreen {
		windowFlags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}
	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(width), int32(height), windowFlags)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	var rendererFlags uint32 = sdl.RENDERER_ACCELERATED
	if vsync {
		rendererFlags |= sdl.RENDERER_PRESENTVSYNC
	}
	renderer, err := sdl.CreateRenderer(window, -1, rendererFlags)
	if err != nil {
		window.Destroy()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	if opts.PixelAspect <= 0 {
		opts.PixelAspect = 1.0
	}
	return &Presenter{
		window:   window,
		renderer: renderer,
		opts:     opts,
		log:      logger,
	}, nil
}

// ToggleFullscreen flips between windowed and borderless fullscreen.
func (p *Presenter) ToggleFullscreen() {
	if p.window.GetFlags()&sdl.WINDOW_FULLSCREEN_DESKTOP != 0 {
		p.window.SetFullscreen(0)
	} else {
		p.window.SetFullscreen(sdl.WINDOW_FULLSCREEN_DESKTOP)
	}
}

// Flash shows a transient status bar for about half a second.
func (p *Presenter) Flash(ok bool) {
	p.osdFrames = 30
	if ok {
		p.osdColor = sdl.Color{R: 64, G: 200, B: 64, A: 200}
	} else {
		p.osdColor = sdl.Color{R: 220, G: 64, B: 64, A: 200}
	}
}

// Present runs the pipeline for one frame: preprocess, upload, prescale
// with optional scanlines, and the final letterboxed draw.
func (p *Presenter) Present(pixels []uint32, w, h int) error {
	if err := p.ensureTextures(w, h); err != nil {
		return err
	}

	src := p.preprocess(pixels, w, h)
	if err := p.srcTex.UpdateRGBA(nil, src, w); err != nil {
		p.destroyTextures()
		return fmt.Errorf("failed to upload framebuffer: %w", err)
	}

	// Prescale pass: nearest-neighbor enlarge into the render-target
	// texture, then darken every Nth row for the scanline look.
	if err := p.renderer.SetRenderTarget(p.scaledTex); err != nil {
		p.destroyTextures()
		return fmt.Errorf("failed to select prescale target: %w", err)
	}
	p.renderer.Copy(p.srcTex, nil, nil)
	p.drawScanlines(w, h)
	p.renderer.SetRenderTarget(nil)

	p.renderer.SetDrawColor(0, 0, 0, 255)
	p.renderer.Clear()
	p.renderer.Copy(p.scaledTex, nil, p.destRect(w, h))
	p.drawOSD()
	p.renderer.Present()
	return nil
}

// ensureTextures rebuilds the texture chain when the frame geometry or the
// derived prescale factor changes, or after Present dropped the chain on a
// failed upload or target switch. A lost render target (device reset,
// suboptimal surface) is thus recreated on the next frame rather than
// treated as fatal.
func (p *Presenter) ensureTextures(w, h int) error {
	factor := p.opts.Prescale
	if factor == 0 {
		outW, outH, err := p.renderer.GetOutputSize()
		if err == nil {
			fw := int(outW) / w
			fh := int(outH) / h
			factor = fw
			if fh < fw {
				factor = fh
			}
		}
		if factor < 1 {
			factor = 1
		}
		if factor > 8 {
			factor = 8
		}
	}

	if p.srcTex != nil && w == p.srcW && h == p.srcH && factor == p.prescale {
		return nil
	}
	p.destroyTextures()

	quality := "0"
	if p.opts.Filter == "linear" {
		quality = "1"
	}

	sdl.SetHint(sdl.HINT_RENDER_SCALE_QUALITY, "0")
	src, err := p.renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING,
		int32(w), int32(h))
	if err != nil {
		return fmt.Errorf("failed to create source texture: %w", err)
	}

	sdl.SetHint(sdl.HINT_RENDER_SCALE_QUALITY, quality)
	scaled, err := p.renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_TARGET,
		int32(w*factor), int32(h*factor))
	if err != nil {
		src.Destroy()
		return fmt.Errorf("failed to create prescale texture: %w", err)
	}

	p.srcTex = src
	p.scaledTex = scaled
	p.srcW, p.srcH = w, h
	p.prescale = factor
	if p.log != nil {
		p.log.Logf(debug.ComponentUI, debug.LogLevelInfo, "presentation chain: %dx%d x%d", w, h, factor)
	}
	return nil
}

func (p *Presenter) destroyTextures() {
	if p.srcTex != nil {
		p.srcTex.Destroy()
		p.srcTex = nil
	}
	if p.scaledTex != nil {
		p.scaledTex.Destroy()
		p.scaledTex = nil
	}
}

// destRect computes the letterboxed/pillarboxed output rectangle.
func (p *Presenter) destRect(w, h int) *sdl.Rect {
	outW, outH, err := p.renderer.GetOutputSize()
	if err != nil {
		return nil
	}

	frameAspect := float64(w) * p.opts.PixelAspect / float64(h)
	dstH := float64(outH)
	dstW := dstH * frameAspect
	if dstW > float64(outW) {
		dstW = float64(outW)
		dstH = dstW / frameAspect
	}
	if p.opts.ForceIntegerHeight {
		mult := int(dstH) / h
		if mult < 1 {
			mult = 1
		}
		dstH = float64(mult * h)
		dstW = dstH * frameAspect
	}
	return &sdl.Rect{
		X: int32((float64(outW) - dstW) / 2),
		Y: int32((float64(outH) - dstH) / 2),
		W: int32(dstW),
		H: int32(dstH),
	}
}

// drawScanlines darkens one row per prescaled pixel row on the prescale
// target.
func (p *Presenter) drawScanlines(w, h int) {
	if p.opts.Scanlines == "none" || p.prescale < 2 {
		return
	}
	alpha := uint8(96)
	if p.opts.Scanlines == "black" {
		alpha = 255
	}
	p.renderer.SetDrawBlendMode(sdl.BLENDMODE_BLEND)
	p.renderer.SetDrawColor(0, 0, 0, alpha)
	for y := 0; y < h; y++ {
		p.renderer.FillRect(&sdl.Rect{
			X: 0,
			Y: int32(y*p.prescale + p.prescale - 1),
			W: int32(w * p.prescale),
			H: 1,
		})
	}
}

func (p *Presenter) drawOSD() {
	if p.osdFrames == 0 {
		return
	}
	p.osdFrames--
	outW, _, err := p.renderer.GetOutputSize()
	if err != nil {
		return
	}
	p.renderer.SetDrawBlendMode(sdl.BLENDMODE_BLEND)
	p.renderer.SetDrawColor(p.osdColor.R, p.osdColor.G, p.osdColor.B, p.osdColor.A)
	p.renderer.FillRect(&sdl.Rect{X: 8, Y: 8, W: outW / 4, H: 10})
}

// Close releases the GPU objects and the window.
func (p *Presenter) Close() {
	p.destroyTextures()
	if p.renderer != nil {
		p.renderer.Destroy()
	}
	if p.window != nil {
		p.window.Destroy()
	}
}
