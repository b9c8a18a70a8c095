// Package screen is the native full-screen front end, drawn with ebiten.
package screen

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	. "nyiyui.ca/hato/tegata"
	"nyiyui.ca/hato/tegata/config"
	"nyiyui.ca/hato/tegata/dim"
	"nyiyui.ca/hato/tegata/export"
	"nyiyui.ca/hato/tegata/render"
	"nyiyui.ca/hato/tegata/store"
)

var (
	homeColour  = color.RGBA{R: 0x00, G: 0x00, B: 0xff, A: 0xff}
	ringColour  = color.RGBA{R: 0x00, G: 0x00, B: 0x80, A: 0x80}
	touchColour = color.RGBA{R: 0x80, G: 0x00, B: 0x00, A: 0x80}
	keyColour   = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}
)

var keys = []struct {
	ek ebiten.Key
	k  Key
}{
	{ebiten.KeyR, KeyReset},
	{ebiten.KeyY, KeyYes},
	{ebiten.KeyN, KeyNo},
	{ebiten.KeyEscape, KeyNo},
	{ebiten.KeyS, KeySave},
}

type Game struct {
	ctx   context.Context
	st    *store.Store
	conf  config.Config
	dims  dim.Dimensions
	style render.Style

	ids  []ebiten.TouchID
	last []dim.PixelPoint

	prompt prompt
	status string

	latestLock sync.Mutex
	latest     State

	white *ebiten.Image
}

func New(ctx context.Context, st *store.Store, conf config.Config) (*Game, error) {
	dims, err := conf.Dimensions()
	if err != nil {
		return nil, err
	}
	return &Game{
		ctx:    ctx,
		st:     st,
		conf:   conf,
		dims:   dims,
		style:  conf.Style(),
		latest: Setup(),
	}, nil
}

// Run shows the window until ctx is done or the window is closed.
func Run(ctx context.Context, st *store.Store, conf config.Config) error {
	g, err := New(ctx, st, conf)
	if err != nil {
		return err
	}
	ch := make(chan State, 16)
	st.Subscribe("screen", ch)
	defer st.Unsubscribe(ch)
	done := make(chan struct{})
	defer close(done)
	go g.follow(ch, done)

	ebiten.SetWindowTitle("tegata")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetFullscreen(true)
	err = ebiten.RunGame(g)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

func (g *Game) follow(ch <-chan State, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case s := <-ch:
			g.latestLock.Lock()
			g.latest = s
			g.latestLock.Unlock()
		}
	}
}

func (g *Game) state() State {
	g.latestLock.Lock()
	defer g.latestLock.Unlock()
	return g.latest
}

func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	g.ids = ebiten.AppendTouchIDs(g.ids[:0])
	px := make([]dim.PixelPoint, len(g.ids))
	for i, id := range g.ids {
		x, y := ebiten.TouchPosition(id)
		px[i] = dim.PixelPoint{X: float64(x), Y: float64(y)}
	}
	if !slices.Equal(px, g.last) {
		g.last = px
		if err := g.st.SetTouches(g.ctx, g.dims.Points(px)); err != nil {
			return g.storeErr(err)
		}
	}
	for _, key := range keys {
		if !inpututil.IsKeyJustPressed(key.ek) {
			continue
		}
		if err := g.act(g.prompt.press(key.k)); err != nil {
			return err
		}
	}
	return nil
}

func (g *Game) storeErr(err error) error {
	if errors.Is(err, store.ErrClosed) || errors.Is(err, context.Canceled) {
		return ebiten.Termination
	}
	return err
}

func (g *Game) act(a Action) error {
	switch a {
	case ActionAsk:
		g.status = "reset? y/n"
	case ActionCancel:
		g.status = ""
	case ActionReset:
		g.status = "reset"
		if err := g.st.Reset(g.ctx); err != nil {
			return g.storeErr(err)
		}
	case ActionSave:
		if err := g.save(); err != nil {
			zap.S().Errorw("save export", "path", g.conf.ExportPath, "err", err)
			g.status = fmt.Sprintf("save failed: %s", err)
		} else {
			g.status = fmt.Sprintf("saved %s", g.conf.ExportPath)
		}
	}
	return nil
}

func (g *Game) save() error {
	s, err := g.st.Snapshot(g.ctx)
	if err != nil {
		return err
	}
	data, err := export.Marshal(s, g.conf.Export())
	if err != nil {
		return err
	}
	return os.WriteFile(g.conf.ExportPath, data, 0o644)
}

func (g *Game) whiteSubImage() *ebiten.Image {
	if g.white == nil {
		white := ebiten.NewImage(3, 3)
		white.Fill(color.White)
		g.white = white.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	}
	return g.white
}

func (g *Game) px(mm float64) float32 { return float32(g.dims.MmToPx(mm)) }

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.White)
	s := g.state()
	for _, h := range s.Homes {
		if h.Adj == nil {
			vector.DrawFilledCircle(screen, g.px(h.X), g.px(h.Y), g.px(g.style.Pitch/2), homeColour, true)
		}
		for _, q := range render.KeyQuads(h, g.style) {
			g.fillQuad(screen, q, keyColour)
		}
		vector.DrawFilledCircle(screen, g.px(h.X), g.px(h.Y), g.px(g.style.Pitch), ringColour, true)
	}
	for _, t := range s.Touches {
		vector.DrawFilledCircle(screen, g.px(t.X), g.px(t.Y), g.px(render.TouchRadius), touchColour, true)
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf("%s %d touches\nR reset  S save\n%s", s.Phase, len(s.Touches), g.status))
}

func (g *Game) fillQuad(dst *ebiten.Image, q [4]Point, clr color.RGBA) {
	var path vector.Path
	path.MoveTo(g.px(q[0].X), g.px(q[0].Y))
	for _, p := range q[1:] {
		path.LineTo(g.px(p.X), g.px(p.Y))
	}
	path.Close()
	vs, is := path.AppendVerticesAndIndicesForFilling(nil, nil)
	r, gr, b, a := clr.RGBA()
	for i := range vs {
		vs[i].SrcX = 1
		vs[i].SrcY = 1
		vs[i].ColorR = float32(r) / 0xffff
		vs[i].ColorG = float32(gr) / 0xffff
		vs[i].ColorB = float32(b) / 0xffff
		vs[i].ColorA = float32(a) / 0xffff
	}
	op := &ebiten.DrawTrianglesOptions{FillRule: ebiten.EvenOdd, AntiAlias: true}
	dst.DrawTriangles(vs, is, g.whiteSubImage(), op)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
