package loa

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	coreloa "github.com/park285/loa-kakao-bot/internal/loa"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type MoveHighlight struct {
	From coreloa.Coord
	To   coreloa.Coord
}

type RenderOptions struct {
	Highlight *MoveHighlight
	// Targets are squares marked as reachable, used by the targets command.
	Targets   []coreloa.Coord
	Selected  *coreloa.Coord
	HUDHeader string
	HUDTurn   string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board coreloa.Board, opts RenderOptions) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewSVGBoardRenderer() BoardRenderer {
	return &svgBoardRenderer{}
}

const (
	squareSize    = 72
	boardSize     = squareSize * coreloa.Size
	sideMargin    = 36
	topMargin     = 96
	bottomMargin  = 36
	panelHeight   = 32
	panelGap      = 12
	gapToBoard    = 18
	panelRadius   = 10
	panelPaddingX = 20
	titleMinWidth = 280
	countMinWidth = 96
	turnMinWidth  = 140
	shadowOffsetY = 5
)

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	moveFromFill        = color.NRGBA{R: 255, G: 228, B: 120, A: 110}
	moveArrowColor      = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	targetDotColor      = color.NRGBA{R: 40, G: 120, B: 60, A: 150}
	selectedFill        = color.NRGBA{R: 182, G: 184, B: 190, A: 130}
	hudPanelColor       = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTurnPanelColor   = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	hudShadowColor      = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTurnTextColor    = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board coreloa.Board, opts RenderOptions) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	totalWidth := boardSize + sideMargin*2
	totalHeight := boardSize + topMargin + bottomMargin
	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	face := basicfont.Face7x13

	drawHUD(img, face, board, opts, boardRect)
	drawSquares(img, origin)
	if opts.Highlight != nil {
		drawSquareOverlay(img, opts.Highlight.From, origin, moveFromFill)
	}
	if opts.Selected != nil {
		drawSquareOverlay(img, *opts.Selected, origin, selectedFill)
	}
	if err := drawPieces(img, board, origin); err != nil {
		return nil, err
	}
	if opts.Highlight != nil {
		drawArrow(img, opts.Highlight.From, opts.Highlight.To, origin, moveArrowColor)
	}
	for _, c := range opts.Targets {
		drawTargetDot(img, c, origin)
	}
	drawCoordinates(img, face, origin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawSquares(dst imagedraw.Image, origin image.Point) {
	for row := 0; row < coreloa.Size; row++ {
		for col := 0; col < coreloa.Size; col++ {
			rect := squareRect(coreloa.Coord{Row: row, Col: col}, origin)
			clr := lightSquare
			if (row+col)%2 == 1 {
				clr = darkSquare
			}
			imagedraw.Draw(dst, rect, image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board coreloa.Board, origin image.Point) error {
	for _, side := range []coreloa.Side{coreloa.Black, coreloa.White} {
		for _, c := range board.Pieces(side) {
			img, err := renderPieceImage(side, squareSize)
			if err != nil {
				return err
			}
			imagedraw.Draw(dst, squareRect(c, origin), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawHUD(img *image.RGBA, face font.Face, board coreloa.Board, opts RenderOptions, boardRect image.Rectangle) {
	drawer := &font.Drawer{Dst: img, Face: face}

	title := strings.TrimSpace(opts.HUDHeader)
	if title == "" {
		title = "Lines of Action"
	}
	turnText := strings.TrimSpace(opts.HUDTurn)
	if turnText == "" {
		turnText = "Turn"
	}
	countText := fmt.Sprintf("B %d : W %d", board.Count(coreloa.Black), board.Count(coreloa.White))

	turnBottom := boardRect.Min.Y - gapToBoard
	turnTop := turnBottom - panelHeight
	titleBottom := turnTop - panelGap
	titleTop := titleBottom - panelHeight

	countWidth := max(countMinWidth, drawer.MeasureString(countText).Round()+panelPaddingX*2)
	titleWidth := max(titleMinWidth, drawer.MeasureString(title).Round()+panelPaddingX*2)
	titleWidth = min(titleWidth, boardRect.Dx()-countWidth-24)
	turnWidth := max(turnMinWidth, drawer.MeasureString(turnText).Round()+panelPaddingX*2)
	turnWidth = min(turnWidth, boardRect.Dx()-40)

	titleRect := image.Rect(boardRect.Min.X, titleTop, boardRect.Min.X+titleWidth, titleBottom)
	countRect := image.Rect(boardRect.Max.X-countWidth, titleTop, boardRect.Max.X, titleBottom)
	turnLeft := boardRect.Min.X + (boardRect.Dx()-turnWidth)/2
	turnRect := image.Rect(turnLeft, turnTop, turnLeft+turnWidth, turnBottom)

	for _, rect := range []image.Rectangle{titleRect, countRect, turnRect} {
		drawRoundedPanel(img, rect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)
	}
	drawRoundedPanel(img, titleRect, panelRadius, hudPanelColor)
	drawRoundedPanel(img, countRect, panelRadius, hudPanelColor)
	drawRoundedPanel(img, turnRect, panelRadius, hudTurnPanelColor)

	title = truncateWithEllipsis(face, title, titleRect.Dx()-panelPaddingX*2)
	turnText = truncateWithEllipsis(face, turnText, turnRect.Dx()-panelPaddingX*2)

	drawCenteredString(drawer, titleRect, title, hudTextPrimary)
	drawCenteredString(drawer, countRect, countText, hudTextPrimary)
	drawCenteredString(drawer, turnRect, turnText, hudTurnTextColor)
}

func drawCoordinates(dst imagedraw.Image, face font.Face, origin image.Point) {
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	boardEndY := origin.Y + boardSize
	for i := 0; i < coreloa.Size; i++ {
		label := coreloa.Coord{Row: i, Col: i}.String()
		center := i*squareSize + squareSize/2
		drawCenteredText(drawer, label[1:], origin.X-sideMargin/2, origin.Y+center+ascent/2)
		drawCenteredText(drawer, label[:1], origin.X+center, boardEndY+ascent+4)
	}
}

func drawSquareOverlay(img *image.RGBA, c coreloa.Coord, origin image.Point, clr color.Color) {
	imagedraw.Draw(img, squareRect(c, origin), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawTargetDot(img *image.RGBA, c coreloa.Coord, origin image.Point) {
	rect := squareRect(c, origin)
	center := image.Pt(rect.Min.X+squareSize/2, rect.Min.Y+squareSize/2)
	drawDisc(img, center, squareSize/7, targetDotColor)
}

func drawArrow(img *image.RGBA, from, to coreloa.Coord, origin image.Point, clr color.Color) {
	if from == to {
		return
	}
	startRect := squareRect(from, origin)
	endRect := squareRect(to, origin)
	start := pointF{X: float64(startRect.Min.X + squareSize/2), Y: float64(startRect.Min.Y + squareSize/2)}
	end := pointF{X: float64(endRect.Min.X + squareSize/2), Y: float64(endRect.Min.Y + squareSize/2)}

	dx := end.X - start.X
	dy := end.Y - start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	baseLength := length - float64(squareSize)*0.45
	if baseLength < float64(squareSize)*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := float64(squareSize) * 0.12
	headWidth := float64(squareSize) * 0.32
	base := pointF{X: start.X + dirX*baseLength, Y: start.Y + dirY*baseLength}

	fillQuad(img,
		pointF{X: start.X - perpX*halfWidth, Y: start.Y - perpY*halfWidth},
		pointF{X: start.X + perpX*halfWidth, Y: start.Y + perpY*halfWidth},
		pointF{X: base.X + perpX*halfWidth, Y: base.Y + perpY*halfWidth},
		pointF{X: base.X - perpX*halfWidth, Y: base.Y - perpY*halfWidth},
		clr,
	)
	fillTriangleF(img,
		end,
		pointF{X: base.X - perpX*headWidth/2, Y: base.Y - perpY*headWidth/2},
		pointF{X: base.X + perpX*headWidth/2, Y: base.Y + perpY*headWidth/2},
		clr,
	)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	const ellipsis = "..."
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	radius = max(0, min(radius, rect.Dx()/2, rect.Dy()/2))
	fill := image.NewUniform(clr)
	if radius == 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)

	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, center := range corners {
		drawQuarterDisc(img, center, radius, clr, rect)
	}
}

// drawQuarterDisc fills the part of the disc around center that lies outside
// the panel's cross so corners are not blended twice.
func drawQuarterDisc(img *image.RGBA, center image.Point, radius int, clr color.Color, rect image.Rectangle) {
	inner := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y)
	side := image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius)
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			p := image.Pt(center.X+x, center.Y+y)
			if x*x+y*y > rSquared || p.In(inner) || p.In(side) || !p.In(rect) {
				continue
			}
			blendPixel(img, p.X, p.Y, clr)
		}
	}
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= rSquared {
				blendPixel(img, center.X+x, center.Y+y, clr)
			}
		}
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := max(rect.Min.X, rect.Min.X+(rect.Dx()-width)/2)
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	a := float64(sa) / 65535.0
	dst := img.RGBAAt(x, y)
	mix := func(s uint32, d uint8) uint8 {
		return floatToUint8(float64(s)/257.0 + float64(d)*(1-a))
	}
	img.SetRGBA(x, y, color.RGBA{
		R: mix(sr, dst.R),
		G: mix(sg, dst.G),
		B: mix(sb, dst.B),
		A: floatToUint8(a*255.0 + float64(dst.A)*(1-a)),
	})
}

func floatToUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// squareRect maps a board coordinate to its pixel square; row 0 is rank 8 at
// the top.
func squareRect(c coreloa.Coord, origin image.Point) image.Rectangle {
	x := origin.X + c.Col*squareSize
	y := origin.Y + c.Row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

type pointF struct {
	X float64
	Y float64
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func pointInTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	return alpha >= 0 && beta >= 0 && 1-alpha-beta >= 0
}
