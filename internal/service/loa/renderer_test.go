package loa

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	coreloa "github.com/park285/loa-kakao-bot/internal/loa"
)

func TestRenderPNGStartPosition(t *testing.T) {
	r := NewSVGBoardRenderer()
	from := coreloa.Coord{Row: 0, Col: 1}
	data, err := r.RenderPNG(context.Background(), coreloa.NewBoard(), RenderOptions{
		Highlight: &MoveHighlight{From: from, To: coreloa.Coord{Row: 2, Col: 1}},
		Targets:   []coreloa.Coord{{Row: 2, Col: 3}},
		Selected:  &from,
		HUDHeader: "alice vs Bot (level2)",
		HUDTurn:   "Black - move 1",
	})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != boardSize+sideMargin*2 || b.Dy() != boardSize+topMargin+bottomMargin {
		t.Fatalf("unexpected size %v", b)
	}
}

func TestRenderPNGHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSVGBoardRenderer().RenderPNG(ctx, coreloa.NewBoard(), RenderOptions{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestPieceImagesAreCached(t *testing.T) {
	a, err := renderPieceImage(coreloa.Black, 48)
	if err != nil {
		t.Fatalf("render black: %v", err)
	}
	b, err := renderPieceImage(coreloa.Black, 48)
	if err != nil {
		t.Fatalf("render black again: %v", err)
	}
	if a != b {
		t.Fatalf("expected cached image")
	}
	if _, err := renderPieceImage(coreloa.NoSide, 48); err == nil {
		t.Fatalf("expected error for empty side")
	}
	// centre pixel of a white piece is opaque
	w, err := renderPieceImage(coreloa.White, 64)
	if err != nil {
		t.Fatalf("render white: %v", err)
	}
	if _, _, _, alpha := w.At(32, 40).RGBA(); alpha == 0 {
		t.Fatalf("white piece centre is transparent")
	}
}
