package render

import (
	"fmt"
	"image"
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// OpKind identifies a recorded primitive.
type OpKind string

const (
	OpFillRect OpKind = "fill_rect"
	OpLine     OpKind = "line"
	OpCircle   OpKind = "circle"
	OpText     OpKind = "text"
)

// Op is one recorded primitive. Unused coordinates are zero.
type Op struct {
	Kind   OpKind          `json:"kind"`
	Rect   image.Rectangle `json:"rect,omitzero"`
	X0     float64         `json:"x0,omitzero"`
	Y0     float64         `json:"y0,omitzero"`
	X1     float64         `json:"x1,omitzero"`
	Y1     float64         `json:"y1,omitzero"`
	Radius float64         `json:"radius,omitzero"`
	Text   string          `json:"text,omitempty"`
	Paint  Paint           `json:"paint"`
}

// String renders the op compactly for test failure messages.
func (o Op) String() string {
	switch o.Kind {
	case OpFillRect:
		return fmt.Sprintf("fill_rect %v %v", o.Rect, o.Paint.Color)
	case OpLine:
		return fmt.Sprintf("line (%.1f,%.1f)-(%.1f,%.1f) %v", o.X0, o.Y0, o.X1, o.Y1, o.Paint.Color)
	case OpCircle:
		return fmt.Sprintf("circle (%.1f,%.1f) r=%.1f %v", o.X0, o.Y0, o.Radius, o.Paint.Color)
	case OpText:
		return fmt.Sprintf("text %q (%.1f,%.1f) %v", o.Text, o.X0, o.Y0, o.Paint.Color)
	default:
		return string(o.Kind)
	}
}

// Recorder is a Surface that records primitives instead of drawing them.
type Recorder struct {
	ops []Op
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) FillRect(rect image.Rectangle, p Paint) {
	r.ops = append(r.ops, Op{Kind: OpFillRect, Rect: rect, Paint: p})
}

func (r *Recorder) DrawLine(x0, y0, x1, y1 float64, p Paint) {
	r.ops = append(r.ops, Op{Kind: OpLine, X0: x0, Y0: y0, X1: x1, Y1: y1, Paint: p})
}

func (r *Recorder) DrawCircle(cx, cy, radius float64, p Paint) {
	r.ops = append(r.ops, Op{Kind: OpCircle, X0: cx, Y0: cy, Radius: radius, Paint: p})
}

func (r *Recorder) DrawText(text string, x, y float64, p Paint) {
	r.ops = append(r.ops, Op{Kind: OpText, X0: x, Y0: y, Text: text, Paint: p})
}

// Ops returns a copy of the recorded primitives.
func (r *Recorder) Ops() []Op {
	ops := make([]Op, len(r.ops))
	copy(ops, r.ops)
	return ops
}

// Count returns how many primitives of kind were recorded.
func (r *Recorder) Count(kind OpKind) int {
	n := 0
	for _, op := range r.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Reset discards recorded primitives.
func (r *Recorder) Reset() {
	r.ops = r.ops[:0]
}

// Replay draws the recorded primitives onto s.
func (r *Recorder) Replay(s Surface) {
	for _, op := range r.ops {
		switch op.Kind {
		case OpFillRect:
			s.FillRect(op.Rect, op.Paint)
		case OpLine:
			s.DrawLine(op.X0, op.Y0, op.X1, op.Y1, op.Paint)
		case OpCircle:
			s.DrawCircle(op.X0, op.Y0, op.Radius, op.Paint)
		case OpText:
			s.DrawText(op.Text, op.X0, op.Y0, op.Paint)
		}
	}
}

// Frame is the JSON form of a recorded frame.
type Frame struct {
	Mode   Mode `json:"mode"`
	Width  int  `json:"width"`
	Height int  `json:"height"`
	Ops    []Op `json:"ops"`
}

// WriteJSON writes the recorded primitives as an indented Frame.
func (r *Recorder) WriteJSON(w io.Writer, mode Mode, bounds image.Rectangle) error {
	frame := Frame{
		Mode:   mode,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Ops:    r.Ops(),
	}
	if err := json.MarshalWrite(w, frame, jsontext.WithIndent("  ")); err != nil {
		return fmt.Errorf("render: encode frame: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
