package ui

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"TacticalBoard/internal/state"
)

// colorSwatch is a tappable color square.
type colorSwatch struct {
	widget.BaseWidget
	Hex      string
	OnTapped func(hex string)
}

func newColorSwatch(hex string, tapped func(string)) *colorSwatch {
	s := &colorSwatch{Hex: hex, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(state.MustColor(s.Hex))
	rect.SetMinSize(fyne.NewSize(28, 28))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Hex)
	}
}

// Toolbar holds the drawing controls. Sync updates the controls that depend
// on session state (history buttons, zoom readout).
type Toolbar struct {
	board *BoardWidget

	tools      *widget.Select
	arrowStyle *widget.Select
	width      *widget.Slider
	undo       *widget.Button
	redo       *widget.Button
	zoom       *widget.Label
	maps       *widget.Select

	// OnZoom runs after the zoom changed so the container can re-layout.
	OnZoom func()
	// OnMap runs after the active map changed.
	OnMap func(name string)
	// OnNotice shows a short message in the status bar.
	OnNotice func(msg string)
}

func NewToolbar(board *BoardWidget, mapNames []string) *Toolbar {
	t := &Toolbar{board: board}
	s := board.Session

	toolNames := make([]string, 0, len(state.Tools()))
	for _, tool := range state.Tools() {
		toolNames = append(toolNames, tool.String())
	}
	t.tools = widget.NewSelect(toolNames, func(name string) {
		if tool, err := state.ParseTool(name); err == nil {
			s.SetTool(tool)
		}
	})
	t.tools.SetSelected(s.Tool().String())

	styles := make([]string, 0, 3)
	for _, st := range state.ArrowStyles() {
		styles = append(styles, string(st))
	}
	t.arrowStyle = widget.NewSelect(styles, func(name string) {
		s.SetArrowStyle(state.ArrowStyle(name))
	})
	t.arrowStyle.SetSelected(string(s.ArrowStyle()))

	t.width = widget.NewSlider(state.MinWidth, state.MaxWidth)
	t.width.SetValue(s.Width())
	t.width.OnChanged = s.SetWidth

	t.undo = widget.NewButtonWithIcon("", theme.ContentUndoIcon(), func() {
		if !s.Undo() {
			t.notice("Nothing to undo")
		}
	})
	t.redo = widget.NewButtonWithIcon("", theme.ContentRedoIcon(), func() {
		if !s.Redo() {
			t.notice("Nothing to redo")
		}
	})

	t.zoom = widget.NewLabel("")
	t.maps = widget.NewSelect(mapNames, func(name string) {
		if name == s.MapName() {
			return
		}
		s.SelectMap(name)
		if t.OnMap != nil {
			t.OnMap(name)
		}
	})
	t.maps.SetSelected(s.MapName())

	t.Sync()
	return t
}

func (t *Toolbar) notice(msg string) {
	if t.OnNotice != nil {
		t.OnNotice(msg)
	}
}

func (t *Toolbar) setZoom(apply func()) {
	apply()
	t.Sync()
	t.board.Refresh()
	if t.OnZoom != nil {
		t.OnZoom()
	}
}

// Sync refreshes the state-dependent controls.
func (t *Toolbar) Sync() {
	s := t.board.Session
	if s.CanUndo() {
		t.undo.Enable()
	} else {
		t.undo.Disable()
	}
	if s.CanRedo() {
		t.redo.Enable()
	} else {
		t.redo.Disable()
	}
	t.zoom.SetText(fmt.Sprintf("%d%%", int(s.Zoom()*100+0.5)))
	if style := string(s.ArrowStyle()); t.arrowStyle.Selected != style {
		t.arrowStyle.SetSelected(style)
	}
	if t.maps.Selected != s.MapName() {
		t.maps.SetSelected(s.MapName())
	}
}

// Object builds the toolbar layout. extra is appended to the second row.
func (t *Toolbar) Object(extra ...fyne.CanvasObject) fyne.CanvasObject {
	s := t.board.Session

	swatches := container.NewHBox()
	for _, hex := range state.Palette {
		swatches.Add(newColorSwatch(hex, func(hex string) {
			if err := s.SetColor(hex); err != nil {
				t.notice(err.Error())
			}
		}))
	}

	clearBtn := widget.NewButtonWithIcon("Clear", theme.DeleteIcon(), func() {
		if n := s.Clear(); n > 0 {
			t.notice(fmt.Sprintf("Cleared %d drawings", n))
		}
	})

	zoomIn := widget.NewButtonWithIcon("", theme.ZoomInIcon(), func() { t.setZoom(s.ZoomIn) })
	zoomOut := widget.NewButtonWithIcon("", theme.ZoomOutIcon(), func() { t.setZoom(s.ZoomOut) })
	zoomReset := widget.NewButtonWithIcon("", theme.ZoomFitIcon(), func() { t.setZoom(func() { s.SetZoom(1) }) })

	sliderContainer := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), t.width)

	top := container.NewHBox(
		widget.NewLabel("Tool:"), t.tools,
		widget.NewLabel("Arrows:"), t.arrowStyle,
		widget.NewSeparator(),
		widget.NewLabel("Color:"), swatches,
		widget.NewSeparator(),
		widget.NewLabel("Size:"), sliderContainer,
		layout.NewSpacer(),
	)
	bottom := container.NewHBox(
		t.undo, t.redo, clearBtn,
		widget.NewSeparator(),
		zoomOut, t.zoom, zoomIn, zoomReset,
		widget.NewSeparator(),
		widget.NewLabel("Map:"), t.maps,
		widget.NewSeparator(),
	)
	for _, o := range extra {
		bottom.Add(o)
	}
	bottom.Add(layout.NewSpacer())
	return container.NewVBox(top, bottom)
}
