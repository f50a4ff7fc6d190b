package state

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// MaxLabels caps the number of live labels.
const MaxLabels = 15

// LogoSize is the on-canvas height of a logo label, in canvas pixels.
const LogoSize = 64.0

var ErrLabelLimit = errors.New("label limit reached")

type LabelKind string

const (
	LabelText LabelKind = "text"
	LabelLogo LabelKind = "logo"
)

// Label is a draggable team/player name tag or logo. Labels are not part of
// the primitive store and are not recorded in history.
type Label struct {
	ID       string    `json:"id"`
	Kind     LabelKind `json:"kind"`
	Text     string    `json:"text,omitempty"`
	Logo     []byte    `json:"logo,omitempty"`
	Position Point     `json:"position"`
	Color    string    `json:"color"`
}

func (l Label) clone() Label {
	if l.Logo != nil {
		l.Logo = append([]byte(nil), l.Logo...)
	}
	return l
}

// validate checks a label read from outside the session: text labels need
// text and logo labels need bytes that decode as an image.
func (l Label) validate() error {
	switch l.Kind {
	case LabelText:
		if strings.TrimSpace(l.Text) == "" {
			return fmt.Errorf("text label %s is empty", l.ID)
		}
	case LabelLogo:
		if _, _, err := image.DecodeConfig(bytes.NewReader(l.Logo)); err != nil {
			return fmt.Errorf("logo label %s: %w", l.ID, err)
		}
	default:
		return fmt.Errorf("label %s has unknown kind %q", l.ID, l.Kind)
	}
	return nil
}

func (l Label) contains(p Point) bool {
	halfW, halfH := TextHitHalfWidth, TextHitHalfHeight
	if l.Kind == LabelLogo {
		halfW, halfH = LogoSize/2, LogoSize/2
	}
	return math.Abs(p.X-l.Position.X) <= halfW && math.Abs(p.Y-l.Position.Y) <= halfH
}

// Labels is the bounded label collection of a session.
type Labels struct {
	items []Label
}

// Add appends l, assigning an ID when it has none. It fails with
// ErrLabelLimit once MaxLabels labels exist.
func (ls *Labels) Add(l Label) (Label, error) {
	if len(ls.items) >= MaxLabels {
		return Label{}, ErrLabelLimit
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l = l.clone()
	ls.items = append(ls.items, l)
	return l.clone(), nil
}

func (ls *Labels) index(id string) int {
	for i, l := range ls.items {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (ls *Labels) Move(id string, to Point) bool {
	i := ls.index(id)
	if i < 0 {
		return false
	}
	ls.items[i].Position = to
	return true
}

func (ls *Labels) Remove(id string) bool {
	i := ls.index(id)
	if i < 0 {
		return false
	}
	ls.items = append(ls.items[:i:i], ls.items[i+1:]...)
	return true
}

// HitTest returns the ID of the topmost label under p. Later labels are drawn
// over earlier ones, so the search runs back to front.
func (ls *Labels) HitTest(p Point) (string, bool) {
	for i := len(ls.items) - 1; i >= 0; i-- {
		if ls.items[i].contains(p) {
			return ls.items[i].ID, true
		}
	}
	return "", false
}

func (ls *Labels) Get(id string) (Label, bool) {
	i := ls.index(id)
	if i < 0 {
		return Label{}, false
	}
	return ls.items[i].clone(), true
}

func (ls *Labels) List() []Label {
	out := make([]Label, len(ls.items))
	for i, l := range ls.items {
		out[i] = l.clone()
	}
	return out
}

func (ls *Labels) Len() int { return len(ls.items) }

func (ls *Labels) replace(items []Label) {
	ls.items = make([]Label, len(items))
	for i, l := range items {
		ls.items[i] = l.clone()
	}
}
