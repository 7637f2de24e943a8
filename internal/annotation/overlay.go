package annotation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// State is the phase of the overlay's interaction.
type State int

const (
	// Idle: no shape is being drawn or labeled.
	Idle State = iota
	// Drawing: the pointer is down and the draft shape grows.
	Drawing
	// PendingLabel: the draft is complete and awaits its field values.
	PendingLabel
	// Editing: an existing shape's fields are being relabeled.
	Editing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Drawing:
		return "drawing"
	case PendingLabel:
		return "pending-label"
	case Editing:
		return "editing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrBusy          = errors.New("another shape is in progress")
	ErrNoCategory    = errors.New("no annotation category selected")
	ErrNotDrawing    = errors.New("no shape is being drawn")
	ErrNothingToSave = errors.New("no shape awaits labeling")
	ErrShapeNotFound = errors.New("annotation not found")
	ErrNotBox        = errors.New("only box annotations can be resized")
)

// Overlay holds the annotations of one open document page and the
// draw/label state machine acting on them. It is not safe for concurrent use.
type Overlay struct {
	shapes   []*Shape
	state    State
	mode     Kind
	category Category
	draft    *Shape
	anchor   Point
	editing  string
	hidden   map[Category]bool
	newID    func() string
}

// NewOverlay returns an idle overlay in box mode with every category visible.
func NewOverlay() *Overlay {
	return &Overlay{
		mode:   KindBox,
		hidden: make(map[Category]bool),
		newID:  func() string { return uuid.NewString() },
	}
}

func (o *Overlay) State() State { return o.state }

// SetMode selects the drawing tool for the next shape.
func (o *Overlay) SetMode(k Kind) { o.mode = k }

// SelectCategory sets the category given to the next drawn shape.
func (o *Overlay) SelectCategory(c Category) error {
	if c != "" {
		if _, err := ParseCategory(string(c)); err != nil {
			return err
		}
	}
	o.category = c
	return nil
}

// BeginDraw starts a new draft at p.
func (o *Overlay) BeginDraw(p Point) error {
	if o.state != Idle {
		return ErrBusy
	}
	if o.category == "" {
		return ErrNoCategory
	}
	o.anchor = p
	o.draft = &Shape{Kind: o.mode, Category: o.category, Fields: map[string]string{}}
	if o.mode == KindFree {
		o.draft.Points = []Point{p}
	} else {
		o.draft.X, o.draft.Y = p.X, p.Y
	}
	o.state = Drawing
	return nil
}

// UpdateDraw grows the draft toward p: a box stretches from its anchor, a
// free-hand line appends p.
func (o *Overlay) UpdateDraw(p Point) error {
	if o.state != Drawing {
		return ErrNotDrawing
	}
	if o.draft.Kind == KindFree {
		o.draft.Points = append(o.draft.Points, p)
		return nil
	}
	o.draft.X, o.draft.Y = o.anchor.X, o.anchor.Y
	o.draft.Width = p.X - o.anchor.X
	o.draft.Height = p.Y - o.anchor.Y
	return nil
}

// EndDraw finishes the draft; it now awaits labeling.
func (o *Overlay) EndDraw() error {
	if o.state != Drawing {
		return ErrNotDrawing
	}
	o.draft.normalize()
	o.state = PendingLabel
	return nil
}

// Draft returns a copy of the shape being drawn or labeled, or nil.
func (o *Overlay) Draft() *Shape {
	if o.draft == nil {
		return nil
	}
	return o.draft.clone()
}

// FormFields returns the fields and current values for the labeling form,
// pre-filled from the shape when editing.
func (o *Overlay) FormFields() ([]Field, map[string]string) {
	switch o.state {
	case PendingLabel:
		return Schema(o.draft.Category), map[string]string{}
	case Editing:
		if s := o.find(o.editing); s != nil {
			vals := make(map[string]string, len(s.Fields))
			for k, v := range s.Fields {
				vals[k] = v
			}
			return Schema(s.Category), vals
		}
	}
	return nil, nil
}

// CanSubmit reports whether values would be accepted by Submit, i.e.
// whether the form's OK control is enabled.
func (o *Overlay) CanSubmit(values map[string]string) bool {
	c, ok := o.labelCategory()
	return ok && len(MissingFields(c, values)) == 0
}

func (o *Overlay) labelCategory() (Category, bool) {
	switch o.state {
	case PendingLabel:
		return o.draft.Category, true
	case Editing:
		if s := o.find(o.editing); s != nil {
			return s.Category, true
		}
	}
	return "", false
}

// Submit applies values to the draft (committing it as a new shape) or to
// the shape being edited. Incomplete values leave everything unchanged.
func (o *Overlay) Submit(values map[string]string) (*Shape, error) {
	c, ok := o.labelCategory()
	if !ok {
		return nil, ErrNothingToSave
	}
	if err := ValidateFields(c, values); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(values))
	for _, f := range schemas[c] {
		fields[f.Key] = values[f.Key]
	}

	if o.state == Editing {
		s := o.find(o.editing)
		s.Fields = fields
		o.editing = ""
		o.state = Idle
		return s.clone(), nil
	}

	s := o.draft
	s.ID = o.newID()
	s.Fields = fields
	o.shapes = append(o.shapes, s)
	o.draft = nil
	o.state = Idle
	return s.clone(), nil
}

// Cancel discards the draft or abandons the edit.
func (o *Overlay) Cancel() {
	o.draft = nil
	o.editing = ""
	o.state = Idle
}

// BeginEdit reopens the labeling form for the shape with id.
func (o *Overlay) BeginEdit(id string) error {
	if o.state != Idle {
		return ErrBusy
	}
	if o.find(id) == nil {
		return fmt.Errorf("%w: %s", ErrShapeNotFound, id)
	}
	o.editing = id
	o.state = Editing
	return nil
}

// Move places a shape's top-left corner at (x, y). Free-hand shapes are
// translated as a whole.
func (o *Overlay) Move(id string, x, y float64) error {
	s := o.find(id)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrShapeNotFound, id)
	}
	if s.Kind == KindFree {
		origin := s.Origin()
		dx, dy := x-origin.X, y-origin.Y
		for i := range s.Points {
			s.Points[i].X += dx
			s.Points[i].Y += dy
		}
		return nil
	}
	s.X, s.Y = x, y
	return nil
}

// Transform applies a resize handle result: the node's new position and the
// scale factors relative to the stored size. The scale is folded into width
// and height (never below MinBoxSize) so the next resize starts from 1.
func (o *Overlay) Transform(id string, x, y, scaleX, scaleY float64) error {
	s := o.find(id)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrShapeNotFound, id)
	}
	if s.Kind != KindBox {
		return ErrNotBox
	}
	s.X, s.Y = x, y
	s.Width = max(MinBoxSize, s.Width*scaleX)
	s.Height = max(MinBoxSize, s.Height*scaleY)
	return nil
}

// Delete removes the shape with id immediately.
func (o *Overlay) Delete(id string) error {
	for i, s := range o.shapes {
		if s.ID == id {
			o.shapes = append(o.shapes[:i], o.shapes[i+1:]...)
			if o.editing == id {
				o.Cancel()
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrShapeNotFound, id)
}

// Shapes returns copies of every committed shape in creation order.
func (o *Overlay) Shapes() []*Shape {
	out := make([]*Shape, 0, len(o.shapes))
	for _, s := range o.shapes {
		out = append(out, s.clone())
	}
	return out
}

// Len returns the number of committed shapes.
func (o *Overlay) Len() int { return len(o.shapes) }

// ToggleCategory flips whether shapes of c are rendered.
func (o *Overlay) ToggleCategory(c Category) {
	o.hidden[c] = !o.hidden[c]
}

// Visible reports whether shapes of c are rendered.
func (o *Overlay) Visible(c Category) bool { return !o.hidden[c] }

// VisibleShapes returns copies of committed shapes whose category is visible.
func (o *Overlay) VisibleShapes() []*Shape {
	var out []*Shape
	for _, s := range o.shapes {
		if o.Visible(s.Category) {
			out = append(out, s.clone())
		}
	}
	return out
}

func (o *Overlay) find(id string) *Shape {
	for _, s := range o.shapes {
		if s.ID == id {
			return s
		}
	}
	return nil
}
