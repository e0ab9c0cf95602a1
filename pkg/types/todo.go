package types

// Todo is a stored to-do record.
type Todo struct {
	ID          int64   `json:"id"`          // Assigned by the store, never reused.
	Title       string  `json:"title"`       // Required, non-empty.
	Description *string `json:"description"` // nil means unset, distinct from "".
	Completed   bool    `json:"completed"`
}

// Clone returns a deep copy of t.
func (t *Todo) Clone() *Todo {
	if t == nil {
		return nil
	}
	c := *t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	return &c
}

// CreatePayload is the input of TodoTable.Create.
type CreatePayload struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Completed   bool    `json:"completed"`
}

// Validate returns ErrInvalidTitle if the title is empty.
func (p CreatePayload) Validate() error {
	if p.Title == "" {
		return ErrInvalidTitle
	}
	return nil
}

// NewTodo builds the record that Create stores under id.
func (p CreatePayload) NewTodo(id int64) *Todo {
	t := &Todo{
		ID:        id,
		Title:     p.Title,
		Completed: p.Completed,
	}
	if p.Description != nil {
		d := *p.Description
		t.Description = &d
	}
	return t
}

// UpdatePayload is the input of TodoTable.Update. Absent fields leave the
// stored value untouched. A null title or completed is treated as absent;
// a null description clears it.
type UpdatePayload struct {
	Title       Field[string] `json:"title,omitzero"`
	Description Field[string] `json:"description,omitzero"`
	Completed   Field[bool]   `json:"completed,omitzero"`
}

// Validate checks the payload before any record is touched.
func (p UpdatePayload) Validate() error {
	if p.Title.Present() && p.Title.Value == "" {
		return ErrInvalidTitle
	}
	return nil
}

// Empty reports whether applying p would leave every record unchanged.
func (p UpdatePayload) Empty() bool {
	return !p.Title.Present() && !p.Description.Set && !p.Completed.Present()
}

// Apply overwrites the fields of t that are present in p.
// Callers run Validate first.
func (p UpdatePayload) Apply(t *Todo) {
	if p.Title.Present() {
		t.Title = p.Title.Value
	}
	if p.Description.Set {
		if p.Description.Null {
			t.Description = nil
		} else {
			d := p.Description.Value
			t.Description = &d
		}
	}
	if p.Completed.Present() {
		t.Completed = p.Completed.Value
	}
}
