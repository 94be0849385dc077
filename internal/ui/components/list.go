package components

// List is a cursor over a window of rows. Rows are addressed by absolute
// index; the list only tracks the cursor and the scroll offset.
type List struct {
	Len      int
	Cursor   int
	Offset   int
	PageSize int
}

// NewList creates a list with the given page size.
func NewList(pageSize int) *List {
	if pageSize < 1 {
		pageSize = 1
	}
	return &List{PageSize: pageSize}
}

// SetLen updates the row count after a reload, keeping the cursor where it
// was when it is still in range.
func (l *List) SetLen(n int) {
	l.Len = n
	if l.Cursor >= n {
		l.Cursor = max(n-1, 0)
	}
	l.clampOffset()
}

// Reset moves the cursor back to the top.
func (l *List) Reset() {
	l.Cursor = 0
	l.Offset = 0
}

// SetPageSize changes the window height.
func (l *List) SetPageSize(n int) {
	l.PageSize = max(n, 1)
	l.clampOffset()
}

// Down moves the cursor down.
func (l *List) Down() {
	if l.Cursor < l.Len-1 {
		l.Cursor++
		l.clampOffset()
	}
}

// Up moves the cursor up.
func (l *List) Up() {
	if l.Cursor > 0 {
		l.Cursor--
		l.clampOffset()
	}
}

// Selected returns the cursor index.
func (l *List) Selected() int {
	return l.Cursor
}

// Window returns the [start, end) range of rows to render.
func (l *List) Window() (int, int) {
	end := min(l.Offset+l.PageSize, l.Len)
	return l.Offset, end
}

func (l *List) clampOffset() {
	if l.Cursor < l.Offset {
		l.Offset = l.Cursor
	}
	if l.Cursor >= l.Offset+l.PageSize {
		l.Offset = l.Cursor - l.PageSize + 1
	}
	if l.Offset > max(l.Len-l.PageSize, 0) {
		l.Offset = max(l.Len-l.PageSize, 0)
	}
	if l.Offset < 0 {
		l.Offset = 0
	}
}
