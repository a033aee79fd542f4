package main

// rowWindow computes which rows of a virtualized list must be mounted
// for a given scroll offset. All heights and offsets are in terminal
// lines; the math is pure so it can be recomputed on every scroll or
// row-count change.
type rowWindow struct {
	rowCount  int
	rowHeight int
	overscan  int
}

func newRowWindow(rowCount, rowHeight, overscan int) rowWindow {
	if rowHeight < 1 {
		rowHeight = 1
	}
	if rowCount < 0 {
		rowCount = 0
	}
	if overscan < 0 {
		overscan = 0
	}
	return rowWindow{rowCount: rowCount, rowHeight: rowHeight, overscan: overscan}
}

func (w rowWindow) totalHeight() int {
	return w.rowCount * w.rowHeight
}

// rowOffset is the absolute vertical offset of row i inside the scroll
// container.
func (w rowWindow) rowOffset(i int) int {
	return i * w.rowHeight
}

// visibleRange returns the inclusive index range [start, end] of rows
// whose vertical band intersects the viewport extended by the overscan
// margin. end < start means nothing is visible.
func (w rowWindow) visibleRange(scrollOffset, viewportHeight int) (int, int) {
	if w.rowCount == 0 || viewportHeight <= 0 {
		return 0, -1
	}
	top := scrollOffset - w.overscan*w.rowHeight
	bottom := scrollOffset + viewportHeight + w.overscan*w.rowHeight
	if top < 0 {
		top = 0
	}
	if bottom > w.totalHeight() {
		bottom = w.totalHeight()
	}
	if bottom <= top {
		return 0, -1
	}
	start := top / w.rowHeight
	end := (bottom - 1) / w.rowHeight
	if start < 0 {
		start = 0
	}
	if end > w.rowCount-1 {
		end = w.rowCount - 1
	}
	return start, end
}

// clampScroll keeps the scroll offset within the scrollable extent.
func (w rowWindow) clampScroll(offset, viewportHeight int) int {
	max := w.totalHeight() - viewportHeight
	if max < 0 {
		max = 0
	}
	if offset > max {
		offset = max
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}
