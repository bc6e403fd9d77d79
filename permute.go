package csvpermute

import (
	"fmt"
	"slices"
	"strconv"
)

// Mode selects what Permute reorders.
type Mode int

const (
	// Columns moves every non-excluded column to a new position.
	Columns Mode = iota
	// Rows reorders the data rows.
	Rows
)

func (m Mode) String() string {
	switch m {
	case Columns:
		return "column"
	case Rows:
		return "row"
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// Permute returns a copy of t with its columns or data rows reordered by a
// single permutation drawn from src. The header row, when present, is copied
// unchanged to row 0 in both modes.
//
// In column mode every data row receives the same permutation of the
// non-excluded positions; excluded columns keep their values in place. In row
// mode excluded must be empty (*ModeConflictError). An empty domain (no
// columns, or no data rows in row mode) is an *EmptyTableError.
func Permute(t Table, mode Mode, excluded ColumnIndexSet, headerPresent bool, src Source) (Table, error) {
	first := 0
	if headerPresent && t.Len() > 0 {
		first = 1
	}

	switch mode {
	case Columns:
		return permuteColumns(t, excluded, first, src)
	case Rows:
		return permuteRows(t, excluded, first, src)
	}
	return Table{}, fmt.Errorf("csvpermute: unknown mode %d", int(mode))
}

func permuteColumns(t Table, excluded ColumnIndexSet, first int, src Source) (Table, error) {
	width := t.Width()
	if width == 0 {
		return Table{}, &EmptyTableError{Mode: Columns}
	}

	eligible := make([]int, 0, width)
	for i := range width {
		if !excluded.Contains(i) {
			eligible = append(eligible, i)
		}
	}
	if n := len(eligible) + excluded.Len(); n != width {
		for _, idx := range excluded.sorted {
			if idx < 0 || idx >= width {
				return Table{}, &IndexOutOfRangeError{Token: strconv.Itoa(idx), Index: idx, Width: width}
			}
		}
	}
	for r, row := range t.rows {
		if len(row) != width {
			return Table{}, &MalformedRowError{Record: r + 1, Expected: width, Got: len(row), Err: ErrFieldCount}
		}
	}
	perm, err := draw(src, eligible)
	if err != nil {
		return Table{}, err
	}

	out := Table{rows: make([][]string, len(t.rows)), encoding: t.encoding, skipped: t.skipped}
	for r, row := range t.rows {
		moved := slices.Clone(row)
		if r >= first {
			for k, pos := range eligible {
				moved[pos] = row[perm[k]]
			}
		}
		out.rows[r] = moved
	}
	return out, nil
}

func permuteRows(t Table, excluded ColumnIndexSet, first int, src Source) (Table, error) {
	if excluded.Len() > 0 {
		cols := make([]string, excluded.Len())
		for i, idx := range excluded.sorted {
			cols[i] = strconv.Itoa(idx)
		}
		return Table{}, &ModeConflictError{Mode: Rows, Columns: cols}
	}
	data := t.rows[first:]
	if len(data) == 0 {
		return Table{}, &EmptyTableError{Mode: Rows}
	}

	positions := make([]int, len(data))
	for i := range positions {
		positions[i] = i
	}
	perm, err := draw(src, positions)
	if err != nil {
		return Table{}, err
	}

	out := Table{rows: make([][]string, 0, len(t.rows)), encoding: t.encoding, skipped: t.skipped}
	for _, row := range t.rows[:first] {
		out.rows = append(out.rows, slices.Clone(row))
	}
	for _, p := range perm {
		out.rows = append(out.rows, slices.Clone(data[p]))
	}
	return out, nil
}

// draw shuffles a copy of domain with src and checks that the result is a
// reordering of domain.
func draw(src Source, domain []int) ([]int, error) {
	perm := slices.Clone(domain)
	if err := src.Shuffle(perm); err != nil {
		return nil, fmt.Errorf("drawing permutation: %w", err)
	}
	if len(perm) != len(domain) {
		return nil, ErrBadPermutation
	}
	sorted := slices.Clone(perm)
	slices.Sort(sorted)
	want := slices.Clone(domain)
	slices.Sort(want)
	if !slices.Equal(sorted, want) {
		return nil, ErrBadPermutation
	}
	return perm, nil
}
