package illust

import (
	"errors"
	"io/fs"
	"testing"
)

func TestParseID(t *testing.T) {
	cases := []struct {
		s       string
		want    ID
		wantErr bool
	}{
		{s: "0", want: 0},
		{s: "42", want: 42},
		{s: "-1", want: -1},
		{s: "x", wantErr: true},
		{s: "", wantErr: true},
	}
	for _, c := range cases {
		got, err := ParseID(c.s)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseID(%q): got no error", c.s)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseID(%q): %s", c.s, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseID(%q) = %s, want %s", c.s, got, c.want)
		}
		if got.String() != c.s {
			t.Errorf("ID(%s).String() = %q", c.s, got.String())
		}
	}
}

func TestInRange(t *testing.T) {
	cases := []struct {
		id    ID
		count int64
		want  bool
	}{
		{0, 0, false},
		{0, 1, true},
		{1, 1, false},
		{-1, 5, false},
		{4, 5, true},
		{5, 5, false},
	}
	for _, c := range cases {
		if got := c.id.InRange(c.count); got != c.want {
			t.Errorf("ID(%s).InRange(%d) = %v, want %v", c.id, c.count, got, c.want)
		}
	}
}

func TestErrors(t *testing.T) {
	var err error = &PathError{Path: "/x/index", Err: fs.ErrPermission}
	if !errors.Is(err, fs.ErrPermission) {
		t.Errorf("PathError does not unwrap to its cause")
	}
	var perr *PathError
	if !errors.As(err, &perr) || perr.Path != "/x/index" {
		t.Errorf("errors.As failed on %v", err)
	}

	err = &IOError{Op: "sync", Path: "/x/data", Err: fs.ErrClosed}
	if !errors.Is(err, fs.ErrClosed) {
		t.Errorf("IOError does not unwrap to its cause")
	}
	if got, want := err.Error(), "sync /x/data: file already closed"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
