package todo

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/gittodo/internal/apperr"
	"github.com/starford/gittodo/internal/storage"
)

func testDoc(t *testing.T, content string) (*Document, storage.Provider) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if content != "" {
		if err := store.Write("todo.md", []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	doc, err := Open(store, "todo.md")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return doc, store
}

func raw(t *testing.T, d *Document) string {
	t.Helper()
	data, err := d.Raw()
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

const fixture = "## Home\n* fix sink\n* water plants\n\n## Work\n* ship release\n"

func TestOpenCreatesFile(t *testing.T) {
	doc, _ := testDoc(t, "")
	out, err := doc.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if out != "<empty>" {
		t.Errorf("ReadAll = %q, want <empty>", out)
	}
}

func TestReadAll_Numbered(t *testing.T) {
	doc, _ := testDoc(t, fixture)
	out, err := doc.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := "## Home\n1 - fix sink\n2 - water plants\n\n## Work\n5 - ship release\n"
	if out != want {
		t.Errorf("ReadAll = %q, want %q", out, want)
	}
}

func TestEntries(t *testing.T) {
	doc, _ := testDoc(t, fixture)
	entries, err := doc.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[2].Numbered() != "5 - ship release" {
		t.Errorf("numbered = %q", entries[2].Numbered())
	}
}

func TestSections(t *testing.T) {
	doc, _ := testDoc(t, fixture)
	out, _ := doc.ListSections()
	if out != "## Home\n## Work\n" {
		t.Errorf("ListSections = %q", out)
	}

	empty, _ := testDoc(t, "")
	out, _ = empty.ListSections()
	if out != "<No sections found>" {
		t.Errorf("ListSections on empty = %q", out)
	}
}

func TestReadSection(t *testing.T) {
	doc, _ := testDoc(t, fixture+"\n## Empty\n")

	out, err := doc.ReadSection("Home")
	if err != nil {
		t.Fatal(err)
	}
	if out != "1 - fix sink\n2 - water plants\n" {
		t.Errorf("ReadSection(Home) = %q", out)
	}

	if out, _ := doc.ReadSection("home"); out != "<No section home>" {
		t.Errorf("case-sensitive lookup = %q", out)
	}
	if out, _ := doc.ReadSection("Empty"); out != "<Empty is empty>" {
		t.Errorf("empty section = %q", out)
	}
	if _, err := doc.ReadSection(""); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty name err = %v", err)
	}
}

func TestAppend_ExistingSectionCaseInsensitive(t *testing.T) {
	doc, _ := testDoc(t, fixture)
	if err := doc.Append("work", "review PR"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	want := "## Home\n* fix sink\n* water plants\n\n## Work\n* review PR\n* ship release\n"
	if got := raw(t, doc); got != want {
		t.Errorf("doc = %q, want %q", got, want)
	}
}

func TestAppend_NewSection(t *testing.T) {
	doc, _ := testDoc(t, fixture)
	if err := doc.Append("Admin", "* renew license"); err != nil {
		t.Fatal(err)
	}
	if got := raw(t, doc); got != fixture+"\n## Admin\n* renew license\n" {
		t.Errorf("doc = %q", got)
	}
}

func TestAppend_EmptyDocument(t *testing.T) {
	doc, _ := testDoc(t, "")
	if err := doc.Append("Admin", "renew license"); err != nil {
		t.Fatal(err)
	}
	if got := raw(t, doc); got != "## Admin\n* renew license\n" {
		t.Errorf("doc = %q", got)
	}
}

func TestAppend_ThenReadSectionContainsOnce(t *testing.T) {
	doc, _ := testDoc(t, fixture)
	for _, section := range []string{"Home", "Garden"} {
		if err := doc.Append(section, "buy seeds"); err != nil {
			t.Fatal(err)
		}
		out, _ := doc.ReadSection(section)
		if n := strings.Count(out, "buy seeds"); n != 1 {
			t.Errorf("%s contains todo %d times: %q", section, n, out)
		}
	}
	sections, _ := doc.Sections()
	if len(sections) != 3 {
		t.Errorf("sections = %v", sections)
	}
}

func TestAppend_InvalidArgument(t *testing.T) {
	doc, _ := testDoc(t, fixture)
	for _, c := range [][2]string{{"", "x"}, {"Home", ""}, {"Home", "  "}, {"Home", "a\nb"}} {
		if err := doc.Append(c[0], c[1]); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Errorf("Append(%q, %q) err = %v", c[0], c[1], err)
		}
	}
	if got := raw(t, doc); got != fixture {
		t.Errorf("document mutated: %q", got)
	}
}

func TestDelete(t *testing.T) {
	doc, _ := testDoc(t, fixture)
	removed, err := doc.Delete(1)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if removed != "* fix sink" {
		t.Errorf("removed = %q", removed)
	}
	entries, _ := doc.Entries()
	// Positions below the removed line shift up by one.
	if entries[0].Position != 1 || entries[0].Text != "water plants" || entries[1].Position != 4 {
		t.Errorf("entries after delete = %+v", entries)
	}
}

func TestDelete_HeadingNotDeletable(t *testing.T) {
	doc, _ := testDoc(t, fixture)
	_, err := doc.Delete(4)
	if !errors.Is(err, apperr.ErrNotDeletable) {
		t.Fatalf("err = %v, want ErrNotDeletable", err)
	}
	if got := raw(t, doc); got != fixture {
		t.Errorf("document changed: %q", got)
	}
}

func TestDelete_OutOfRange(t *testing.T) {
	doc, _ := testDoc(t, fixture)
	for _, pos := range []int{-1, 6, 100} {
		if _, err := doc.Delete(pos); !errors.Is(err, apperr.ErrPositionOutOfRange) {
			t.Errorf("Delete(%d) err = %v", pos, err)
		}
	}
	if got := raw(t, doc); got != fixture {
		t.Errorf("document changed: %q", got)
	}
}

func TestDelete_CollectsEmptySection(t *testing.T) {
	doc, _ := testDoc(t, fixture)
	if _, err := doc.Delete(5); err != nil {
		t.Fatal(err)
	}
	sections, _ := doc.Sections()
	if len(sections) != 1 || sections[0] != "Home" {
		t.Errorf("sections = %v, want [Home]", sections)
	}
	if got := raw(t, doc); got != "## Home\n* fix sink\n* water plants\n\n" {
		t.Errorf("doc = %q", got)
	}
}

func TestDelete_DescendingBatchKeepsPositions(t *testing.T) {
	doc, _ := testDoc(t, fixture)
	for _, pos := range []int{5, 2, 1} {
		if _, err := doc.Delete(pos); err != nil {
			t.Fatalf("Delete(%d): %v", pos, err)
		}
	}
	if got := raw(t, doc); got != "" {
		t.Errorf("doc = %q, want empty", got)
	}
}

func TestMove(t *testing.T) {
	doc, _ := testDoc(t, fixture)

	ok, err := doc.Move(1, Down)
	if err != nil || !ok {
		t.Fatalf("Move down = %v, %v", ok, err)
	}
	if got := raw(t, doc); !strings.HasPrefix(got, "## Home\n* water plants\n* fix sink\n") {
		t.Errorf("doc = %q", got)
	}

	ok, err = doc.Move(2, Up)
	if err != nil || !ok {
		t.Fatalf("Move up = %v, %v", ok, err)
	}
	if got := raw(t, doc); got != fixture {
		t.Errorf("doc = %q, want original", got)
	}
}

func TestMove_Boundaries(t *testing.T) {
	doc, _ := testDoc(t, fixture)
	cases := []struct {
		pos int
		dir Direction
	}{
		{1, Up},   // heading above
		{2, Down}, // blank line below
		{5, Down}, // end of document
		{5, Up},   // heading above
		{4, Down}, // heading itself
	}
	for _, c := range cases {
		ok, err := doc.Move(c.pos, c.dir)
		if err != nil || ok {
			t.Errorf("Move(%d, %d) = %v, %v; want false, nil", c.pos, c.dir, ok, err)
		}
	}
	if _, err := doc.Move(42, Up); !errors.Is(err, apperr.ErrPositionOutOfRange) {
		t.Errorf("out of range err = %v", err)
	}
	if got := raw(t, doc); got != fixture {
		t.Errorf("document changed: %q", got)
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"up": Up, "UP": Up, "-1": Up, "down": Down, "1": Down} {
		got, err := ParseDirection(in)
		if err != nil || got != want {
			t.Errorf("ParseDirection(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseDirection("sideways"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v", err)
	}
}
