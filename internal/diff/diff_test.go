package diff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHTMLMarksInsertionsAndDeletions(t *testing.T) {
	out := string(HTML("the quick fox", "the slow fox"))

	assert.Contains(t, out, "<del>quick</del>")
	assert.Contains(t, out, "<ins>slow</ins>")
	assert.Contains(t, out, "<span>the </span>")
}

func TestHTMLEscapesContent(t *testing.T) {
	out := string(HTML("", "<script>alert(1)</script>"))

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestCompareUnchanged(t *testing.T) {
	f := Compare("Title", "Title", "Home", "Home")

	assert.False(t, f.Changed)
	assert.Equal(t, "<span>Home</span>", string(f.HTML))
}

func TestCompareChangedField(t *testing.T) {
	got := Compare("Content", "Content", "a b", "a c")

	want := Field{
		Name:    "Content",
		Label:   "Content",
		From:    "a b",
		To:      "a c",
		HTML:    "<span>a </span><del>b</del><ins>c</ins>",
		Changed: true,
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("Compare mismatch (-want +got):\n%s", d)
	}
}
