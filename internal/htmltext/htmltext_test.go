package htmltext

import "testing"

func TestPlainText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Intro  course\n", "Intro course"},
		{"inline markup", "Team <b>project</b> work", "Team project work"},
		{"blocks", "<p>First</p><p>Second</p>", "First Second"},
		{"line breaks", "one<br>two", "one two"},
		{"entities", "Theory &amp; Practice", "Theory & Practice"},
		{"scripts dropped", "<p>Visible</p><script>alert(1)</script>", "Visible"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PlainText(tc.in); got != tc.want {
				t.Fatalf("PlainText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
