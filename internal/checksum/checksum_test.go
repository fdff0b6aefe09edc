package checksum

import "testing"

func TestMarkdown_LineEndings(t *testing.T) {
	unix := Markdown("# Inn\n| a | b |\n")
	if got := Markdown("# Inn\r\n| a | b |\r\n"); got != unix {
		t.Errorf("CRLF digest differs: %s vs %s", got, unix)
	}
	if got := Markdown("# Inn\r| a | b |\r"); got != unix {
		t.Errorf("CR digest differs: %s vs %s", got, unix)
	}
	if Markdown("# Inn") == unix {
		t.Error("different content must hash differently")
	}
	if len(unix) != 64 {
		t.Errorf("len = %d, want 64", len(unix))
	}
}

func TestShort(t *testing.T) {
	if got := Short("abc"); got != "abc" {
		t.Errorf("Short(abc) = %q", got)
	}
	if got := Short(Markdown("x")); len(got) != 12 {
		t.Errorf("len = %d", len(got))
	}
}
