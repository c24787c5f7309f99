package version

import "testing"

func TestString(t *testing.T) {
	defer func(v, b, c string) { Version, BuildTime, GitCommit = v, b, c }(Version, BuildTime, GitCommit)
	Version, BuildTime, GitCommit = "1.2.3", "2026-01-02", "abc123"

	want := "v1.2.3 (built 2026-01-02, commit abc123)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
