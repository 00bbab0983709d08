package callpath

import "testing"

func TestCallPath_Prefixes(t *testing.T) {
	p := New("/rest", 1, "/employee", "7")
	if got, want := p.PathPrefix(), "/rest/1/employee"; got != want {
		t.Errorf("PathPrefix: got %q, want %q", got, want)
	}
	if got, want := p.FullPath(), "/rest/1/employee/7"; got != want {
		t.Errorf("FullPath: got %q, want %q", got, want)
	}
	if got, want := p.WithResourceID("").FullPath(), "/rest/1/employee"; got != want {
		t.Errorf("FullPath without id: got %q, want %q", got, want)
	}
	unversioned := New("/rest", NoVersion, "/employee", "")
	if unversioned.HasVersion() {
		t.Error("HasVersion: got true for NoVersion")
	}
	if got, want := unversioned.FullPath(), "/rest/employee"; got != want {
		t.Errorf("FullPath: got %q, want %q", got, want)
	}
}

func TestCallPath_RoundTripThroughParser(t *testing.T) {
	paths := []CallPath{
		New("/rest", 3.1, "/service53", "323222"),
		New("/rest", NoVersion, "/service53", ""),
		New("", 2, "/a", "b"),
	}
	for _, want := range paths {
		p := NewParser(want.BasePath(), want.HasVersion(), want.ServicePath())
		got, err := p.Parse(want.FullPath())
		if err != nil {
			t.Fatalf("Parse(%q): %v", want.FullPath(), err)
		}
		if got != want {
			t.Errorf("round trip: got %+v, want %+v", got, want)
		}
	}
}

func TestCallPath_Matches(t *testing.T) {
	declared := New("/rest", 1, "/employee", "")
	tests := []struct {
		name  string
		other CallPath
		want  bool
	}{
		{"same", New("/rest", 1, "/employee", "9"), true},
		{"longer service", New("/rest", 1, "/employee/sub", ""), true},
		{"other version", New("/rest", 2, "/employee", ""), false},
		{"other base", New("/api", 1, "/employee", ""), false},
		{"other service", New("/rest", 1, "/dept", ""), false},
	}
	for _, tt := range tests {
		if got := declared.Matches(tt.other); got != tt.want {
			t.Errorf("%s: Matches got %v, want %v", tt.name, got, tt.want)
		}
	}
}
