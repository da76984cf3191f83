package filter

import (
	"testing"
	"time"
)

func TestBuildLiterals(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		params Params
		want   string
	}{
		{
			name:   "string",
			expr:   "status = {:status}",
			params: Params{"status": "published"},
			want:   "status = 'published'",
		},
		{
			name:   "string with quote",
			expr:   "title = {:title}",
			params: Params{"title": "it's here"},
			want:   `title = 'it\'s here'`,
		},
		{
			name:   "string with backslash",
			expr:   "path = {:p}",
			params: Params{"p": `a\b`},
			want:   `path = 'a\\b'`,
		},
		{
			name:   "int and float",
			expr:   "views > {:min} && score >= {:score}",
			params: Params{"min": 10, "score": 2.5},
			want:   "views > 10 && score >= 2.5",
		},
		{
			name:   "bool and null",
			expr:   "active = {:active} && deleted = {:gone}",
			params: Params{"active": true, "gone": nil},
			want:   "active = true && deleted = null",
		},
		{
			name:   "repeated placeholder",
			expr:   "a = {:v} || b = {:v}",
			params: Params{"v": 7},
			want:   "a = 7 || b = 7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(tt.expr, tt.params)
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildTime(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 9, 26, 0, time.FixedZone("CET", 3600))
	got, err := Build("created >= {:since}", Params{"since": ts})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	want := "created >= '2026-03-14T14:09:26Z'"
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestBuildJSONFallback(t *testing.T) {
	got, err := Build("tags ?= {:tags}", Params{"tags": []string{"go", "sdk"}})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	want := `tags ?= '["go","sdk"]'`
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestBuildMissingParam(t *testing.T) {
	if _, err := Build("a = {:x}", nil); err == nil {
		t.Error("Build() with missing parameter should fail")
	}
}

func TestBuildUnusedParam(t *testing.T) {
	if _, err := Build("a = {:x}", Params{"x": 1, "y": 2}); err == nil {
		t.Error("Build() with unused parameter should fail")
	}
}

func TestBuildNoPlaceholders(t *testing.T) {
	got, err := Build("status = 'draft'", nil)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if got != "status = 'draft'" {
		t.Errorf("Build() = %q", got)
	}
}
