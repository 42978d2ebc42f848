package outputfmt

import (
	"strings"
	"testing"
)

func TestSanitizeErrorText_RemovesHostAndRedactsSensitiveQuery(t *testing.T) {
	in := `eval failed: Post "https://internal.corp.example/v1/run:exec?key=sk-test-secret&alt=json": context deadline exceeded (Client.Timeout exceeded while awaiting headers)`

	out := SanitizeErrorText(in)
	if strings.Contains(out, "internal.corp.example") {
		t.Fatalf("host should be removed, got %q", out)
	}
	if strings.Contains(out, "sk-test-secret") {
		t.Fatalf("sensitive key value should be redacted, got %q", out)
	}
	if !strings.Contains(out, `Post "/v1/run:exec?`) {
		t.Fatalf("expected path/query to be kept, got %q", out)
	}
	if !strings.Contains(out, "key=%5Bredacted%5D") {
		t.Fatalf("expected key query to be redacted, got %q", out)
	}
}

func TestSanitizeErrorText_MultipleURLs(t *testing.T) {
	in := `fetch failed: https://a.example.com/ping?token=abc then https://b.example.com/health?ok=1`
	out := SanitizeErrorText(in)
	if strings.Contains(out, "a.example.com") || strings.Contains(out, "b.example.com") {
		t.Fatalf("hosts should be removed, got %q", out)
	}
	if !strings.Contains(out, "/ping?token=%5Bredacted%5D") {
		t.Fatalf("first url should keep path/query, got %q", out)
	}
	if !strings.Contains(out, "/health?ok=1") {
		t.Fatalf("second url should keep path/query, got %q", out)
	}
}

func TestSanitizeErrorText_PlainTextUntouched(t *testing.T) {
	in := "division by zero at line 3"
	if out := SanitizeErrorText(in); out != in {
		t.Fatalf("plain text should pass through, got %q", out)
	}
}
