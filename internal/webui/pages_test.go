package webui

import (
	"bytes"
	"strings"
	"testing"
)

func TestRedirectPageEscapesParams(t *testing.T) {
	t.Parallel()

	tmpl, errLoad := Load()
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	var buf bytes.Buffer
	errExec := tmpl.ExecuteTemplate(&buf, RedirectPage, map[string]any{
		"SiteName": "LDC Shop",
		"OrderID":  "01ABC",
		"URL":      "https://pay.example/submit.php",
		"Params":   map[string]string{"name": `"><script>`, "money": "3.00"},
	})
	if errExec != nil {
		t.Fatalf("execute: %v", errExec)
	}
	out := buf.String()
	if !strings.Contains(out, `action="https://pay.example/submit.php"`) {
		t.Fatalf("missing form action in %s", out)
	}
	if !strings.Contains(out, `name="money" value="3.00"`) {
		t.Fatalf("missing money field in %s", out)
	}
	if strings.Contains(out, `"><script>`) {
		t.Fatalf("param value was not escaped: %s", out)
	}
	if tmpl.Lookup(ErrorPage) == nil {
		t.Fatalf("missing %s", ErrorPage)
	}
}
