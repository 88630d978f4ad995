package blocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRichText_AllowedTags(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		wantErr bool
	}{
		{name: "plain text", html: "Inspekcja instalacji"},
		{name: "paragraphs and lists", html: "<h2>Zakres</h2><p>Pomiar <strong>izolacji</strong></p><ul><li>termowizja</li></ul>"},
		{name: "link", html: `<p><a href="https://oze.pl/kontakt">kontakt</a></p>`},
		{name: "script", html: "<p>x</p><script>alert(1)</script>", wantErr: true},
		{name: "iframe", html: `<iframe src="https://example.com"></iframe>`, wantErr: true},
		{name: "event handler", html: `<p onclick="alert(1)">x</p>`, wantErr: true},
		{name: "javascript link", html: `<a href=" JavaScript:alert(1)">x</a>`, wantErr: true},
		{name: "nested disallowed", html: "<blockquote><p><img src=x></p></blockquote>", wantErr: true},
		{name: "mailto link", html: `<a href="mailto:biuro@oze.pl">napisz</a>`},
		{name: "tel link", html: `<a href="tel:+48600100200">zadzwoń</a>`},
		{name: "relative link", html: `<a href="/kontakt#formularz" title="Kontakt">kontakt</a>`},
		{name: "new tab link", html: `<a href="https://oze.pl" target="_blank" rel="noopener">oze</a>`},
		{name: "tab inside scheme", html: `<a href="java&#09;script:alert(1)">klik</a>`, wantErr: true},
		{name: "newline inside scheme", html: "<a href=\"java\nscript:alert(1)\">klik</a>", wantErr: true},
		{name: "encoded scheme", html: `<a href="&#106;avascript:alert(1)">klik</a>`, wantErr: true},
		{name: "leading control character", html: "<a href=\"\x01javascript:alert(1)\">klik</a>", wantErr: true},
		{name: "data link", html: `<a href="data:text/html;base64,PHNjcmlwdD4=">klik</a>`, wantErr: true},
		{name: "vbscript link", html: `<a href="VBScript:msgbox(1)">klik</a>`, wantErr: true},
		{name: "style attribute", html: `<p style="background:url(x)">x</p>`, wantErr: true},
		{name: "class attribute", html: `<p class="lead">x</p>`, wantErr: true},
		{name: "href outside links", html: `<b href="https://oze.pl">x</b>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RichText("body").Validate(String(tt.html))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var fce *FieldConstraintError
			require.ErrorAs(t, err, &fce)
			assert.Equal(t, "allowed_tags", fce.Rule)
		})
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Pomiar izolacji", PlainText("<p>Pomiar <b>izolacji</b></p>"))
	assert.Equal(t, "", PlainText(""))
}
