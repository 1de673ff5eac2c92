package pdftext

import (
	"errors"
	"testing"
)

func TestValidateRejectsNonPDF(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "html error page", data: []byte("<html><body>Доступ к сервису ограничен</body></html>")},
		{name: "truncated magic", data: []byte("%PD")},
		{name: "magic only, no structure", data: []byte("%PDF-1.7\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := Validate(tt.data); !errors.Is(err, ErrNotPDF) {
				t.Errorf("Validate() error = %v, want ErrNotPDF", err)
			}
		})
	}
}

func TestExtractRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := Extract([]byte("not a pdf at all")); err == nil {
		t.Error("Extract() on garbage = nil error")
	}
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"определение    суда", "определение суда"},
		{"  строка\n\nс переносами\t ", "строка с переносами"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeText(tt.in); got != tt.want {
			t.Errorf("normalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
