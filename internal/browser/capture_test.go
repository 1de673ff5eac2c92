package browser

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestIsAttachmentResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		mime string
		want bool
	}{
		{
			name: "attachment url",
			url:  "https://kad.arbitr.ru/Kad/PdfDocument/1111/aaaa/doc.pdf",
			mime: "application/octet-stream",
			want: true,
		},
		{
			name: "pdf mime without marker",
			url:  "https://kad.arbitr.ru/n/rewritten",
			mime: "application/pdf",
			want: true,
		},
		{
			name: "pdf mime mixed case",
			url:  "https://kad.arbitr.ru/n/rewritten",
			mime: "Application/PDF",
			want: true,
		},
		{
			name: "interstitial html",
			url:  "https://kad.arbitr.ru/",
			mime: "text/html",
			want: false,
		},
		{
			name: "script asset",
			url:  "https://kad.arbitr.ru/assets/app.js",
			mime: "application/javascript",
			want: false,
		},
		{
			name: "marker as substring of another segment",
			url:  "https://kad.arbitr.ru/NotPdfDocumentation/x",
			mime: "text/html",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isAttachmentResponse(tt.url, tt.mime); got != tt.want {
				t.Errorf("isAttachmentResponse(%q, %q) = %v, want %v", tt.url, tt.mime, got, tt.want)
			}
		})
	}
}

func responseEvent(id, url, mime string) *proto.NetworkResponseReceived {
	return &proto.NetworkResponseReceived{
		RequestID: proto.NetworkRequestID(id),
		Response:  &proto.NetworkResponse{URL: url, MIMEType: mime},
	}
}

func finishedEvent(id string) *proto.NetworkLoadingFinished {
	return &proto.NetworkLoadingFinished{RequestID: proto.NetworkRequestID(id)}
}

func TestAttachmentTrackerElectsFirstMatch(t *testing.T) {
	t.Parallel()

	tr := newAttachmentTracker()

	// A page asset completes before the attachment and must not win.
	tr.observe(responseEvent("req-1", "https://kad.arbitr.ru/assets/app.js", "application/javascript"))
	if tr.finished(finishedEvent("req-1")) {
		t.Error("finished(asset) = true, want false")
	}

	// Finishing an unobserved request is ignored.
	if tr.finished(finishedEvent("req-9")) {
		t.Error("finished(unobserved) = true, want false")
	}

	tr.observe(responseEvent("req-2", "https://kad.arbitr.ru/Kad/PdfDocument/1111/aaaa/doc.pdf", "application/pdf"))
	if !tr.finished(finishedEvent("req-2")) {
		t.Fatal("finished(attachment) = false, want true")
	}

	// A later match must neither block nor displace the winner.
	tr.observe(responseEvent("req-3", "https://kad.arbitr.ru/Kad/PdfDocument/1111/bbbb/doc.pdf", "application/pdf"))
	tr.finished(finishedEvent("req-3"))

	select {
	case id := <-tr.ready:
		if id != "req-2" {
			t.Errorf("elected request = %q, want req-2", id)
		}
	default:
		t.Fatal("no request elected")
	}
}

func TestAttachmentTrackerMatchRequiresFinish(t *testing.T) {
	t.Parallel()

	tr := newAttachmentTracker()
	tr.observe(responseEvent("req-1", "https://kad.arbitr.ru/Kad/PdfDocument/1111/aaaa/doc.pdf", "application/pdf"))

	select {
	case id := <-tr.ready:
		t.Fatalf("request %q elected before loading finished", id)
	default:
	}
}

func TestDecodeResponseBody(t *testing.T) {
	t.Parallel()

	if got, err := decodeResponseBody("plain", false); err != nil || string(got) != "plain" {
		t.Errorf("decodeResponseBody(plain) = %q, %v", got, err)
	}
	if got, err := decodeResponseBody("JVBERg==", true); err != nil || string(got) != "%PDF" {
		t.Errorf("decodeResponseBody(base64) = %q, %v", got, err)
	}
	if _, err := decodeResponseBody("not base64!", true); err == nil {
		t.Error("decodeResponseBody(invalid base64) error = nil")
	}
}
