package navigate

import "testing"

const chronoFragment = `
<div id="chrono_list_content">
  <div class="b-chrono-item-header js-chrono-item-header" data-id="11111111-2222-3333-4444-555555555555">
    <span class="js-instance-type">Первая инстанция</span>
    <span class="js-court">АС ГОРОДА МОСКВЫ</span>
    <span>12.03.2024</span>
    <span>А40-12345/2024</span>
  </div>
  <div class="b-chrono-item">
    <span class="g-valid_sign"></span>
    <span class="js-judges-rollover">Иванов И.И.</span>
    <a href="/Kad/PdfDocument/11111111-2222-3333-4444-555555555555/aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee/A40_20240312_Opredelenie.pdf">Определение</a>
  </div>
  <div class="pager">
    <span class="js-chrono-pagination-pager-item" data-page_num="1"></span>
    <span class="js-chrono-pagination-pager-item" data-page_num="2"></span>
    <span class="js-chrono-pagination-pager-item" data-page_num="3"></span>
  </div>
  <div class="b-chrono-item-header js-chrono-item-header" data-id="66666666-7777-8888-9999-000000000000">
    <span class="js-instance-type">Апелляционная инстанция</span>
  </div>
  <div class="b-chrono-item">
    <a href="/Kad/PdfDocument/11111111-2222-3333-4444-555555555555/ffffffff-0000-1111-2222-333333333333/A40_20240501_Postanovlenie.pdf">Постановление</a>
  </div>
</div>`

func TestParseSuggestions(t *testing.T) {
	t.Parallel()

	fragment := `
<ul id="b-suggest">
  <li><a id="11111111-2222-3333-4444-555555555555" href="/Card/11111111-2222-3333-4444-555555555555">А40-12345/2024 ООО Ромашка</a></li>
  <li><a href="/Card/66666666-7777-8888-9999-000000000000">А40-12345/2023 АО Василек</a></li>
  <li><a id="99999999-8888-7777-6666-555555555555">А41-1/2022 без ссылки</a></li>
  <li><a href="">no target</a></li>
  <li><a href="/Card/x"></a></li>
</ul>`

	got := parseSuggestions(fragment)
	if len(got) != 3 {
		t.Fatalf("parseSuggestions() returned %d entries, want 3: %+v", len(got), got)
	}
	if got[0].GUID != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("first guid = %q", got[0].GUID)
	}
	if got[0].Href != "/Card/11111111-2222-3333-4444-555555555555" {
		t.Errorf("first href = %q", got[0].Href)
	}
	if got[0].Text != "А40-12345/2024 ООО Ромашка" {
		t.Errorf("first text = %q", got[0].Text)
	}
	if got[1].GUID != "" {
		t.Errorf("second guid = %q, want empty", got[1].GUID)
	}
	if got[2].Href != "" || got[2].GUID == "" {
		t.Errorf("href-less anchor = %+v, want GUID only", got[2])
	}
}

func TestExtractCaseNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"А40-12345/2024 ООО Ромашка", "А40-12345/2024"},
		{"a40-12345/2024 latin lowercase", "А40-12345/2024"},
		{"no case number here", ""},
	}
	for _, tt := range tests {
		if got := extractCaseNumber(tt.in); got != tt.want {
			t.Errorf("extractCaseNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseAttachmentLinks(t *testing.T) {
	t.Parallel()

	fragment := `
<table id="gr_case_acts">
  <tr>
    <td><span class="g-valid_sign"></span></td>
    <td><span class="js-judges-rollover">Петрова А.Б.</span></td>
    <td><a href="/Kad/PdfDocument/1111/aaaa/doc1.pdf">Решение суда</a></td>
  </tr>
  <tr>
    <td><a href="/Kad/PdfDocument/1111/bbbb/doc2.pdf">Определение</a></td>
  </tr>
  <tr>
    <td><a href="/some/other/link">не документ</a></td>
  </tr>
</table>`

	got := parseAttachmentLinks(fragment)
	if len(got) != 2 {
		t.Fatalf("parseAttachmentLinks() returned %d links, want 2: %+v", len(got), got)
	}
	if !got[0].Signed || !got[0].SignatureValid {
		t.Error("first link signature badge not detected")
	}
	if got[0].Judge != "Петрова А.Б." {
		t.Errorf("first link judge = %q", got[0].Judge)
	}
	if got[0].Title != "Решение суда" {
		t.Errorf("first link title = %q", got[0].Title)
	}
	if got[1].Signed {
		t.Error("second link wrongly marked signed")
	}
}

func TestParseMaxPageNum(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fragment string
		want     int
	}{
		{
			name:     "no pagination",
			fragment: `<div><a href="/x">doc</a></div>`,
			want:     1,
		},
		{
			name: "pager items",
			fragment: `<div>
				<span data-page_num="1"></span>
				<span data-page_num="3"></span>
				<span data-page_num="2"></span>
			</div>`,
			want: 3,
		},
		{
			name:     "non-numeric ignored",
			fragment: `<div><span data-page_num="next"></span><span data-page_num="2"></span></div>`,
			want:     2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := parseMaxPageNum(tt.fragment); got != tt.want {
				t.Errorf("parseMaxPageNum() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseChronoBlocks(t *testing.T) {
	t.Parallel()

	blocks := parseChronoBlocks(chronoFragment)
	if len(blocks) != 2 {
		t.Fatalf("parseChronoBlocks() returned %d blocks, want 2: %+v", len(blocks), blocks)
	}

	first := blocks[0]
	if first.ID != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("first block ID = %q", first.ID)
	}
	if first.Title != "Первая инстанция" {
		t.Errorf("first block title = %q", first.Title)
	}
	if first.Court != "АС Города Москвы" {
		t.Errorf("first block court = %q", first.Court)
	}
	if first.RegDate != "12.03.2024" {
		t.Errorf("first block regDate = %q", first.RegDate)
	}
	if first.CaseNumber != "А40-12345/2024" {
		t.Errorf("first block caseNumber = %q", first.CaseNumber)
	}
	if first.MaxPage != 3 {
		t.Errorf("first block maxPage = %d, want 3", first.MaxPage)
	}
	if len(first.Links) != 1 {
		t.Fatalf("first block has %d links, want 1", len(first.Links))
	}
	if !first.Links[0].Signed || first.Links[0].Judge != "Иванов И.И." {
		t.Errorf("first block link metadata = %+v", first.Links[0])
	}

	second := blocks[1]
	if second.Title != "Апелляционная инстанция" {
		t.Errorf("second block title = %q", second.Title)
	}
	if second.MaxPage != 1 {
		t.Errorf("second block maxPage = %d, want 1 (pager belongs to first block)", second.MaxPage)
	}
	if len(second.Links) != 1 {
		t.Errorf("second block has %d links, want 1", len(second.Links))
	}
}

func TestParseChronoBlocksSkipsHeaderlessLinks(t *testing.T) {
	t.Parallel()

	fragment := `
<div>
  <a href="/Kad/PdfDocument/1111/aaaa/orphan.pdf">orphan</a>
  <div class="b-chrono-item-header js-chrono-item-header"><span>no data-id</span></div>
  <a href="/Kad/PdfDocument/1111/bbbb/unattributable.pdf">x</a>
</div>`

	if blocks := parseChronoBlocks(fragment); len(blocks) != 0 {
		t.Errorf("parseChronoBlocks() = %+v, want no blocks for unattributable content", blocks)
	}
}

func TestParseCaseStatus(t *testing.T) {
	t.Parallel()

	fragment := `<div class="b-case-header-desc"><span class="js-case-status">Рассматривается в первой инстанции</span></div>`
	if got := parseCaseStatus(fragment); got != "Рассматривается в первой инстанции" {
		t.Errorf("parseCaseStatus() = %q", got)
	}
	if got := parseCaseStatus(`<div>no status</div>`); got != "" {
		t.Errorf("parseCaseStatus() on missing status = %q, want empty", got)
	}
}

func TestCaseGUIDFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://kad.arbitr.ru/Card/11111111-2222-3333-4444-555555555555", "11111111-2222-3333-4444-555555555555"},
		{"/Card/abc?tab=acts", "abc"},
		{"https://kad.arbitr.ru/Card", ""},
		{"https://kad.arbitr.ru/other", ""},
	}
	for _, tt := range tests {
		if got := caseGUIDFromURL(tt.url); got != tt.want {
			t.Errorf("caseGUIDFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
