package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/markdown"

	"github.com/kadcrawl/kadcrawl/internal/model"
)

// Summary aggregates what a crawl produced, for the README.
type Summary struct {
	Case      *model.CaseRecord
	Instances []model.InstanceRecord

	// PerTab counts document references per source tab.
	PerTab map[model.Tab]int

	// Fetched, Skipped, and ManualReview summarize document outcomes.
	Fetched      int
	Skipped      int
	ManualReview int
}

// WriteReadme renders the case README. It is regenerated on every run;
// the JSON files are the machine-readable truth, the README is for a
// person opening the folder.
func (w *Writer) WriteReadme(s *Summary) error {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(filepath.Join(w.dir, "README.md"))
	if err != nil {
		return fmt.Errorf("create README: %w", err)
	}
	defer f.Close()

	md := markdown.NewMarkdown(f).
		H1(fmt.Sprintf("Дело %s", s.Case.CaseNumber)).
		PlainText(fmt.Sprintf("Статус: %s", orDash(s.Case.Status))).
		PlainText(fmt.Sprintf("Карточка: %s", s.Case.URL)).
		PlainText(fmt.Sprintf("Собрано: %s", s.Case.ParsedAt.Format("2006-01-02 15:04 MST"))).
		H2("Документы")

	rows := make([][]string, 0, len(s.PerTab))
	for _, tab := range model.Tabs() {
		rows = append(rows, []string{string(tab), fmt.Sprintf("%d", s.PerTab[tab])})
	}
	md = md.Table(markdown.TableSet{
		Header: []string{"Вкладка", "Ссылок"},
		Rows:   rows,
	}).
		PlainText(fmt.Sprintf("Загружено: %d, пропущено: %d, требует ручной проверки: %d",
			s.Fetched, s.Skipped, s.ManualReview))

	if len(s.Instances) > 0 {
		md = md.H2("Инстанции")
		instRows := make([][]string, 0, len(s.Instances))
		for _, inst := range s.Instances {
			instRows = append(instRows, []string{
				fmt.Sprintf("%d", inst.Order),
				orDash(inst.InstanceType),
				orDash(inst.CourtName),
				orDash(inst.RegDate),
				fmt.Sprintf("%d", len(inst.Documents)),
			})
		}
		md = md.Table(markdown.TableSet{
			Header: []string{"№", "Инстанция", "Суд", "Дата", "Документов"},
			Rows:   instRows,
		})
	}

	if err := md.Build(); err != nil {
		return fmt.Errorf("render README: %w", err)
	}
	return nil
}

// orDash substitutes a dash for empty optional fields in tables.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
