package trace

import (
	"html/template"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// Summary is one row of the HTML report.
type Summary struct {
	Scenario    string
	Cycle       int
	Strategy    string
	Evaluated   int
	Score       float64
	Length      int
	First       string
	Target      int
	Description string
	Fallback    bool
}

func Summarize(e Event) Summary {
	first := e.First()
	return Summary{
		Scenario:    e.Scenario,
		Cycle:       e.Cycle,
		Strategy:    string(e.Strategy),
		Evaluated:   e.Evaluated,
		Score:       e.Score,
		Length:      len(e.Chain),
		First:       first.Category,
		Target:      first.Target,
		Description: first.Description,
		Fallback:    e.Fallback,
	}
}

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"score": func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) },
	"chain": func(e Event) string {
		parts := make([]string, len(e.Chain))
		for i, s := range e.Chain {
			parts[i] = s.Category + "→" + strconv.Itoa(s.Target)
		}
		return strings.Join(parts, " · ")
	},
	"summary": Summarize,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; }
td, th { padding: 2px 8px; text-align: left; }
tr.fallback { color: #a33; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<table id="plans">
<thead><tr><th>scenario</th><th>cycle</th><th>strategy</th><th>evaluated</th><th>score</th><th>chain</th><th>first</th></tr></thead>
<tbody>
{{range .Events}}{{$s := summary .}}<tr class="plan{{if .Fallback}} fallback{{end}}" data-scenario="{{$s.Scenario}}" data-cycle="{{$s.Cycle}}" data-strategy="{{$s.Strategy}}" data-evaluated="{{$s.Evaluated}}" data-score="{{score $s.Score}}" data-length="{{$s.Length}}" data-first="{{$s.First}}" data-target="{{$s.Target}}" data-description="{{$s.Description}}" data-fallback="{{$s.Fallback}}">
<td>{{$s.Scenario}}</td><td>{{$s.Cycle}}</td><td>{{$s.Strategy}}</td><td>{{$s.Evaluated}}</td><td>{{score $s.Score}}</td><td>{{chain .}}</td><td>{{$s.Description}}</td>
</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

// WriteReport renders events as an HTML table.
func WriteReport(w io.Writer, title string, events []Event) error {
	err := reportTmpl.Execute(w, struct {
		Title  string
		Events []Event
	}{title, events})
	return errors.Wrap(err, "render report")
}

// ReadReport parses a report written by WriteReport.
func ReadReport(r io.Reader) ([]Summary, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse report")
	}
	var out []Summary
	var firstErr error
	doc.Find("table#plans tbody tr.plan").Each(func(i int, sel *goquery.Selection) {
		s, err := parseRow(sel)
		if err != nil {
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "row %d", i)
			}
			return
		}
		out = append(out, s)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func parseRow(sel *goquery.Selection) (Summary, error) {
	attr := func(name string) string {
		v, _ := sel.Attr("data-" + name)
		return v
	}
	var s Summary
	var err error
	atoi := func(name string) int {
		if err != nil {
			return 0
		}
		var v int
		v, err = strconv.Atoi(attr(name))
		err = errors.Wrapf(err, "data-%s", name)
		return v
	}
	s.Scenario = attr("scenario")
	s.Strategy = attr("strategy")
	s.First = attr("first")
	s.Description = attr("description")
	s.Cycle = atoi("cycle")
	s.Evaluated = atoi("evaluated")
	s.Length = atoi("length")
	s.Target = atoi("target")
	if err != nil {
		return Summary{}, err
	}
	if s.Score, err = strconv.ParseFloat(attr("score"), 64); err != nil {
		return Summary{}, errors.Wrap(err, "data-score")
	}
	s.Fallback = attr("fallback") == "true"
	return s, nil
}

// Change is a scenario whose plan differs between two reports.
type Change struct {
	Scenario string
	Before   Summary
	After    Summary
	// Missing is set when the scenario is absent from the newer report.
	Missing bool
}

// Compare lists scenarios whose first action, target or chain length
// changed, or whose score moved by more than scoreTol.
func Compare(before, after []Summary, scoreTol float64) []Change {
	idx := make(map[string]Summary, len(after))
	for _, s := range after {
		idx[s.Scenario] = s
	}
	var out []Change
	for _, b := range before {
		a, ok := idx[b.Scenario]
		if !ok {
			out = append(out, Change{Scenario: b.Scenario, Before: b, Missing: true})
			continue
		}
		if a.First != b.First || a.Target != b.Target || a.Length != b.Length ||
			math.Abs(a.Score-b.Score) > scoreTol {
			out = append(out, Change{Scenario: b.Scenario, Before: b, After: a})
		}
	}
	return out
}
