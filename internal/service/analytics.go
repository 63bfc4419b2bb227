package service

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/buddy0323/IA-TEK-streamlit/internal/model"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// maxWindowDays bounds any date window a caller may request.
const maxWindowDays = 730

// DailyPoint is one calendar day of query activity. SuccessRate is nil on days without queries.
type DailyPoint struct {
	Date        string   `json:"date"`
	Total       int      `json:"total"`
	Successful  int      `json:"successful"`
	SuccessRate *float64 `json:"success_rate"`
}

type ResponseTimeStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean_ms"`
	Median float64 `json:"median_ms"`
	P90    float64 `json:"p90_ms"`
}

type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// SuccessRate is successful/total as a percentage rounded to two decimals, nil when total is zero.
func SuccessRate(successful, total int64) *float64 {
	if total <= 0 {
		return nil
	}
	rate := decimal.NewFromInt(successful).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(2).
		InexactFloat64()
	return &rate
}

// startOfDay truncates t to local midnight in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DailySeries buckets rows by local calendar day over [start, end).
// Every day in the window is present, including days with no rows.
func DailySeries(rows []model.Query, start, end time.Time, loc *time.Location) []DailyPoint {
	type tally struct{ total, ok int }
	byDay := make(map[string]*tally)
	for _, r := range rows {
		key := r.CreatedAt.In(loc).Format(dateLayout)
		t := byDay[key]
		if t == nil {
			t = &tally{}
			byDay[key] = t
		}
		t.total++
		if r.Success {
			t.ok++
		}
	}

	var out []DailyPoint
	for day := startOfDay(start, loc); day.Before(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dateLayout)
		p := DailyPoint{Date: key}
		if t := byDay[key]; t != nil {
			p.Total = t.total
			p.Successful = t.ok
			p.SuccessRate = SuccessRate(int64(t.ok), int64(t.total))
		}
		out = append(out, p)
	}
	return out
}

// ResponseTimes summarises positive response times. Quantiles interpolate linearly between ranks.
func ResponseTimes(rows []model.Query) ResponseTimeStats {
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.ResponseTimeMS > 0 {
			values = append(values, float64(r.ResponseTimeMS))
		}
	}
	if len(values) == 0 {
		return ResponseTimeStats{}
	}
	sort.Float64s(values)

	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(values)))).Round(2).InexactFloat64()

	return ResponseTimeStats{
		Count:  len(values),
		Mean:   mean,
		Median: quantile(values, 0.5),
		P90:    quantile(values, 0.9),
	}
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := math.Floor(pos)
	hi := math.Ceil(pos)
	v := sorted[int(lo)] + (sorted[int(hi)]-sorted[int(lo)])*(pos-lo)
	return math.Round(v*100) / 100
}

var (
	nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

	stopwords = map[string]struct{}{}
)

func init() {
	for _, w := range strings.Fields(`de la que el en y a los del se las por un para con no una su al lo
		como más pero sus le ha me si sin sobre este ya entre cuando todo esta ser son dos también
		fue habia era muy hasta desde nos mi mucho quien yo eso es consulta quiero saber necesito
		informacion puede ayudar`) {
		stopwords[w] = struct{}{}
	}
}

// TermFrequency returns the n most frequent terms across texts, ties in order of first appearance.
// Terms are lower-cased, stripped of punctuation, and must be longer than three characters.
func TermFrequency(texts []string, n int) []TermCount {
	counts := make(map[string]int)
	var order []string
	for _, text := range texts {
		cleaned := nonWordRe.ReplaceAllString(strings.ToLower(text), "")
		for _, w := range strings.Fields(cleaned) {
			if utf8.RuneCountInString(w) <= 3 {
				continue
			}
			if _, stop := stopwords[w]; stop {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	out := make([]TermCount, 0, len(order))
	for _, w := range order {
		out = append(out, TermCount{Term: w, Count: counts[w]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// dateWindow resolves optional YYYY-MM-DD bounds to [start, end+1d) in loc.
// Missing bounds default to the last defaultDays days up to today.
func dateWindow(from, to string, defaultDays int, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	today := startOfDay(now, loc)
	start := today.AddDate(0, 0, -defaultDays)
	endDay := today

	if s := strings.TrimSpace(from); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, invalid("from", "date must be YYYY-MM-DD")
		}
		start = t
	}
	if s := strings.TrimSpace(to); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, invalid("to", "date must be YYYY-MM-DD")
		}
		endDay = t
	}
	if endDay.Before(start) {
		return time.Time{}, time.Time{}, invalid("to", "end date is before start date")
	}
	if endDay.After(start.AddDate(0, 0, maxWindowDays-1)) {
		return time.Time{}, time.Time{}, invalid("from", "date range cannot exceed %d days", maxWindowDays)
	}
	return start, endDay.AddDate(0, 0, 1), nil
}
