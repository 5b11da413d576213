package journal

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"forex-journal/internal/models"
	"github.com/google/uuid"
)

const (
	// CSVContentType is the MIME type of exported journals.
	CSVContentType = "text/csv;charset=utf-8"

	// minImportCells is the fewest cells a row needs to become a trade.
	// Notes are optional.
	minImportCells = 5
)

// CSVHeader is the first row of every export, in column order.
var CSVHeader = []string{"Date", "Market", "Setup", "Profit/Loss", "Rules Followed", "Notes"}

// ErrRead is returned when the import source cannot be read as text.
var ErrRead = errors.New("failed to read CSV file")

// File is an export ready to be handed to whatever saves it.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ExportCSV renders trades as CSV text. Every cell is quoted, embedded
// quotes are doubled and rows are joined with "\n" with no trailing newline.
func ExportCSV(trades []models.Trade) string {
	rows := make([]string, 0, len(trades)+1)
	rows = append(rows, quoteRow(CSVHeader))
	for _, t := range trades {
		rows = append(rows, quoteRow([]string{
			t.Date,
			string(t.Market),
			string(t.Setup),
			strconv.FormatFloat(t.ProfitLoss, 'f', -1, 64),
			yesNo(t.RulesFollowed),
			t.Notes,
		}))
	}
	return strings.Join(rows, "\n")
}

// ExportFile wraps ExportCSV with a filename dated at now (UTC).
func ExportFile(trades []models.Trade, now time.Time) File {
	return File{
		Name:        ExportFilename(now),
		ContentType: CSVContentType,
		Data:        []byte(ExportCSV(trades)),
	}
}

// ExportFilename returns trades_<YYYY-MM-DD>.csv for the given moment.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("trades_%s.csv", now.UTC().Format(models.DateLayout))
}

func quoteRow(cells []string) string {
	quoted := make([]string, len(cells))
	for i, c := range cells {
		quoted[i] = `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// ImportResult is the outcome of parsing a CSV blob. Skipped counts data
// rows that were dropped: too few cells, failed tokenization, or an
// unknown market or setup.
type ImportResult struct {
	Trades  []models.Trade
	Skipped int
}

// ReadCSV reads r to the end and imports it. Only a failure to read the
// source, or content that is not UTF-8 text, is an error.
func ReadCSV(r io.Reader) (ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %w", ErrRead, err)
	}
	if !utf8.Valid(data) {
		return ImportResult{}, fmt.Errorf("%w: content is not UTF-8 text", ErrRead)
	}
	return ImportCSV(strings.TrimPrefix(string(data), "\ufeff")), nil
}

// ImportCSV parses text produced by ExportCSV, or anything shaped like it.
//
// The first record is always treated as the header and discarded without
// being checked. Malformed rows are dropped rather than failing the import.
// A profit/loss cell that is not a number is carried as NaN; callers must
// validate before persisting. Each trade gets a fresh id.
func ImportCSV(text string) ImportResult {
	var res ImportResult

	records := splitRecords(text)
	if len(records) == 0 {
		return res
	}

	for _, rec := range records[1:] {
		cells := splitRow(rec)
		if len(cells) == 0 {
			// blank lines are not rows
			if strings.TrimSpace(rec) != "" {
				res.Skipped++
			}
			continue
		}
		t, ok := rowToTrade(cells)
		if !ok {
			res.Skipped++
			continue
		}
		res.Trades = append(res.Trades, t)
	}
	return res
}

func rowToTrade(cells []string) (models.Trade, bool) {
	if len(cells) < minImportCells {
		return models.Trade{}, false
	}
	market, err := models.ParseMarket(cells[1])
	if err != nil {
		return models.Trade{}, false
	}
	setup, err := models.ParseSetup(cells[2])
	if err != nil {
		return models.Trade{}, false
	}
	pl, err := strconv.ParseFloat(strings.TrimSpace(cells[3]), 64)
	if err != nil {
		pl = math.NaN()
	}

	t := models.Trade{
		ID:            uuid.NewString(),
		Date:          cells[0],
		Market:        market,
		Setup:         setup,
		ProfitLoss:    pl,
		RulesFollowed: strings.ToLower(cells[4]) == "yes",
	}
	if len(cells) > 5 {
		t.Notes = cells[5]
	}
	return t, true
}

// splitRecords splits text into records on "\n". A line that leaves a
// quote open is joined with the lines that close it, so notes may contain
// newlines, but only when the joined record tokenizes. Otherwise the line
// stands alone and the next line starts a fresh record. A trailing "\r" is
// dropped from each physical line.
func splitRecords(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	records := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		if end, ok := quotedRecordEnd(lines, i); ok {
			records = append(records, strings.Join(lines[i:end+1], "\n"))
			i = end
			continue
		}
		records = append(records, lines[i])
	}
	return records
}

// quotedRecordEnd reports the last line of a record that starts at lines[i]
// and spans several lines inside one quoted cell.
func quotedRecordEnd(lines []string, i int) (int, bool) {
	if strings.Count(lines[i], `"`)%2 == 0 {
		return 0, false
	}
	for j := i + 1; j < len(lines); j++ {
		if strings.Count(lines[j], `"`)%2 == 0 {
			continue
		}
		if splitRow(strings.Join(lines[i:j+1], "\n")) == nil {
			return 0, false
		}
		return j, true
	}
	return 0, false
}

// splitRow tokenizes one record into cells. A cell is either a quoted run,
// in which "" stands for a literal quote, or a bare run of characters up to
// the next comma with surrounding blanks trimmed. Anything else (a stray
// quote in a bare cell, text after a closing quote, an unterminated quote)
// makes the whole record untokenizable and nil is returned.
func splitRow(rec string) []string {
	if strings.TrimSpace(rec) == "" {
		return nil
	}

	var cells []string
	i := 0
	for {
		for i < len(rec) && isBlank(rec[i]) {
			i++
		}

		if i < len(rec) && rec[i] == '"' {
			var b strings.Builder
			i++
			closed := false
			for i < len(rec) {
				if rec[i] == '"' {
					if i+1 < len(rec) && rec[i+1] == '"' {
						b.WriteByte('"')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				b.WriteByte(rec[i])
				i++
			}
			if !closed {
				return nil
			}
			for i < len(rec) && isBlank(rec[i]) {
				i++
			}
			cells = append(cells, b.String())
		} else {
			start := i
			for i < len(rec) && rec[i] != ',' {
				if rec[i] == '"' {
					return nil
				}
				i++
			}
			cells = append(cells, strings.TrimSpace(rec[start:i]))
		}

		if i == len(rec) {
			return cells
		}
		if rec[i] != ',' {
			return nil
		}
		i++
	}
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}
