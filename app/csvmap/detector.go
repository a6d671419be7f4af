package csvmap

import (
	"encoding/csv"
	"errors"
	"regexp"
	"strings"
)

const (
	FieldIBAN      = "iban"
	FieldBIC       = "bic"
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
)

const sampleRows = 100

var (
	ErrNoDataRows   = errors.New("file contains no data rows")
	ErrNoIBANColumn = errors.New("no column matches the IBAN shape")
)

var (
	ibanShape       = regexp.MustCompile(`^[A-Za-z]{2}[0-9]{2}[A-Za-z0-9]{1,30}$`)
	bicShape        = regexp.MustCompile(`^[A-Z0-9]{8}([A-Z0-9]{3})?$`)
	whitespaceRunes = strings.NewReplacer(" ", "", "\t", "", " ", "")
)

// Mapping describes the inferred structure of an uploaded file. Column
// indices are zero-based; only the IBAN column is mandatory.
type Mapping struct {
	Delimiter string
	HasHeader bool

	IBANColumn      int
	BICColumn       *int
	FirstNameColumn *int
	LastNameColumn  *int
}

type Detection struct {
	Mapping      Mapping
	TotalRecords int
	Preview      [][]string
}

// Record is one parsed data row projected through a mapping.
type Record struct {
	FirstName string
	LastName  string
	IBAN      string
	BIC       string
}

// NormalizeIBAN strips embedded whitespace and upper-cases the value, so that
// "FR76 3000 3012 ..." and "FR7630003012..." compare and validate identically.
func NormalizeIBAN(v string) string {
	return strings.ToUpper(whitespaceRunes.Replace(strings.TrimSpace(v)))
}

func LooksLikeIBAN(v string) bool {
	return ibanShape.MatchString(NormalizeIBAN(v))
}

func LooksLikeBIC(v string) bool {
	return bicShape.MatchString(strings.TrimSpace(v))
}

// recognizers is the ordered chain of content predicates. First match wins,
// so IBAN takes priority over BIC for ambiguous columns.
type recognizer struct {
	field string
	match func(string) bool
}

var recognizers = []recognizer{
	{field: FieldIBAN, match: LooksLikeIBAN},
	{field: FieldBIC, match: LooksLikeBIC},
}

// classifyColumn runs the recognizer chain over sampled values and returns
// the matched field, or "" when no recognizer claims a majority of the
// non-empty samples.
func classifyColumn(values []string) string {
	nonEmpty := 0
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return ""
	}

	for _, rec := range recognizers {
		matched := 0
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				continue
			}
			if rec.match(v) {
				matched++
			}
		}
		if matched*2 > nonEmpty {
			return rec.field
		}
	}
	return ""
}

// fieldFromHeader maps a header label to a semantic field via case-insensitive
// containment, tolerating variants like "IBAN number" or "first_name".
func fieldFromHeader(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(l, "iban"):
		return FieldIBAN
	case strings.Contains(l, "bic"), strings.Contains(l, "swift"):
		return FieldBIC
	case strings.Contains(l, "first"):
		return FieldFirstName
	case strings.Contains(l, "last"), strings.Contains(l, "sur"):
		return FieldLastName
	default:
		return ""
	}
}

// DetectDelimiter picks between comma and semicolon by whichever splits the
// first line into more plausible columns (>= 2). Ties favor comma; so does a
// line neither candidate can split.
func DetectDelimiter(firstLine string) string {
	commaCount := len(strings.Split(firstLine, ","))
	semicolonCount := len(strings.Split(firstLine, ";"))
	if semicolonCount >= 2 && semicolonCount > commaCount {
		return ";"
	}
	return ","
}

// Detect infers delimiter, header presence and field-to-column mapping from
// raw tabular text and reports the data row count plus a bounded preview.
// It fails with ErrNoDataRows or ErrNoIBANColumn rather than returning a
// partial mapping.
func Detect(content string, previewRows int) (*Detection, error) {
	firstLine := content
	if idx := strings.IndexAny(content, "\r\n"); idx >= 0 {
		firstLine = content[:idx]
	}
	delimiter := DetectDelimiter(firstLine)

	rows, err := parseRows(content, delimiter)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}

	hasHeader := !rowLooksLikeData(rows[0])
	dataRows := rows
	var header []string
	if hasHeader {
		header = rows[0]
		dataRows = rows[1:]
	}
	if len(dataRows) == 0 {
		return nil, ErrNoDataRows
	}

	mapping, err := mapColumns(header, dataRows)
	if err != nil {
		return nil, err
	}
	mapping.Delimiter = delimiter
	mapping.HasHeader = hasHeader

	if previewRows < 0 {
		previewRows = 0
	}
	if previewRows > len(dataRows) {
		previewRows = len(dataRows)
	}
	preview := make([][]string, previewRows)
	for i := 0; i < previewRows; i++ {
		preview[i] = append([]string(nil), dataRows[i]...)
	}

	return &Detection{
		Mapping:      *mapping,
		TotalRecords: len(dataRows),
		Preview:      preview,
	}, nil
}

// ParseRecords projects every data row of content through an already-detected
// mapping, normalizing IBAN whitespace and upper-casing BIC values.
func ParseRecords(content string, mapping Mapping) ([]Record, error) {
	rows, err := parseRows(content, mapping.Delimiter)
	if err != nil {
		return nil, err
	}
	if mapping.HasHeader && len(rows) > 0 {
		rows = rows[1:]
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := Record{
			IBAN: NormalizeIBAN(cellAt(row, mapping.IBANColumn)),
		}
		if mapping.BICColumn != nil {
			rec.BIC = strings.ToUpper(strings.TrimSpace(cellAt(row, *mapping.BICColumn)))
		}
		if mapping.FirstNameColumn != nil {
			rec.FirstName = strings.TrimSpace(cellAt(row, *mapping.FirstNameColumn))
		}
		if mapping.LastNameColumn != nil {
			rec.LastName = strings.TrimSpace(cellAt(row, *mapping.LastNameColumn))
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRows(content string, delimiter string) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = rune(delimiter[0])
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	all, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(all))
	for _, row := range all {
		if rowIsBlank(row) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func rowIsBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// rowLooksLikeData reports whether any cell already carries an IBAN- or
// BIC-shaped value; a first row without either is treated as a header.
func rowLooksLikeData(row []string) bool {
	for _, cell := range row {
		if LooksLikeIBAN(cell) || LooksLikeBIC(cell) {
			return true
		}
	}
	return false
}

func mapColumns(header []string, dataRows [][]string) (*Mapping, error) {
	width := 0
	for _, row := range dataRows {
		if len(row) > width {
			width = len(row)
		}
	}

	sampled := dataRows
	if len(sampled) > sampleRows {
		sampled = sampled[:sampleRows]
	}

	contentField := make([]string, width)
	for col := 0; col < width; col++ {
		values := make([]string, 0, len(sampled))
		for _, row := range sampled {
			values = append(values, cellAt(row, col))
		}
		contentField[col] = classifyColumn(values)
	}

	headerField := make([]string, width)
	for col := 0; col < width && col < len(header); col++ {
		headerField[col] = fieldFromHeader(header[col])
	}

	// Content recognition decides IBAN and BIC; a header label saying
	// otherwise is assumed mislabeled. Header labels only fill in where
	// content was inconclusive.
	mapping := &Mapping{IBANColumn: -1}
	taken := make([]bool, width)

	for col := 0; col < width; col++ {
		if contentField[col] == FieldIBAN && mapping.IBANColumn < 0 {
			mapping.IBANColumn = col
			taken[col] = true
		}
	}
	if mapping.IBANColumn < 0 {
		return nil, ErrNoIBANColumn
	}

	for col := 0; col < width; col++ {
		if taken[col] {
			continue
		}
		if contentField[col] == FieldBIC {
			mapping.BICColumn = intPtr(col)
			taken[col] = true
			break
		}
	}
	if mapping.BICColumn == nil {
		for col := 0; col < width; col++ {
			if !taken[col] && headerField[col] == FieldBIC {
				mapping.BICColumn = intPtr(col)
				taken[col] = true
				break
			}
		}
	}

	for col := 0; col < width; col++ {
		if taken[col] {
			continue
		}
		switch headerField[col] {
		case FieldFirstName:
			if mapping.FirstNameColumn == nil {
				mapping.FirstNameColumn = intPtr(col)
				taken[col] = true
			}
		case FieldLastName:
			if mapping.LastNameColumn == nil {
				mapping.LastNameColumn = intPtr(col)
				taken[col] = true
			}
		}
	}

	// Remaining unclassified columns become names in left-to-right order.
	for col := 0; col < width; col++ {
		if taken[col] {
			continue
		}
		if mapping.FirstNameColumn == nil {
			mapping.FirstNameColumn = intPtr(col)
			taken[col] = true
			continue
		}
		if mapping.LastNameColumn == nil {
			mapping.LastNameColumn = intPtr(col)
			taken[col] = true
		}
	}

	return mapping, nil
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

func intPtr(v int) *int {
	n := v
	return &n
}
