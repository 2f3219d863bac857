package service

import (
	"strings"
	"unicode"

	"github.com/noah-isme/coursetrack-api/internal/models"
)

// Canonical field names used after header resolution.
const (
	fieldUsername       = "username"
	fieldEmail          = "email"
	fieldPassword       = "password"
	fieldFirstName      = "firstName"
	fieldLastName       = "lastName"
	fieldRollNumber     = "rollNumber"
	fieldEnrollmentYear = "enrollmentYear"
	fieldMajor          = "major"
	fieldDepartment     = "department"
	fieldPosition       = "position"
	fieldCode           = "code"
	fieldName           = "name"
	fieldDescription    = "description"
	fieldCredits        = "credits"
	fieldSemester       = "semester"
)

// columnSpec describes one logical column. requiredColumn means the header
// must be present; requiredValue means every row must fill it in. maxLen
// mirrors the VARCHAR width of the backing column, in characters.
type columnSpec struct {
	field          string
	aliases        []string
	requiredColumn bool
	requiredValue  bool
	maxLen         int
	sample         string
}

type headerSchema struct {
	kind    models.ImportKind
	columns []columnSpec
}

var userColumns = []columnSpec{
	{field: fieldUsername, aliases: []string{"user", "login"}, requiredColumn: true, requiredValue: true, sample: "jdoe"},
	{field: fieldEmail, aliases: []string{"emailaddress", "mail"}, requiredColumn: true, requiredValue: true, maxLen: 255, sample: "jdoe@university.edu"},
	{field: fieldPassword, requiredColumn: true, requiredValue: true, sample: "ChangeMe123"},
	{field: fieldFirstName, aliases: []string{"givenname", "forename"}, requiredColumn: true, requiredValue: true, maxLen: 100, sample: "John"},
	{field: fieldLastName, aliases: []string{"surname", "familyname"}, requiredColumn: true, maxLen: 100, sample: "Doe"},
}

var importSchemas = map[models.ImportKind]headerSchema{
	models.ImportKindStudent: {
		kind: models.ImportKindStudent,
		columns: append(append([]columnSpec{}, userColumns...),
			columnSpec{field: fieldRollNumber, aliases: []string{"rollno", "roll", "studentnumber"}, requiredColumn: true, requiredValue: true, maxLen: 64, sample: "CS-2024-001"},
			columnSpec{field: fieldEnrollmentYear, aliases: []string{"enrollment", "year", "intakeyear"}, requiredColumn: true, requiredValue: true, sample: "2024"},
			columnSpec{field: fieldMajor, aliases: []string{"program", "programme"}, requiredColumn: true, requiredValue: true, maxLen: 255, sample: "Computer Science"},
		),
	},
	models.ImportKindFaculty: {
		kind: models.ImportKindFaculty,
		columns: append(append([]columnSpec{}, userColumns...),
			columnSpec{field: fieldDepartment, aliases: []string{"dept"}, requiredColumn: true, requiredValue: true, maxLen: 255, sample: "Computer Science"},
			columnSpec{field: fieldPosition, aliases: []string{"title", "rank"}, requiredColumn: true, requiredValue: true, maxLen: 255, sample: "Associate Professor"},
		),
	},
	models.ImportKindCourse: {
		kind: models.ImportKindCourse,
		columns: []columnSpec{
			{field: fieldCode, aliases: []string{"coursecode", "courseid", "courseno"}, requiredColumn: true, requiredValue: true, maxLen: 32, sample: "CS101"},
			{field: fieldName, aliases: []string{"coursename", "title", "coursetitle"}, requiredColumn: true, requiredValue: true, maxLen: 255, sample: "Introduction to Programming"},
			{field: fieldDescription, aliases: []string{"coursedescription", "desc", "summary"}, sample: "Fundamentals of programming in Go"},
			{field: fieldCredits, aliases: []string{"credit", "credithours", "units"}, requiredColumn: true, requiredValue: true, sample: "3"},
			{field: fieldSemester, aliases: []string{"term", "session"}, requiredColumn: true, requiredValue: true, sample: "Fall"},
		},
	},
}

func schemaFor(kind models.ImportKind) (headerSchema, bool) {
	schema, ok := importSchemas[kind]
	return schema, ok
}

// normalizeHeader folds case and drops everything but letters and digits, so
// "Course Code", "course_code" and "COURSECODE" compare equal.
func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range h {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// lookup builds the normalized-header -> field table once per batch.
func (s headerSchema) lookup() map[string]string {
	table := make(map[string]string)
	for _, col := range s.columns {
		table[normalizeHeader(col.field)] = col.field
		for _, alias := range col.aliases {
			table[normalizeHeader(alias)] = col.field
		}
	}
	return table
}

// resolve maps header positions onto fields. The first column claiming a
// field wins; unknown columns are ignored. missing lists absent required
// columns in schema order.
func (s headerSchema) resolve(headers []string) (map[int]string, []string) {
	table := s.lookup()
	mapping := make(map[int]string, len(headers))
	seen := make(map[string]bool, len(headers))
	for i, header := range headers {
		field, ok := table[normalizeHeader(header)]
		if !ok || seen[field] {
			continue
		}
		mapping[i] = field
		seen[field] = true
	}

	var missing []string
	for _, col := range s.columns {
		if col.requiredColumn && !seen[col.field] {
			missing = append(missing, col.field)
		}
	}
	return mapping, missing
}

func (s headerSchema) requiredValues() []string {
	fields := make([]string, 0, len(s.columns))
	for _, col := range s.columns {
		if col.requiredValue {
			fields = append(fields, col.field)
		}
	}
	return fields
}

// lengthLimits returns the bounded columns in schema order.
func (s headerSchema) lengthLimits() []columnSpec {
	var limited []columnSpec
	for _, col := range s.columns {
		if col.maxLen > 0 {
			limited = append(limited, col)
		}
	}
	return limited
}

func (s headerSchema) fieldNames() []string {
	fields := make([]string, len(s.columns))
	for i, col := range s.columns {
		fields[i] = col.field
	}
	return fields
}

func (s headerSchema) sampleRow() map[string]string {
	row := make(map[string]string, len(s.columns))
	for _, col := range s.columns {
		row[col.field] = col.sample
	}
	return row
}

// mapRecords applies a resolved mapping to raw records.
func mapRecords(mapping map[int]string, records [][]string) []map[string]string {
	rows := make([]map[string]string, len(records))
	for i, record := range records {
		row := make(map[string]string, len(mapping))
		for col, field := range mapping {
			if col < len(record) {
				row[field] = strings.TrimSpace(record[col])
			}
		}
		rows[i] = row
	}
	return rows
}
