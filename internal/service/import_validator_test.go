package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursetrack-api/internal/models"
)

func validStudentRow() map[string]string {
	return map[string]string{
		fieldUsername:       "alice",
		fieldEmail:          "Alice@Uni.EDU",
		fieldPassword:       "secret",
		fieldFirstName:      "Alice",
		fieldLastName:       "",
		fieldRollNumber:     "R1",
		fieldEnrollmentYear: "2024",
		fieldMajor:          "Physics",
	}
}

func TestRowValidatorStudent(t *testing.T) {
	v := newRowValidator(nil)

	row, err := v.Validate(models.ImportKindStudent, 4, validStudentRow())
	require.NoError(t, err)
	assert.Equal(t, 4, row.Number)
	assert.Equal(t, "alice@uni.edu", row.Email)
	assert.Equal(t, 2024, row.EnrollmentYear)
	assert.Nil(t, row.LastName)

	tests := []struct {
		name   string
		mutate func(map[string]string)
		reason string
	}{
		{"missing fields listed in schema order", func(r map[string]string) { r[fieldMajor] = ""; r[fieldPassword] = " " }, "Missing required fields: password, major"},
		{"email without tld", func(r map[string]string) { r[fieldEmail] = "alice@localhost" }, reasonInvalidEmail},
		{"email with spaces", func(r map[string]string) { r[fieldEmail] = "al ice@uni.edu" }, reasonInvalidEmail},
		{"short username", func(r map[string]string) { r[fieldUsername] = "al" }, reasonUsernameLength},
		{"email checked before username", func(r map[string]string) { r[fieldUsername] = "al"; r[fieldEmail] = "bad" }, reasonInvalidEmail},
		{"year below range", func(r map[string]string) { r[fieldEnrollmentYear] = "1999" }, reasonEnrollmentYear},
		{"year above range", func(r map[string]string) { r[fieldEnrollmentYear] = "2100" }, reasonEnrollmentYear},
		{"year not a number", func(r map[string]string) { r[fieldEnrollmentYear] = "twenty" }, reasonEnrollmentYear},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := validStudentRow()
			tc.mutate(raw)
			_, err := v.Validate(models.ImportKindStudent, 1, raw)
			require.Error(t, err)
			assert.Equal(t, tc.reason, err.Error())
		})
	}
}

func TestRowValidatorUsernameBoundaries(t *testing.T) {
	v := newRowValidator(nil)
	for length, ok := range map[int]bool{3: true, 50: true, 51: false} {
		raw := validStudentRow()
		raw[fieldUsername] = strings.Repeat("x", length)
		_, err := v.Validate(models.ImportKindStudent, 1, raw)
		if ok {
			assert.NoError(t, err)
		} else {
			assert.EqualError(t, err, reasonUsernameLength)
		}
	}
}

func TestRowValidatorPasswordBytes(t *testing.T) {
	v := newRowValidator(nil)

	raw := validStudentRow()
	raw[fieldPassword] = strings.Repeat("p", 72)
	_, err := v.Validate(models.ImportKindStudent, 1, raw)
	assert.NoError(t, err)

	raw[fieldPassword] = strings.Repeat("p", 73)
	_, err = v.Validate(models.ImportKindStudent, 1, raw)
	assert.EqualError(t, err, reasonPasswordLength)

	// 25 three-byte runes: short in characters, too long for bcrypt
	raw[fieldPassword] = strings.Repeat("密", 25)
	_, err = v.Validate(models.ImportKindStudent, 1, raw)
	assert.EqualError(t, err, reasonPasswordLength)
}

func TestRowValidatorColumnWidths(t *testing.T) {
	v := newRowValidator(nil)
	tests := []struct {
		kind   models.ImportKind
		base   func() map[string]string
		field  string
		value  string
		reason string
	}{
		{models.ImportKindStudent, validStudentRow, fieldEmail, strings.Repeat("a", 250) + "@u.edu", "email must be at most 255 characters"},
		{models.ImportKindStudent, validStudentRow, fieldFirstName, strings.Repeat("A", 101), "firstName must be at most 100 characters"},
		{models.ImportKindStudent, validStudentRow, fieldLastName, strings.Repeat("B", 101), "lastName must be at most 100 characters"},
		{models.ImportKindStudent, validStudentRow, fieldRollNumber, strings.Repeat("R", 65), "rollNumber must be at most 64 characters"},
		{models.ImportKindStudent, validStudentRow, fieldMajor, strings.Repeat("M", 256), "major must be at most 255 characters"},
		{models.ImportKindFaculty, validFacultyRow, fieldDepartment, strings.Repeat("D", 256), "department must be at most 255 characters"},
		{models.ImportKindFaculty, validFacultyRow, fieldPosition, strings.Repeat("P", 256), "position must be at most 255 characters"},
		{models.ImportKindCourse, validCourseRow, fieldCode, strings.Repeat("C", 33), "code must be at most 32 characters"},
		{models.ImportKindCourse, validCourseRow, fieldName, strings.Repeat("N", 256), "name must be at most 255 characters"},
	}
	for _, tc := range tests {
		t.Run(tc.field, func(t *testing.T) {
			raw := tc.base()
			raw[tc.field] = tc.value
			_, err := v.Validate(tc.kind, 1, raw)
			assert.EqualError(t, err, tc.reason)

			// widths count characters, as VARCHAR does
			raw[tc.field] = strings.Repeat("é", 32)
			if tc.field == fieldEmail {
				raw[tc.field] = "alice@uni.edu"
			}
			_, err = v.Validate(tc.kind, 1, raw)
			assert.NoError(t, err)
		})
	}
}

func validFacultyRow() map[string]string {
	return map[string]string{
		fieldUsername:   "drsmith",
		fieldEmail:      "smith@uni.edu",
		fieldPassword:   "pw",
		fieldFirstName:  "Jane",
		fieldLastName:   "Smith",
		fieldDepartment: "Physics",
		fieldPosition:   "Lecturer",
	}
}

func validCourseRow() map[string]string {
	return map[string]string{fieldCode: "CS101", fieldName: "Intro", fieldCredits: "3", fieldSemester: "Fall"}
}

func TestRowValidatorFaculty(t *testing.T) {
	v := newRowValidator(nil)
	raw := validFacultyRow()
	row, err := v.Validate(models.ImportKindFaculty, 1, raw)
	require.NoError(t, err)
	assert.Equal(t, "Physics", row.Department)
	require.NotNil(t, row.LastName)
	assert.Equal(t, "Smith", *row.LastName)

	raw[fieldDepartment] = ""
	_, err = v.Validate(models.ImportKindFaculty, 1, raw)
	assert.EqualError(t, err, "Missing required fields: department")
}

func TestRowValidatorCourse(t *testing.T) {
	v := newRowValidator(nil)
	raw := map[string]string{fieldCode: "CS101", fieldName: "Intro", fieldCredits: "20", fieldSemester: " spring "}
	row, err := v.Validate(models.ImportKindCourse, 2, raw)
	require.NoError(t, err)
	assert.Equal(t, models.SemesterSpring, row.Semester)
	assert.Equal(t, 20, row.Credits)
	assert.Nil(t, row.Description)

	for credits, ok := range map[string]bool{"1": true, "0": false, "21": false, "3.5": false} {
		raw[fieldCredits] = credits
		_, err := v.Validate(models.ImportKindCourse, 2, raw)
		if ok {
			assert.NoError(t, err, credits)
		} else {
			assert.EqualError(t, err, reasonInvalidCredits, credits)
		}
	}

	raw[fieldCredits] = "3"
	raw[fieldSemester] = "Winter"
	_, err = v.Validate(models.ImportKindCourse, 2, raw)
	assert.EqualError(t, err, reasonInvalidSemester)
}

func TestRowValidatorUnknownKind(t *testing.T) {
	_, err := newRowValidator(nil).Validate(models.ImportKind("alumni"), 1, map[string]string{})
	assert.Error(t, err)
}
