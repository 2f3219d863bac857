package service

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/coursetrack-api/internal/models"
)

var tldEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// maxPasswordBytes is the longest input bcrypt will hash.
const maxPasswordBytes = 72

// Row rejection reasons. These strings are part of the API contract.
const (
	reasonInvalidEmail    = "Invalid email format"
	reasonUsernameLength  = "Username must be between 3 and 50 characters"
	reasonPasswordLength  = "Password must be at most 72 bytes"
	reasonEnrollmentYear  = "Invalid enrollment year (must be between 2000 and 2099)"
	reasonInvalidCredits  = "Invalid credits (must be between 1 and 20)"
	reasonInvalidSemester = "Invalid semester (must be Fall, Spring, or Summer)"
)

// importRow is a validated, normalized row ready for uniqueness checks.
type importRow struct {
	Number int

	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  *string

	RollNumber     string
	EnrollmentYear int
	Major          string

	Department string
	Position   string

	Code        string
	Name        string
	Description *string
	Credits     int
	Semester    models.Semester
}

// rowValidator checks a single raw row. It has no side effects.
type rowValidator struct {
	validate *validator.Validate
}

func newRowValidator(validate *validator.Validate) *rowValidator {
	if validate == nil {
		validate = validator.New()
	}
	_ = validate.RegisterValidation("tld_email", func(fl validator.FieldLevel) bool {
		return tldEmailPattern.MatchString(fl.Field().String())
	})
	return &rowValidator{validate: validate}
}

// Validate runs presence checks then format checks for kind, stopping at the
// first failure. The returned error text is the human readable reason.
func (v *rowValidator) Validate(kind models.ImportKind, number int, raw map[string]string) (importRow, error) {
	schema, ok := schemaFor(kind)
	if !ok {
		return importRow{}, fmt.Errorf("unsupported import kind %q", kind)
	}

	var missing []string
	for _, field := range schema.requiredValues() {
		if strings.TrimSpace(raw[field]) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return importRow{}, errors.New("Missing required fields: " + strings.Join(missing, ", "))
	}

	row := importRow{Number: number}
	switch kind {
	case models.ImportKindStudent, models.ImportKindFaculty:
		if err := v.user(raw, &row); err != nil {
			return importRow{}, err
		}
		if kind == models.ImportKindStudent {
			if err := v.student(raw, &row); err != nil {
				return importRow{}, err
			}
		} else {
			row.Department = raw[fieldDepartment]
			row.Position = raw[fieldPosition]
		}
	case models.ImportKindCourse:
		if err := v.course(raw, &row); err != nil {
			return importRow{}, err
		}
	}

	for _, col := range schema.lengthLimits() {
		if v.validate.Var(raw[col.field], fmt.Sprintf("max=%d", col.maxLen)) != nil {
			return importRow{}, fmt.Errorf("%s must be at most %d characters", col.field, col.maxLen)
		}
	}
	return row, nil
}

func (v *rowValidator) user(raw map[string]string, row *importRow) error {
	email := strings.ToLower(raw[fieldEmail])
	if v.validate.Var(email, "tld_email") != nil {
		return errors.New(reasonInvalidEmail)
	}
	username := raw[fieldUsername]
	if v.validate.Var(username, "min=3,max=50") != nil {
		return errors.New(reasonUsernameLength)
	}
	if len(raw[fieldPassword]) > maxPasswordBytes {
		return errors.New(reasonPasswordLength)
	}

	row.Username = username
	row.Email = email
	row.Password = raw[fieldPassword]
	row.FirstName = raw[fieldFirstName]
	row.LastName = optional(raw[fieldLastName])
	return nil
}

func (v *rowValidator) student(raw map[string]string, row *importRow) error {
	year, err := strconv.Atoi(raw[fieldEnrollmentYear])
	if err != nil || v.validate.Var(year, "gte=2000,lte=2099") != nil {
		return errors.New(reasonEnrollmentYear)
	}
	row.RollNumber = raw[fieldRollNumber]
	row.EnrollmentYear = year
	row.Major = raw[fieldMajor]
	return nil
}

func (v *rowValidator) course(raw map[string]string, row *importRow) error {
	credits, err := strconv.Atoi(raw[fieldCredits])
	if err != nil || v.validate.Var(credits, "gte=1,lte=20") != nil {
		return errors.New(reasonInvalidCredits)
	}
	semester, ok := normalizeSemester(raw[fieldSemester])
	if !ok {
		return errors.New(reasonInvalidSemester)
	}

	row.Code = raw[fieldCode]
	row.Name = raw[fieldName]
	row.Description = optional(raw[fieldDescription])
	row.Credits = credits
	row.Semester = semester
	return nil
}

func normalizeSemester(raw string) (models.Semester, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fall":
		return models.SemesterFall, true
	case "spring":
		return models.SemesterSpring, true
	case "summer":
		return models.SemesterSummer, true
	}
	return "", false
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
