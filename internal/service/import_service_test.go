package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/coursetrack-api/internal/models"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// fakeStore keeps committed fixtures plus per-transaction pending writes, so
// a rolled back batch leaves nothing behind for the next run.
type fakeStore struct {
	users    []models.User
	rolls    map[string]bool
	codes    map[string]bool
	pending  map[*sqlx.Tx]*pendingWrites
	findErr  error
	writeErr error

	codeChecks int
}

type pendingWrites struct {
	users    []models.User
	students []models.Student
	faculty  []models.Faculty
	courses  []models.Course
}

func newFakeStore() *fakeStore {
	return &fakeStore{rolls: map[string]bool{}, codes: map[string]bool{}, pending: map[*sqlx.Tx]*pendingWrites{}}
}

func (f *fakeStore) tx(tx *sqlx.Tx) *pendingWrites {
	if f.pending[tx] == nil {
		f.pending[tx] = &pendingWrites{}
	}
	return f.pending[tx]
}

type fakeUsers struct{ *fakeStore }

func (f fakeUsers) FindConflictWithTx(ctx context.Context, tx *sqlx.Tx, username, email string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range append(append([]models.User{}, f.users...), f.tx(tx).users...) {
		if strings.EqualFold(u.Username, username) || strings.EqualFold(u.Email, email) {
			match := u
			return &match, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeUsers) CreateWithTx(ctx context.Context, tx *sqlx.Tx, user *models.User) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	user.ID = uuid.NewString()
	f.tx(tx).users = append(f.tx(tx).users, *user)
	return nil
}

type fakeStudents struct{ *fakeStore }

func (f fakeStudents) RollNumberExistsWithTx(ctx context.Context, tx *sqlx.Tx, rollNumber string) (bool, error) {
	if f.rolls[rollNumber] {
		return true, nil
	}
	for _, s := range f.tx(tx).students {
		if s.RollNumber == rollNumber {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeStudents) CreateWithTx(ctx context.Context, tx *sqlx.Tx, student *models.Student) error {
	f.tx(tx).students = append(f.tx(tx).students, *student)
	return nil
}

type fakeFaculty struct{ *fakeStore }

func (f fakeFaculty) CreateWithTx(ctx context.Context, tx *sqlx.Tx, faculty *models.Faculty) error {
	f.tx(tx).faculty = append(f.tx(tx).faculty, *faculty)
	return nil
}

type fakeCourses struct{ *fakeStore }

func (f fakeCourses) CodeExistsWithTx(ctx context.Context, tx *sqlx.Tx, code string) (bool, error) {
	f.codeChecks++
	if f.codes[strings.ToLower(code)] {
		return true, nil
	}
	for _, c := range f.tx(tx).courses {
		if strings.EqualFold(c.Code, code) {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeCourses) CreateWithTx(ctx context.Context, tx *sqlx.Tx, course *models.Course) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	course.ID = uuid.NewString()
	f.tx(tx).courses = append(f.tx(tx).courses, *course)
	return nil
}

type savepointStub struct {
	created    []string
	rolledBack []string
	released   []string
}

func (s *savepointStub) Create(ctx context.Context, tx *sqlx.Tx, name string) error {
	s.created = append(s.created, name)
	return nil
}

func (s *savepointStub) RollbackTo(ctx context.Context, tx *sqlx.Tx, name string) error {
	s.rolledBack = append(s.rolledBack, name)
	return nil
}

func (s *savepointStub) Release(ctx context.Context, tx *sqlx.Tx, name string) error {
	s.released = append(s.released, name)
	return nil
}

type stubHasher struct{}

func (stubHasher) Hash(plaintext string) (string, error) { return "hashed:" + plaintext, nil }

type auditStub struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

type reportStoreStub struct {
	saved []models.ImportResult
}

func (r *reportStoreStub) Save(ctx context.Context, result *models.ImportResult, ttl time.Duration) error {
	r.saved = append(r.saved, *result)
	return nil
}

type importFixture struct {
	svc        *ImportService
	store      *fakeStore
	savepoints *savepointStub
	audit      *auditStub
	reports    *reportStoreStub
}

func newImportFixture(tx txProvider) importFixture {
	store := newFakeStore()
	fx := importFixture{store: store, savepoints: &savepointStub{}, audit: &auditStub{}, reports: &reportStoreStub{}}
	fx.svc = NewImportService(tx, ImportStores{
		Users:      fakeUsers{store},
		Students:   fakeStudents{store},
		Faculty:    fakeFaculty{store},
		Courses:    fakeCourses{store},
		Savepoints: fx.savepoints,
		Audit:      fx.audit,
		Reports:    fx.reports,
	}, stubHasher{}, NewMetricsService(), nil, nil, ImportConfig{})
	return fx
}

func csvUpload(lines ...string) ImportUpload {
	return ImportUpload{Filename: "upload.csv", MimeType: "text/csv", Content: []byte(strings.Join(lines, "\n") + "\n")}
}

const studentHeader = "username,email,password,firstName,lastName,rollNumber,enrollmentYear,major"

func TestImportStudentsCommitsValidBatch(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	mock.ExpectBegin()
	mock.ExpectCommit()

	result := fx.svc.Run(context.Background(), models.ImportKindStudent, csvUpload(
		studentHeader,
		"alice,Alice@Uni.edu,pw1,Alice,Smith,R1,2024,Physics",
		"bob,bob@uni.edu,pw2,Bob,,R2,2023,Maths",
		"carol,carol@uni.edu,pw3,Carol,Jones,R3,2099,Biology",
	), ImportOptions{ActorID: "admin-1"})

	require.True(t, result.Succeeded(), result.Reason)
	assert.Equal(t, models.ImportStateCommitted, result.State)
	assert.Len(t, result.Created, 3)
	assert.Empty(t, result.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())

	var writes *pendingWrites
	for _, w := range fx.store.pending {
		writes = w
	}
	require.NotNil(t, writes)
	require.Len(t, writes.users, 3)
	require.Len(t, writes.students, 3)
	assert.Equal(t, "alice@uni.edu", writes.users[0].Email)
	assert.Equal(t, "hashed:pw1", writes.users[0].PasswordHash)
	assert.Nil(t, writes.users[1].LastName)
	assert.Equal(t, models.UserTypeStudent, writes.users[0].UserType)
	assert.Equal(t, writes.users[2].ID, writes.students[2].UserID)
	assert.Equal(t, result.Created[0].ID, writes.users[0].ID)

	assert.Equal(t, []string{"import_row_1", "import_row_2", "import_row_3"}, fx.savepoints.released)

	require.Len(t, fx.audit.logs, 1)
	assert.Equal(t, models.AuditActionBulkImport, fx.audit.logs[0].Action)
	assert.Equal(t, "admin-1", *fx.audit.logs[0].UserID)
	require.Len(t, fx.reports.saved, 1)
	assert.Equal(t, result.BatchID, fx.reports.saved[0].BatchID)
}

func TestImportStudentsRollsBackWholeBatchOnInvalidRow(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	mock.ExpectBegin()
	mock.ExpectRollback()

	result := fx.svc.Run(context.Background(), models.ImportKindStudent, csvUpload(
		studentHeader,
		"alice,alice@uni.edu,pw,Alice,Smith,R1,2024,Physics",
		"bob,bob@uni.edu,pw,Bob,Lee,R2,1999,Maths",
		"carol,carol@uni.edu,pw,Carol,Jones,R3,2024,Biology",
	), ImportOptions{})

	assert.False(t, result.Succeeded())
	assert.Equal(t, models.ImportFailureValidation, result.FailureType)
	assert.Equal(t, models.ImportStateRolledBack, result.State)
	assert.Equal(t, []string{"Row 2: Invalid enrollment year (must be between 2000 and 2099)"}, result.Errors)
	assert.Empty(t, result.Created)
	assert.Len(t, result.Outcomes, 3)
	assert.Empty(t, fx.audit.logs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportReportsEveryFailingRow(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	fx.store.users = []models.User{{ID: "u0", Username: "taken", Email: "taken@uni.edu"}}
	fx.store.rolls["R9"] = true
	mock.ExpectBegin()
	mock.ExpectRollback()

	result := fx.svc.Run(context.Background(), models.ImportKindStudent, csvUpload(
		studentHeader,
		"ok1,ok1@uni.edu,pw,Ok,One,R1,2024,Physics",
		"ab,ab@uni.edu,pw,Ab,Two,R2,2024,Physics",
		"taken,new@uni.edu,pw,Tk,Three,R3,2024,Physics",
		"fresh,TAKEN@uni.edu,pw,Fr,Four,R4,2024,Physics",
		"noroll,noroll@uni.edu,pw,No,Five,R9,2024,Physics",
		"bademail,not-an-email,pw,Bad,Six,R6,2024,Physics",
		",,,,,,,",
		"missing,missing@uni.edu,,Mi,Seven,R7,,Physics",
	), ImportOptions{})

	assert.Equal(t, []string{
		"Row 2: Username must be between 3 and 50 characters",
		"Row 3: Username 'taken' already exists",
		"Row 4: Email 'taken@uni.edu' already exists",
		"Row 5: Roll number 'R9' already exists",
		"Row 6: Invalid email format",
		"Row 7: Missing required fields: password, enrollmentYear",
	}, result.Errors)
	assert.Equal(t, 7, result.TotalRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportDetectsIntraBatchDuplicatesOnEveryRow(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	mock.ExpectBegin()
	mock.ExpectRollback()

	result := fx.svc.Run(context.Background(), models.ImportKindStudent, csvUpload(
		studentHeader,
		"alice,alice@uni.edu,pw,Alice,A,R1,2024,Physics",
		"bob,bob@uni.edu,pw,Bob,B,R2,2024,Physics",
		"carol,carol@uni.edu,pw,Carol,C,R1,2024,Physics",
	), ImportOptions{})

	assert.Equal(t, []string{
		"Row 1: Duplicate roll number 'R1' in file (rows 1, 3)",
		"Row 3: Duplicate roll number 'R1' in file (rows 1, 3)",
	}, result.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportResubmissionIsIdempotent(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	upload := csvUpload(
		studentHeader,
		"alice,alice@uni.edu,pw,Alice,A,R1,2024,Physics",
		"bob,bob@uni.edu,pw,Bob,B,R2,1999,Physics",
	)

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectRollback()

	first := fx.svc.Run(context.Background(), models.ImportKindStudent, upload, ImportOptions{})
	second := fx.svc.Run(context.Background(), models.ImportKindStudent, upload, ImportOptions{})

	assert.Equal(t, first.Errors, second.Errors)
	assert.Equal(t, first.FailureType, second.FailureType)
	assert.NotEqual(t, first.BatchID, second.BatchID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportSchemaErrorBeforeTransaction(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)

	result := fx.svc.Run(context.Background(), models.ImportKindStudent, csvUpload(
		"username,email,password,firstName,lastName,rollNumber,enrollmentYear",
		"alice,alice@uni.edu,pw,Alice,A,R1,2024",
	), ImportOptions{})

	assert.Equal(t, models.ImportFailureSchema, result.FailureType)
	assert.Equal(t, "Missing required columns: major", result.Reason)
	assert.Empty(t, result.Outcomes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportParseAndUploadFailures(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	ctx := context.Background()

	noFile := fx.svc.Run(ctx, models.ImportKindFaculty, ImportUpload{}, ImportOptions{})
	assert.Equal(t, models.ImportFailureUpload, noFile.FailureType)
	assert.Equal(t, "No file uploaded", noFile.Reason)

	empty := fx.svc.Run(ctx, models.ImportKindFaculty, ImportUpload{Filename: "f.csv", Content: []byte{}}, ImportOptions{})
	assert.Equal(t, models.ImportFailureParse, empty.FailureType)
	assert.Equal(t, "Uploaded file is empty", empty.Reason)

	headerOnly := fx.svc.Run(ctx, models.ImportKindFaculty, csvUpload("username,email"), ImportOptions{})
	assert.Equal(t, models.ImportFailureParse, headerOnly.FailureType)

	badKind := fx.svc.Run(ctx, models.ImportKind("admin"), csvUpload("a", "b"), ImportOptions{})
	assert.Equal(t, models.ImportFailureUpload, badKind.FailureType)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportFacultyCommits(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	mock.ExpectBegin()
	mock.ExpectCommit()

	result := fx.svc.Run(context.Background(), models.ImportKindFaculty, csvUpload(
		"Username,Email,Password,First Name,Last Name,Department,Position",
		"drsmith,smith@uni.edu,pw,Jane,Smith,Physics,Professor",
	), ImportOptions{})

	require.True(t, result.Succeeded(), result.Reason)
	for _, w := range fx.store.pending {
		require.Len(t, w.faculty, 1)
		assert.Equal(t, "Physics", w.faculty[0].Department)
		assert.Equal(t, models.UserTypeFaculty, w.users[0].UserType)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportCoursesRejectsDuplicateCodesBeforeStore(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)

	result := fx.svc.Run(context.Background(), models.ImportKindCourse, csvUpload(
		"code,name,credits,semester",
		"CS101,Intro,3,Fall",
		"MA101,Calculus,4,Spring",
		"cs101,Intro again,3,Fall",
	), ImportOptions{})

	assert.Equal(t, models.ImportFailureDuplicateCodes, result.FailureType)
	assert.Equal(t, []string{"CS101"}, result.DuplicateCodes)
	assert.Equal(t, []string{"Duplicate course code 'CS101' in file (rows 2, 4)"}, result.Errors)
	assert.Zero(t, fx.store.codeChecks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportCoursesWithAliasedHeaders(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	mock.ExpectBegin()
	mock.ExpectCommit()

	result := fx.svc.Run(context.Background(), models.ImportKindCourse, csvUpload(
		"Course Code,Course Name,Description,Credit Hours,Term",
		"CS101,Intro,,3,fall",
		"MA201,Linear Algebra,Vectors,4,SUMMER",
	), ImportOptions{})

	require.True(t, result.Succeeded(), result.Reason)
	require.Len(t, result.Created, 2)
	assert.Equal(t, "CS101", result.Created[0].Code)
	for _, w := range fx.store.pending {
		assert.Equal(t, models.SemesterFall, w.courses[0].Semester)
		assert.Nil(t, w.courses[0].Description)
		assert.Equal(t, models.SemesterSummer, w.courses[1].Semester)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportCoursesRowNumbersCountHeader(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	fx.store.codes["ph100"] = true
	mock.ExpectBegin()
	mock.ExpectRollback()

	result := fx.svc.Run(context.Background(), models.ImportKindCourse, csvUpload(
		"code,name,credits,semester",
		"CS101,Intro,0,Fall",
		"CS102,Data,3,Winter",
		"PH100,Physics,3,Fall",
	), ImportOptions{})

	assert.Equal(t, []string{
		"Row 2: Invalid credits (must be between 1 and 20)",
		"Row 3: Invalid semester (must be Fall, Spring, or Summer)",
		"Row 4: Course code 'PH100' already exists",
	}, result.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportCoursesRowNumbersFollowFileLines(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)

	result := fx.svc.Run(context.Background(), models.ImportKindCourse, csvUpload(
		"code,name,credits,semester",
		",,,",
		"CS101,Intro,3,Fall",
		"",
		"cs101,Intro again,3,Fall",
	), ImportOptions{})

	assert.Equal(t, []string{"Duplicate course code 'CS101' in file (rows 3, 5)"}, result.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())

	tx, mock = newTxProviderMock(t)
	fx = newImportFixture(tx)
	mock.ExpectBegin()
	mock.ExpectRollback()

	result = fx.svc.Run(context.Background(), models.ImportKindCourse, csvUpload(
		"code,name,credits,semester",
		",,,",
		"CS101,Intro,0,Fall",
	), ImportOptions{})

	assert.Equal(t, []string{"Row 3: Invalid credits (must be between 1 and 20)"}, result.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportDryRunAlwaysRollsBack(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	mock.ExpectBegin()
	mock.ExpectRollback()

	result := fx.svc.Run(context.Background(), models.ImportKindStudent, csvUpload(
		studentHeader,
		"alice,alice@uni.edu,pw,Alice,A,R1,2024,Physics",
	), ImportOptions{DryRun: true})

	assert.True(t, result.Succeeded())
	assert.True(t, result.DryRun)
	assert.Equal(t, models.ImportStateRolledBack, result.State)
	assert.Len(t, result.Created, 1)
	assert.Empty(t, fx.audit.logs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportStoreFailureAbortsBatch(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	fx.store.findErr = errors.New("connection refused")
	mock.ExpectBegin()
	mock.ExpectRollback()

	result := fx.svc.Run(context.Background(), models.ImportKindStudent, csvUpload(
		studentHeader,
		"alice,alice@uni.edu,pw,Alice,A,R1,2024,Physics",
	), ImportOptions{})

	assert.Equal(t, models.ImportFailureInternal, result.FailureType)
	assert.Equal(t, "connection refused", result.Reason)
	assert.Equal(t, models.ImportStateRolledBack, result.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportBeginFailure(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	result := fx.svc.Run(context.Background(), models.ImportKindStudent, csvUpload(
		studentHeader,
		"alice,alice@uni.edu,pw,Alice,A,R1,2024,Physics",
	), ImportOptions{})

	assert.Equal(t, models.ImportFailureInternal, result.FailureType)
	assert.Contains(t, result.Reason, "too many connections")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportSerializationFailureOnCommit(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001"})

	result := fx.svc.Run(context.Background(), models.ImportKindStudent, csvUpload(
		studentHeader,
		"alice,alice@uni.edu,pw,Alice,A,R1,2024,Physics",
	), ImportOptions{})

	assert.Equal(t, models.ImportFailureConflict, result.FailureType)
	assert.Empty(t, result.Created)
	assert.Equal(t, models.ImportStateRolledBack, result.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportUniqueViolationBecomesRowError(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	fx.store.writeErr = &pq.Error{Code: "23505", Constraint: "users_email_lower_key"}
	mock.ExpectBegin()
	mock.ExpectRollback()

	result := fx.svc.Run(context.Background(), models.ImportKindStudent, csvUpload(
		studentHeader,
		"alice,alice@uni.edu,pw,Alice,A,R1,2024,Physics",
		"bob,bob@uni.edu,pw,Bob,B,R2,2024,Physics",
	), ImportOptions{})

	assert.Equal(t, []string{
		"Row 1: Email 'alice@uni.edu' already exists",
		"Row 2: Email 'bob@uni.edu' already exists",
	}, result.Errors)
	assert.Equal(t, []string{"import_row_1", "import_row_2"}, fx.savepoints.rolledBack)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportSerializationFailureDuringRows(t *testing.T) {
	for name, configure := range map[string]func(*fakeStore){
		"write": func(f *fakeStore) { f.writeErr = &pq.Error{Code: "40001"} },
		"check": func(f *fakeStore) { f.findErr = fmt.Errorf("find user: %w", &pq.Error{Code: "40001"}) },
	} {
		t.Run(name, func(t *testing.T) {
			tx, mock := newTxProviderMock(t)
			fx := newImportFixture(tx)
			configure(fx.store)
			mock.ExpectBegin()
			mock.ExpectRollback()

			result := fx.svc.Run(context.Background(), models.ImportKindStudent, csvUpload(
				studentHeader,
				"alice,alice@uni.edu,pw,Alice,A,R1,2024,Physics",
			), ImportOptions{})

			assert.Equal(t, models.ImportFailureConflict, result.FailureType)
			assert.Equal(t, reasonRetryConflict, result.Reason)
			assert.Empty(t, result.Created)
			status, _ := BuildImportResponse(result)
			assert.Equal(t, http.StatusConflict, status)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestImportOverlongPasswordReportedWithOtherRows(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	fx.svc.materializer.hasher = NewBcryptHasher(bcrypt.MinCost)
	mock.ExpectBegin()
	mock.ExpectRollback()

	result := fx.svc.Run(context.Background(), models.ImportKindStudent, csvUpload(
		studentHeader,
		"alice,alice@uni.edu,"+strings.Repeat("p", 73)+",Alice,A,R1,2024,Physics",
		"bob,bob@uni.edu,pw,Bob,B,R2,1999,Physics",
	), ImportOptions{})

	assert.Equal(t, models.ImportFailureValidation, result.FailureType)
	assert.Equal(t, []string{
		"Row 1: Password must be at most 72 bytes",
		"Row 2: Invalid enrollment year (must be between 2000 and 2099)",
	}, result.Errors)
	status, _ := BuildImportResponse(result)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportOverlongCourseCodeIsRowError(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	mock.ExpectBegin()
	mock.ExpectRollback()

	result := fx.svc.Run(context.Background(), models.ImportKindCourse, csvUpload(
		"code,name,credits,semester",
		strings.Repeat("C", 33)+",Long,3,Fall",
		"CS102,Data Structures,0,Fall",
	), ImportOptions{})

	assert.Equal(t, models.ImportFailureValidation, result.FailureType)
	assert.Equal(t, []string{
		"Row 2: code must be at most 32 characters",
		"Row 3: Invalid credits (must be between 1 and 20)",
	}, result.Errors)
	assert.Zero(t, fx.store.codeChecks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportAuditFailureDoesNotFailBatch(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newImportFixture(tx)
	fx.audit.err = errors.New("audit table locked")
	mock.ExpectBegin()
	mock.ExpectCommit()

	result := fx.svc.Run(context.Background(), models.ImportKindStudent, csvUpload(
		studentHeader,
		"alice,alice@uni.edu,pw,Alice,A,R1,2024,Physics",
	), ImportOptions{})

	assert.True(t, result.Succeeded())
	assert.Len(t, fx.audit.logs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportAccumulatorRecordIsPure(t *testing.T) {
	base := importAccumulator{}.record(createdOutcome(1, models.CreatedRef{ID: "a"}))
	left := base.record(failedOutcome(2, "bad"))
	right := base.record(createdOutcome(2, models.CreatedRef{ID: "b"}))

	assert.Len(t, base.outcomes, 1)
	assert.Len(t, base.created, 1)
	assert.Empty(t, base.errors)
	assert.Equal(t, []string{"Row 2: bad"}, left.errors)
	assert.False(t, right.failed())
	assert.Equal(t, "b", right.created[1].ID)
	assert.Equal(t, "Row 2: bad", left.outcomes[1].Error)
}
