package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyadesk/school-api/internal/models"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
)

type fakeResultRepo struct {
	results map[string]*models.Result
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{results: map[string]*models.Result{}}
}

func resultKey(tenant, reg, class, session, exam string) string {
	return tenant + "/" + reg + "/" + class + "/" + session + "/" + exam
}

func (f *fakeResultRepo) InsertMany(_ context.Context, results []models.Result) error {
	for _, r := range results {
		k := resultKey(r.Tenant, r.RegistrationNo, r.Class, r.Session, r.ExamType)
		if _, ok := f.results[k]; ok {
			return &pq.Error{Code: "23505"}
		}
	}
	for i := range results {
		r := results[i]
		f.results[resultKey(r.Tenant, r.RegistrationNo, r.Class, r.Session, r.ExamType)] = &r
	}
	return nil
}

func (f *fakeResultRepo) Find(_ context.Context, tenant, reg, class, session, exam string) (*models.Result, error) {
	if r, ok := f.results[resultKey(tenant, reg, class, session, exam)]; ok {
		out := *r
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeResultRepo) ListByCohort(_ context.Context, tenant, class, medium, stream, session, exam string) ([]models.Result, error) {
	var out []models.Result
	for _, r := range f.results {
		if r.Tenant == tenant && r.Class == class && r.Medium == medium && r.Session == session && r.ExamType == exam {
			if stream != "" && r.Stream != stream {
				continue
			}
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeResultRepo) UpdateSubjects(_ context.Context, tenant, reg, class, session, exam string, subjects models.SubjectList) error {
	r, ok := f.results[resultKey(tenant, reg, class, session, exam)]
	if !ok {
		return sql.ErrNoRows
	}
	r.Subjects = subjects
	return nil
}

type fakeHistoryRepo struct {
	histories map[string]*models.SessionHistory
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{histories: map[string]*models.SessionHistory{}}
}

func historyKey(tenant, reg, session, class string) string {
	return tenant + "/" + reg + "/" + session + "/" + class
}

func (f *fakeHistoryRepo) Find(_ context.Context, tenant, reg, session, class string) (*models.SessionHistory, error) {
	if h, ok := f.histories[historyKey(tenant, reg, session, class)]; ok {
		out := *h
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeHistoryRepo) FindTerminal(_ context.Context, tenant, reg, session, class, exam string) (*models.SessionHistory, error) {
	if h, ok := f.histories[historyKey(tenant, reg, session, class)]; ok && h.ExamType == exam {
		out := *h
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeHistoryRepo) List(_ context.Context, tenant string, filter models.SessionHistoryFilter) ([]models.SessionHistory, error) {
	var out []models.SessionHistory
	for _, h := range f.histories {
		if h.Tenant != tenant {
			continue
		}
		if filter.Session != "" && h.Session != filter.Session {
			continue
		}
		if filter.Class != "" && h.Class != filter.Class {
			continue
		}
		out = append(out, *h)
	}
	return out, nil
}

func (f *fakeHistoryRepo) UpdateRecord(_ context.Context, tenant, reg, session, class string, edit models.HistoryEditRequest) (*models.SessionHistory, error) {
	h, ok := f.histories[historyKey(tenant, reg, session, class)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if edit.TotalFees != nil && *edit.TotalFees < h.FeesPaid {
		return nil, sql.ErrNoRows
	}
	if edit.TotalFees != nil {
		h.TotalFees = *edit.TotalFees
	}
	if edit.PromotedTo != nil {
		h.PromotedTo = *edit.PromotedTo
	}
	if edit.Grade != nil {
		h.Grade = *edit.Grade
	}
	if edit.Percentage != nil {
		h.Percentage = *edit.Percentage
	}
	out := *h
	return &out, nil
}

func subjects(obtained ...float64) models.SubjectList {
	names := []string{"English", "Maths", "Science", "Hindi"}
	var list models.SubjectList
	for i, marks := range obtained {
		list = append(list, models.Subject{Name: names[i%len(names)], ObtainedMarks: marks, TotalMarks: 100})
	}
	return list
}

func seedStudent(repo *fakeStudentRepo, reg string, totalFees, feesPaid float64) {
	repo.students[repo.key(testTenant, reg)] = &models.Student{
		RegistrationNo: reg,
		Name:           "Asha Verma",
		FatherName:     "R Verma",
		Class:          "10",
		Medium:         "English",
		Session:        "2024-25",
		TotalFees:      totalFees,
		FeesPaid:       feesPaid,
		Tenant:         testTenant,
	}
}

type fakePromoter struct {
	queries []models.CohortQuery
	report  *models.PromotionReport
}

func (f *fakePromoter) Promote(_ context.Context, _ string, q models.CohortQuery) (*models.PromotionReport, error) {
	f.queries = append(f.queries, q)
	if f.report != nil {
		return f.report, nil
	}
	return &models.PromotionReport{}, nil
}

func newTestResultService() (*ResultService, *fakeResultRepo, *fakeStudentRepo, *fakeHistoryRepo) {
	results := newFakeResultRepo()
	students := newFakeStudentRepo()
	histories := newFakeHistoryRepo()
	svc := NewResultService(results, students, histories, nil, nil, nil, nil)
	return svc, results, students, histories
}

func submitRequest() models.SubmitResultsRequest {
	return models.SubmitResultsRequest{
		Class:    "10",
		Medium:   "English",
		Session:  "2024-25",
		ExamType: "Half-Yearly",
		Entries: []models.ResultEntry{
			{RegistrationNo: "2024001", StudentName: "Asha Verma", Subjects: subjects(80, 75, 90)},
			{RegistrationNo: "2024002", StudentName: "Ravi Kumar", Subjects: subjects(40, 55, 35)},
		},
	}
}

func TestResultSubmit(t *testing.T) {
	svc, results, _, _ := newTestResultService()

	n, err := svc.Submit(context.Background(), testTenant, submitRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, results.results, 2)
}

func TestResultSubmitReportsEveryBadEntry(t *testing.T) {
	svc, results, _, _ := newTestResultService()

	req := submitRequest()
	req.Entries[0].Subjects[0].ObtainedMarks = 120
	req.Entries = append(req.Entries, models.ResultEntry{RegistrationNo: "2024001", Subjects: subjects(50)})

	_, err := svc.Submit(context.Background(), testTenant, req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	entryErrors, ok := appErr.Details.([]models.EntryError)
	require.True(t, ok)
	assert.Len(t, entryErrors, 2)
	assert.Empty(t, results.results)
}

func TestResultSubmitTerminalClosesOutSession(t *testing.T) {
	results := newFakeResultRepo()
	students := newFakeStudentRepo()
	histories := newFakeHistoryRepo()
	promoter := &fakePromoter{report: &models.PromotionReport{Promoted: 1, Held: 1}}
	svc := NewResultService(results, students, histories, promoter, nil, nil, nil)

	req := submitRequest()
	req.ExamType = "Final"
	_, err := svc.Submit(context.Background(), testTenant, req)
	require.NoError(t, err)
	require.Len(t, promoter.queries, 1)
	assert.Equal(t, "10", promoter.queries[0].Class)
	assert.Equal(t, "Final", promoter.queries[0].ExamType)
}

func TestResultSubmitMidSessionDoesNotPromote(t *testing.T) {
	results := newFakeResultRepo()
	students := newFakeStudentRepo()
	histories := newFakeHistoryRepo()
	promoter := &fakePromoter{}
	svc := NewResultService(results, students, histories, promoter, nil, nil, nil)

	_, err := svc.Submit(context.Background(), testTenant, submitRequest())
	require.NoError(t, err)
	assert.Empty(t, promoter.queries)
}

func TestResultSubmitDuplicateSitting(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	_, err := svc.Submit(context.Background(), testTenant, submitRequest())
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), testTenant, submitRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)
}

func marksheetRequest(exam string) models.MarksheetRequest {
	return models.MarksheetRequest{
		RegistrationNo: "2024001",
		Class:          "10",
		Session:        "2024-25",
		ExamType:       exam,
	}
}

func TestMarksheetMidSessionGate(t *testing.T) {
	svc, _, students, _ := newTestResultService()
	seedStudent(students, "2024001", 10000, 3000)

	_, err := svc.Submit(context.Background(), testTenant, submitRequest())
	require.NoError(t, err)

	_, err = svc.Marksheet(context.Background(), testTenant, marksheetRequest("Half-Yearly"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFeesDue.Code, appErrors.FromError(err).Code)

	students.students[students.key(testTenant, "2024001")].FeesPaid = 5000
	sheet, err := svc.Marksheet(context.Background(), testTenant, marksheetRequest("Half-Yearly"))
	require.NoError(t, err)
	assert.Equal(t, "A", sheet.Grade)
	assert.Equal(t, "First", sheet.Division)
	assert.InDelta(t, 81.67, sheet.Percentage, 0.01)
}

func TestMarksheetMinorExamSkipsFeeGate(t *testing.T) {
	svc, _, students, _ := newTestResultService()
	seedStudent(students, "2024001", 10000, 0)

	req := submitRequest()
	req.ExamType = "Unit Test"
	_, err := svc.Submit(context.Background(), testTenant, req)
	require.NoError(t, err)

	sheet, err := svc.Marksheet(context.Background(), testTenant, marksheetRequest("Unit Test"))
	require.NoError(t, err)
	assert.Equal(t, "Unit Test", sheet.ExamType)
}

func TestMarksheetTerminalGateReadsArchive(t *testing.T) {
	svc, _, students, histories := newTestResultService()
	// roster row already reset by promotion
	seedStudent(students, "2024001", 0, 0)
	students.students[students.key(testTenant, "2024001")].Class = "11"
	students.students[students.key(testTenant, "2024001")].Session = "2025-26"

	req := submitRequest()
	req.ExamType = "Final"
	_, err := svc.Submit(context.Background(), testTenant, req)
	require.NoError(t, err)

	histories.histories[historyKey(testTenant, "2024001", "2024-25", "10")] = &models.SessionHistory{
		RegistrationNo: "2024001", Class: "10", Session: "2024-25", ExamType: "Final",
		TotalFees: 10000, FeesPaid: 8000, Tenant: testTenant,
	}
	_, err = svc.Marksheet(context.Background(), testTenant, marksheetRequest("Final"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFeesDue.Code, appErrors.FromError(err).Code)

	histories.histories[historyKey(testTenant, "2024001", "2024-25", "10")].FeesPaid = 10000
	sheet, err := svc.Marksheet(context.Background(), testTenant, marksheetRequest("Final"))
	require.NoError(t, err)
	assert.Equal(t, "Final", sheet.ExamType)
}

func TestResultUpdateRejectsMarksOverTotal(t *testing.T) {
	svc, _, _, _ := newTestResultService()

	_, err := svc.Submit(context.Background(), testTenant, submitRequest())
	require.NoError(t, err)

	update := models.UpdateResultRequest{
		RegistrationNo: "2024001",
		Class:          "10",
		Session:        "2024-25",
		ExamType:       "Half-Yearly",
		Subjects:       models.SubjectList{{Name: "English", ObtainedMarks: 110, TotalMarks: 100}},
	}
	_, err = svc.Update(context.Background(), testTenant, update)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEditRosterPartitionsTerminalCohort(t *testing.T) {
	svc, _, students, histories := newTestResultService()

	// passer, already archived and promoted
	seedStudent(students, "2024001", 0, 0)
	students.students[students.key(testTenant, "2024001")].Class = "11"
	students.students[students.key(testTenant, "2024001")].Session = "2025-26"
	histories.histories[historyKey(testTenant, "2024001", "2024-25", "10")] = &models.SessionHistory{
		RegistrationNo: "2024001", Class: "10", PromotedTo: "11", Session: "2024-25",
		ExamType: "Final", TotalFees: 10000, FeesPaid: 6000, Tenant: testTenant,
	}
	// failed student, still on the roster
	seedStudent(students, "2024002", 10000, 4000)
	students.students[students.key(testTenant, "2024002")].Name = "Ravi Kumar"

	req := submitRequest()
	req.ExamType = "Final"
	req.Entries[1].Subjects = subjects(20, 25, 15)
	_, err := svc.Submit(context.Background(), testTenant, req)
	require.NoError(t, err)

	rows, err := svc.EditRoster(context.Background(), testTenant, models.CohortQuery{
		Class: "10", Medium: "English", Session: "2024-25", ExamType: "Final",
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	bySource := map[string]models.ResultEditRow{}
	for _, row := range rows {
		bySource[row.Source] = row
	}
	archived := bySource["archive"]
	assert.Equal(t, "2024001", archived.Result.RegistrationNo)
	assert.Equal(t, "11", archived.Class)
	assert.Equal(t, 4000.0, archived.Dues)

	roster := bySource["roster"]
	assert.Equal(t, "2024002", roster.Result.RegistrationNo)
	assert.Equal(t, "10", roster.Class)
	assert.Equal(t, "F", roster.Grade)
}
