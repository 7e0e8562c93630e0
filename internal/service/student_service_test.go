package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyadesk/school-api/internal/models"
	appErrors "github.com/vidyadesk/school-api/pkg/errors"
)

type fakeStudentRepo struct {
	students map[string]*models.Student
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{students: map[string]*models.Student{}}
}

func (f *fakeStudentRepo) key(tenant, reg string) string { return tenant + "/" + reg }

func (f *fakeStudentRepo) FindByRegistration(_ context.Context, tenant, reg string) (*models.Student, error) {
	if st, ok := f.students[f.key(tenant, reg)]; ok {
		copy := *st
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) List(_ context.Context, tenant string, filter models.StudentFilter) ([]models.Student, error) {
	var out []models.Student
	for _, st := range f.students {
		if st.Tenant != tenant {
			continue
		}
		if filter.Class != "" && st.Class != filter.Class {
			continue
		}
		if filter.Medium != "" && st.Medium != filter.Medium {
			continue
		}
		out = append(out, *st)
	}
	return out, nil
}

func (f *fakeStudentRepo) Overview(_ context.Context, tenant string) ([]models.ClassOverview, error) {
	counts := map[string]*models.ClassOverview{}
	for _, st := range f.students {
		if st.Tenant != tenant || st.Class == "Passout" {
			continue
		}
		k := st.Medium + "/" + st.Class + "/" + st.Stream
		if counts[k] == nil {
			counts[k] = &models.ClassOverview{Medium: st.Medium, Class: st.Class, Stream: st.Stream}
		}
		counts[k].Count++
	}
	var out []models.ClassOverview
	for _, c := range counts {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeStudentRepo) Update(_ context.Context, student *models.Student) error {
	k := f.key(student.Tenant, student.RegistrationNo)
	if _, ok := f.students[k]; !ok {
		return sql.ErrNoRows
	}
	copy := *student
	f.students[k] = &copy
	return nil
}

func (f *fakeStudentRepo) Delete(_ context.Context, tenant, reg string) error {
	k := f.key(tenant, reg)
	if _, ok := f.students[k]; !ok {
		return sql.ErrNoRows
	}
	delete(f.students, k)
	return nil
}

func (f *fakeStudentRepo) DeleteMany(_ context.Context, tenant string, regs []string) (int64, error) {
	var n int64
	for _, reg := range regs {
		if _, ok := f.students[f.key(tenant, reg)]; ok {
			delete(f.students, f.key(tenant, reg))
			n++
		}
	}
	return n, nil
}

func (f *fakeStudentRepo) ExistingRegistrations(_ context.Context, tenant string, regs []string) ([]string, error) {
	var out []string
	for _, reg := range regs {
		if _, ok := f.students[f.key(tenant, reg)]; ok {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (f *fakeStudentRepo) SetClassFees(_ context.Context, tenant, class, medium, stream string, fees float64) (int64, error) {
	var n int64
	for _, st := range f.students {
		if st.Tenant == tenant && st.Class == class && st.Medium == medium && (stream == "" || st.Stream == stream) {
			st.TotalFees = fees
			n++
		}
	}
	return n, nil
}

func (f *fakeStudentRepo) InsertMany(_ context.Context, students []models.Student) error {
	for i := range students {
		copy := students[i]
		f.students[f.key(copy.Tenant, copy.RegistrationNo)] = &copy
	}
	return nil
}

type fakeLedger struct {
	repo     *fakeStudentRepo
	receipts []models.FeeReceipt
	nextNo   int64
	err      error
}

func (f *fakeLedger) RegisterStudent(_ context.Context, student *models.Student, receipt *models.FeeReceipt) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.repo.students[f.repo.key(student.Tenant, student.RegistrationNo)]; ok {
		return &pq.Error{Code: "23505"}
	}
	copy := *student
	f.repo.students[f.repo.key(student.Tenant, student.RegistrationNo)] = &copy
	if receipt != nil {
		if f.nextNo == 0 {
			f.nextNo = 1001
		} else {
			f.nextNo++
		}
		receipt.ReceiptNo = f.nextNo
		f.receipts = append(f.receipts, *receipt)
	}
	return nil
}

const testTenant = "Green Valley School"

func newTestStudentService() (*StudentService, *fakeStudentRepo, *fakeLedger) {
	repo := newFakeStudentRepo()
	ledger := &fakeLedger{repo: repo}
	return NewStudentService(repo, ledger, nil, 0, nil, nil), repo, ledger
}

func registerRequest() models.RegisterStudentRequest {
	return models.RegisterStudentRequest{
		RegistrationNo: "2024001",
		Name:           "Asha Verma",
		FatherName:     "R Verma",
		MotherName:     "S Verma",
		Gender:         "Female",
		DOB:            "2010-06-14",
		Class:          "10",
		Medium:         "English",
		ContactNo:      "9876500001",
		Address:        "Ward 4, Green Valley",
		TotalFees:      12000,
		Session:        "2024-25",
	}
}

func TestStudentRegister(t *testing.T) {
	svc, _, _ := newTestStudentService()

	student, receipt, err := svc.Register(context.Background(), testTenant, registerRequest())
	require.NoError(t, err)
	assert.Equal(t, "2024001", student.RegistrationNo)
	assert.Nil(t, receipt)
}

func TestStudentRegisterWithInitialPayment(t *testing.T) {
	svc, _, ledger := newTestStudentService()

	req := registerRequest()
	req.InitialPayment = 3000
	req.PaymentMethod = "CASH"
	student, receipt, err := svc.Register(context.Background(), testTenant, req)
	require.NoError(t, err)
	assert.Equal(t, 3000.0, student.FeesPaid)
	require.NotNil(t, receipt)
	assert.Equal(t, int64(1001), receipt.ReceiptNo)
	assert.Len(t, ledger.receipts, 1)
}

func TestStudentRegisterDuplicate(t *testing.T) {
	svc, _, _ := newTestStudentService()

	_, _, err := svc.Register(context.Background(), testTenant, registerRequest())
	require.NoError(t, err)
	_, _, err = svc.Register(context.Background(), testTenant, registerRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)
}

func TestStudentRegisterStreamRequiredForSenior(t *testing.T) {
	svc, _, _ := newTestStudentService()

	req := registerRequest()
	req.Class = "11"
	_, _, err := svc.Register(context.Background(), testTenant, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req.Stream = "Science"
	_, _, err = svc.Register(context.Background(), testTenant, req)
	assert.NoError(t, err)
}

func TestStudentRegisterDropsStreamForJuniors(t *testing.T) {
	svc, repo, _ := newTestStudentService()

	req := registerRequest()
	req.Class = "5"
	req.Stream = "Science"
	student, _, err := svc.Register(context.Background(), testTenant, req)
	require.NoError(t, err)
	assert.Empty(t, student.Stream)
	assert.Empty(t, repo.students[repo.key(testTenant, "2024001")].Stream)
}

func TestStudentUpdateDropsStreamForJuniors(t *testing.T) {
	svc, repo, _ := newTestStudentService()

	_, _, err := svc.Register(context.Background(), testTenant, registerRequest())
	require.NoError(t, err)

	req := registerRequest()
	update := models.UpdateStudentRequest{
		Name: req.Name, FatherName: req.FatherName, MotherName: req.MotherName,
		Gender: req.Gender, DOB: req.DOB, Class: "9", Medium: req.Medium,
		ContactNo: req.ContactNo, Address: req.Address, Session: req.Session,
		TotalFees: req.TotalFees, Stream: "Commerce",
	}
	student, err := svc.Update(context.Background(), testTenant, "2024001", update)
	require.NoError(t, err)
	assert.Empty(t, student.Stream)
	assert.Empty(t, repo.students[repo.key(testTenant, "2024001")].Stream)
}

func TestStudentRegisterInitialPaymentOverFees(t *testing.T) {
	svc, _, _ := newTestStudentService()

	req := registerRequest()
	req.InitialPayment = 20000
	req.PaymentMethod = "CASH"
	_, _, err := svc.Register(context.Background(), testTenant, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOverpayment.Code, appErrors.FromError(err).Code)
}

func TestStudentUpdateCannotDropTotalBelowPaid(t *testing.T) {
	svc, repo, _ := newTestStudentService()

	req := registerRequest()
	req.InitialPayment = 6000
	req.PaymentMethod = "CASH"
	_, _, err := svc.Register(context.Background(), testTenant, req)
	require.NoError(t, err)
	require.Len(t, repo.students, 1)

	update := models.UpdateStudentRequest{
		Name: req.Name, FatherName: req.FatherName, MotherName: req.MotherName,
		Gender: req.Gender, DOB: req.DOB, Class: req.Class, Medium: req.Medium,
		ContactNo: req.ContactNo, Address: req.Address, Session: req.Session,
		TotalFees: 5000,
	}
	_, err = svc.Update(context.Background(), testTenant, "2024001", update)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOverpayment.Code, appErrors.FromError(err).Code)
}

func TestStudentImportRoster(t *testing.T) {
	svc, _, _ := newTestStudentService()

	_, _, err := svc.Register(context.Background(), testTenant, registerRequest())
	require.NoError(t, err)

	csv := strings.Join([]string{
		"registration_no,student_name,father_name,mother_name,gender,dob,class,stream,medium,contact_no,address,total_fees,session",
		"2024001,Asha Verma,R Verma,S Verma,Female,2010-06-14,10,,English,9876500001,Ward 4,12000,2024-25",
		"2024002,Ravi Kumar,M Kumar,L Kumar,Male,2011-02-01,9,,Hindi,9876500002,Ward 5,10000,2024-25",
		"2024003,Broken Row,,,,,,,,,,,",
	}, "\n")

	report, err := svc.ImportRoster(context.Background(), testTenant, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Len(t, report.Skipped, 2)
}

func TestStudentOverviewSkipsPassouts(t *testing.T) {
	svc, repo, _ := newTestStudentService()

	repo.students["t/1"] = &models.Student{Tenant: testTenant, RegistrationNo: "1", Class: "10", Medium: "English"}
	repo.students["t/2"] = &models.Student{Tenant: testTenant, RegistrationNo: "2", Class: "Passout", Medium: "English"}

	overview, err := svc.Overview(context.Background(), testTenant)
	require.NoError(t, err)
	require.Len(t, overview, 1)
	assert.Equal(t, "10", overview[0].Class)
}
