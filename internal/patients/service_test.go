package patients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/citycare-hospital/patient-backend/internal/model"
)

type fakeStore struct {
	mu         sync.Mutex
	records    []model.Patient
	failCreate error
	base       time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{base: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeStore) Create(_ context.Context, p *model.Patient) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return "", &PersistenceError{Err: f.failCreate}
	}
	p.ID = primitive.NewObjectID()
	p.CreatedAt = f.base.Add(time.Duration(len(f.records)) * time.Second)
	if p.Gender == "" {
		p.Gender = model.GenderOther
	}
	f.records = append(f.records, *p)
	return p.ID.Hex(), nil
}

func (f *fakeStore) Get(_ context.Context, id string) (model.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.ID.Hex() == id {
			return rec, nil
		}
	}
	return model.Patient{}, ErrNotFound
}

func (f *fakeStore) List(_ context.Context, limit int) ([]model.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Patient, len(f.records))
	copy(out, f.records)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeReports struct {
	saved []string
}

func (f *fakeReports) Save(filename string, data io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, data)
	f.saved = append(f.saved, filename)
	return "/uploads/1756000000000_" + filename, nil
}

type fakeNotifier struct {
	name string
	err  error
	done chan model.Patient
}

func newFakeNotifier(name string, err error) *fakeNotifier {
	return &fakeNotifier{name: name, err: err, done: make(chan model.Patient, 8)}
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(_ context.Context, p model.Patient) error {
	f.done <- p
	return f.err
}

func (f *fakeNotifier) wait(t *testing.T) model.Patient {
	t.Helper()
	select {
	case p := <-f.done:
		return p
	case <-time.After(2 * time.Second):
		t.Fatalf("notifier %s was never called", f.name)
		return model.Patient{}
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubmit_RequiresFullnameAndPhone(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeReports{}, testLogger())

	cases := []Submission{
		{},
		{Fullname: "A. Kumar"},
		{Phone: "9876543210"},
		{Fullname: "   ", Phone: "9876543210"},
		{Fullname: "A. Kumar", Phone: "\t "},
	}
	for _, sub := range cases {
		_, err := svc.Submit(context.Background(), sub)
		if !IsValidation(err) {
			t.Fatalf("expected validation error for %+v, got %v", sub, err)
		}
	}
	if store.count() != 0 {
		t.Fatalf("no record should be created, store has %d", store.count())
	}
}

func TestSubmit_CreatesRecord(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeReports{}, testLogger())

	p, err := svc.Submit(context.Background(), Submission{
		Fullname: "A. Kumar",
		Phone:    "9876543210",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if p.ID.IsZero() {
		t.Fatal("expected an assigned id")
	}
	if p.CreatedAt.IsZero() {
		t.Fatal("expected createdAt to be set")
	}
	if p.ReportFile != "" {
		t.Fatalf("expected no report file, got %q", p.ReportFile)
	}
	if p.Gender != model.GenderOther {
		t.Fatalf("expected gender to default to Other, got %q", p.Gender)
	}

	records, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].ID != p.ID {
		t.Fatalf("listed record id %s != submitted %s", records[0].ID.Hex(), p.ID.Hex())
	}
}

func TestSubmit_ListNewestFirst(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeReports{}, testLogger())

	var last model.Patient
	for _, name := range []string{"First", "Second", "Third"} {
		p, err := svc.Submit(context.Background(), Submission{Fullname: name, Phone: "1"})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		last = p
	}

	records, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if records[0].ID != last.ID {
		t.Fatalf("expected newest record first, got %q", records[0].Fullname)
	}
	for i := 1; i < len(records); i++ {
		if records[i].CreatedAt.After(records[i-1].CreatedAt) {
			t.Fatal("records not ordered by descending createdAt")
		}
	}
}

func TestList_CapsAtLimit(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < ListLimit+1; i++ {
		store.records = append(store.records, model.Patient{
			ID:        primitive.NewObjectID(),
			Fullname:  fmt.Sprintf("Patient %d", i),
			Phone:     "1",
			Gender:    model.GenderOther,
			CreatedAt: store.base.Add(time.Duration(i) * time.Second),
		})
	}
	svc := NewService(store, &fakeReports{}, testLogger())

	records, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != ListLimit {
		t.Fatalf("expected exactly %d records, got %d", ListLimit, len(records))
	}
	if records[0].Fullname != fmt.Sprintf("Patient %d", ListLimit) {
		t.Fatalf("expected the newest record first, got %q", records[0].Fullname)
	}
	// The oldest record is the one that falls off the capped page.
	for _, rec := range records {
		if rec.Fullname == "Patient 0" {
			t.Fatal("capped list should drop the oldest record")
		}
	}
}

func TestSubmit_UnparsableDateDropped(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeReports{}, testLogger())

	p, err := svc.Submit(context.Background(), Submission{
		Fullname: "A. Kumar",
		Phone:    "9876543210",
		Date:     "not-a-date",
	})
	if err != nil {
		t.Fatalf("Submit should not fail on a bad date: %v", err)
	}
	if p.PreferredDate != nil {
		t.Fatalf("expected preferredDate to be absent, got %v", p.PreferredDate)
	}
}

func TestSubmit_FieldCoercion(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeReports{}, testLogger())

	p, err := svc.Submit(context.Background(), Submission{
		Fullname: "  B. Rahman ",
		Phone:    " 555 ",
		Age:      "abc",
		Gender:   "unknown-value",
		Date:     "2026-09-15",
		Doctor:   "Dr. Sen",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if p.Fullname != "B. Rahman" || p.Phone != "555" {
		t.Fatalf("expected trimmed fields, got %q / %q", p.Fullname, p.Phone)
	}
	if p.Age != 0 {
		t.Fatalf("malformed age should be dropped, got %d", p.Age)
	}
	if p.Gender != model.GenderOther {
		t.Fatalf("unknown gender should default to Other, got %q", p.Gender)
	}
	if p.PreferredDate == nil || p.PreferredDate.Day() != 15 {
		t.Fatalf("expected parsed preferredDate, got %v", p.PreferredDate)
	}
}

func TestSubmit_StoresAttachment(t *testing.T) {
	reportStore := &fakeReports{}
	svc := NewService(newFakeStore(), reportStore, testLogger())

	p, err := svc.Submit(context.Background(), Submission{
		Fullname: "A. Kumar",
		Phone:    "9876543210",
		Report: &ReportUpload{
			Filename: "my report.pdf",
			Data:     strings.NewReader("%PDF-1.4"),
		},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if len(reportStore.saved) != 1 {
		t.Fatalf("expected 1 saved report, got %d", len(reportStore.saved))
	}
	if !strings.HasPrefix(p.ReportFile, "/uploads/") {
		t.Fatalf("expected public upload path, got %q", p.ReportFile)
	}
}

func TestSubmit_PersistenceFailureAborts(t *testing.T) {
	store := newFakeStore()
	store.failCreate = errors.New("connection refused")
	notifier := newFakeNotifier("email", nil)
	svc := NewService(store, &fakeReports{}, testLogger(), notifier)

	_, err := svc.Submit(context.Background(), Submission{Fullname: "A", Phone: "1"})
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected persistence error, got %v", err)
	}

	select {
	case <-notifier.done:
		t.Fatal("no notification should fire when persistence fails")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubmit_NotifierFailureIsContained(t *testing.T) {
	email := newFakeNotifier("email", errors.New("smtp: connection refused"))
	sms := newFakeNotifier("sms", nil)
	svc := NewService(newFakeStore(), &fakeReports{}, testLogger(), email, sms)

	p, err := svc.Submit(context.Background(), Submission{Fullname: "A. Kumar", Phone: "9876543210"})
	if err != nil {
		t.Fatalf("Submit must not fail on notifier errors: %v", err)
	}

	// Both channels run despite the email failure, and each sees the
	// persisted record.
	if got := email.wait(t); got.ID != p.ID {
		t.Fatalf("email notifier saw wrong record %s", got.ID.Hex())
	}
	if got := sms.wait(t); got.ID != p.ID {
		t.Fatalf("sms notifier saw wrong record %s", got.ID.Hex())
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeReports{}, testLogger())

	_, err := svc.Get(context.Background(), primitive.NewObjectID().Hex())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	if parseDate("") != nil {
		t.Fatal("empty date should be nil")
	}
	if parseDate("yesterday-ish") != nil {
		t.Fatal("unparsable date should be nil")
	}
	got := parseDate("2026-09-15T10:30:00Z")
	if got == nil || !got.Equal(time.Date(2026, 9, 15, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("RFC3339 parse failed: %v", got)
	}
	if parseDate("2026-09-15") == nil {
		t.Fatal("date-only layout should parse")
	}
	if parseDate("2026-09-15T10:30") == nil {
		t.Fatal("datetime-local layout should parse")
	}
}

func TestParseAge(t *testing.T) {
	cases := map[string]int{
		"":     0,
		"abc":  0,
		"-3":   0,
		"42":   42,
		" 18 ": 18,
	}
	for in, want := range cases {
		if got := parseAge(in); got != want {
			t.Fatalf("parseAge(%q) = %d, want %d", in, got, want)
		}
	}
}
