package patients

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/citycare-hospital/patient-backend/internal/model"
	"github.com/citycare-hospital/patient-backend/libs/sentryx"
)

// ListLimit caps GET /api/patients; the admin dashboard only shows the most
// recent requests.
const ListLimit = 500

// Store is the appointment collection. Implemented by storage.PatientRepository.
type Store interface {
	Create(ctx context.Context, p *model.Patient) (string, error)
	Get(ctx context.Context, id string) (model.Patient, error)
	List(ctx context.Context, limit int) ([]model.Patient, error)
}

// ReportStore persists an uploaded report file and returns the public path it
// will be served at.
type ReportStore interface {
	Save(filename string, data io.Reader) (string, error)
}

// Notifier is one best-effort notification channel. Errors are contained by
// the dispatch loop and never reach the submitting caller.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, p model.Patient) error
}

type Service struct {
	store     Store
	reports   ReportStore
	notifiers []Notifier
	logger    *slog.Logger
}

func NewService(store Store, reports ReportStore, logger *slog.Logger, notifiers ...Notifier) *Service {
	return &Service{
		store:     store,
		reports:   reports,
		notifiers: notifiers,
		logger:    logger,
	}
}

// Submission carries the raw form fields of an appointment request. Age and
// Date stay strings here; their lenient coercion is the service's job.
type Submission struct {
	Fullname  string
	Phone     string
	Email     string
	Age       string
	Gender    string
	Address   string
	Complaint string
	Doctor    string
	Date      string
	Report    *ReportUpload
}

type ReportUpload struct {
	Filename string
	Data     io.Reader
}

// Submit validates the submission, persists the record, and fires the
// notification channels in the background. The returned record is already
// stored (and listable) by the time Submit returns; notification outcome
// never affects the result.
func (s *Service) Submit(ctx context.Context, sub Submission) (model.Patient, error) {
	fullname := strings.TrimSpace(sub.Fullname)
	phone := strings.TrimSpace(sub.Phone)
	if fullname == "" || phone == "" {
		return model.Patient{}, &ValidationError{Message: "fullname and phone are required"}
	}

	p := model.Patient{
		Fullname:        fullname,
		Phone:           phone,
		Email:           strings.TrimSpace(sub.Email),
		Age:             parseAge(sub.Age),
		Gender:          model.NormalizeGender(strings.TrimSpace(sub.Gender)),
		Address:         strings.TrimSpace(sub.Address),
		Complaint:       strings.TrimSpace(sub.Complaint),
		PreferredDoctor: strings.TrimSpace(sub.Doctor),
		PreferredDate:   parseDate(sub.Date),
	}

	if sub.Report != nil {
		path, err := s.reports.Save(sub.Report.Filename, sub.Report.Data)
		if err != nil {
			return model.Patient{}, &PersistenceError{Err: err}
		}
		p.ReportFile = path
	}

	if _, err := s.store.Create(ctx, &p); err != nil {
		return model.Patient{}, err
	}

	// The caller's response must not wait for (or fail on) notifications.
	go s.dispatchNotifications(context.WithoutCancel(ctx), p)

	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Patient, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]model.Patient, error) {
	return s.store.List(ctx, ListLimit)
}

// dispatchNotifications runs every channel regardless of earlier failures.
// A broken SMTP relay must not silence the SMS sender, and vice versa.
func (s *Service) dispatchNotifications(ctx context.Context, p model.Patient) {
	for _, n := range s.notifiers {
		if err := n.Notify(ctx, p); err != nil {
			s.logger.Error("notification failed",
				"channel", n.Name(),
				"patient_id", p.ID.Hex(),
				"err", err,
			)
			sentryx.CaptureError(err, map[string]interface{}{
				"channel":    n.Name(),
				"patient_id": p.ID.Hex(),
			})
		}
	}
}

// parseAge mirrors the site's permissive handling: malformed numeric input is
// treated as absent rather than rejected.
func parseAge(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDate drops unparsable values instead of rejecting the submission.
func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
