package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/campusevents/apiserver/internal/store"
	"github.com/campusevents/apiserver/internal/storage"
	"github.com/campusevents/apiserver/types"
	"github.com/google/uuid"
)

// ChannelRegistrationCancelled is the broker channel cancellations publish to.
const ChannelRegistrationCancelled = "registration.cancelled"

// RegistrationRepository defines the registration operations outside the
// admission path: cancellation, attendance, listing and analytics.
type RegistrationRepository interface {
	FindActive(ctx context.Context, userID, eventID int) (types.Registration, error)
	Cancel(ctx context.Context, userID, eventID int) error
	MarkAttendance(ctx context.Context, registrationID int64) error
	ListByEvent(ctx context.Context, eventID int) ([]types.Registration, error)
	ListByUser(ctx context.Context, userID int) ([]types.Registration, error)
	Participation(ctx context.Context) ([]store.ParticipationRow, error)
}

// RegistrationService covers registration management after admission.
type RegistrationService struct {
	repo      RegistrationRepository
	users     AdmissionUserRepository
	publisher Publisher
	storage   *storage.Storage
}

func NewRegistrationService(
	repo RegistrationRepository,
	users AdmissionUserRepository,
	publisher Publisher,
	objectStorage *storage.Storage,
) *RegistrationService {
	return &RegistrationService{
		repo:      repo,
		users:     users,
		publisher: publisher,
		storage:   objectStorage,
	}
}

// Cancel withdraws the user's active registration and frees the seat.
func (s *RegistrationService) Cancel(ctx context.Context, userID, eventID int) error {
	reg, err := s.repo.FindActive(ctx, userID, eventID)
	if err != nil {
		return err
	}
	if err := s.repo.Cancel(ctx, userID, eventID); err != nil {
		return err
	}

	if s.publisher != nil {
		reg.Status = types.RegistrationCancelled
		if data, err := json.Marshal(reg); err == nil {
			_, _ = s.publisher.Publish(ctx, ChannelRegistrationCancelled, data, map[string]string{
				"event": "registration.cancelled",
			})
		}
	}
	return nil
}

// MarkAttendance records the user's presence at the event.
func (s *RegistrationService) MarkAttendance(ctx context.Context, userID, eventID int) (types.Registration, error) {
	reg, err := s.repo.FindActive(ctx, userID, eventID)
	if err != nil {
		return types.Registration{}, err
	}
	if err := s.repo.MarkAttendance(ctx, reg.ID); err != nil {
		return types.Registration{}, err
	}
	now := time.Now()
	reg.Attended = true
	reg.AttendedAt = &now
	return reg, nil
}

func (s *RegistrationService) ListByEvent(ctx context.Context, eventID int) ([]types.Registration, error) {
	return s.repo.ListByEvent(ctx, eventID)
}

func (s *RegistrationService) ListByUser(ctx context.Context, userID int) ([]types.Registration, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *RegistrationService) Participation(ctx context.Context) ([]store.ParticipationRow, error) {
	return s.repo.Participation(ctx)
}

// ExportCSV renders an event's registrations as CSV. When object storage is
// configured a copy is archived under exports/ and its key returned.
func (s *RegistrationService) ExportCSV(ctx context.Context, eventID int) ([]byte, string, error) {
	regs, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"registration_id", "user_id", "username", "name", "department", "status", "attended", "registered_at"})
	for _, reg := range regs {
		record := []string{
			strconv.FormatInt(reg.ID, 10),
			strconv.Itoa(reg.UserID),
			"", "", "",
			string(reg.Status),
			strconv.FormatBool(reg.Attended),
			reg.RegisteredAt.UTC().Format(time.RFC3339),
		}
		if user, err := s.users.GetByID(ctx, reg.UserID); err == nil {
			record[2] = user.Username
			record[3] = user.Name
			record[4] = user.Department
		}
		if err := w.Write(record); err != nil {
			return nil, "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}

	var key string
	if s.storage != nil {
		key = fmt.Sprintf("exports/%d/%s.csv", eventID, uuid.NewString())
		data := buf.Bytes()
		if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "text/csv"); err != nil {
			// The caller still gets the CSV; archiving is best effort.
			key = ""
		}
	}

	return buf.Bytes(), key, nil
}
