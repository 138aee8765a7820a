// Package tracker keeps the stored medicine list and the registered
// reminders in step across add, edit and delete.
package tracker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/medicine"
	"github.com/gmsas95/medreminder/internal/reminder"
)

// Store is the persistence the tracker needs
type Store interface {
	LoadMedicines() ([]medicine.Medicine, error)
	GetMedicine(id string) (*medicine.Medicine, error)
	SaveMedicine(med medicine.Medicine) error
	DeleteMedicine(id string) error
}

// Reminders schedules and cancels a medicine's notifications
type Reminders interface {
	ScheduleReminders(ctx context.Context, med medicine.Medicine) reminder.BatchResult
	CancelReminders(ctx context.Context, medicineID string) (int, error)
	RescheduleAll(ctx context.Context, meds []medicine.Medicine) []reminder.BatchResult
}

// Result is a saved medicine and, when scheduling ran, what it did
type Result struct {
	Medicine  medicine.Medicine     `json:"medicine"`
	Reminders *reminder.BatchResult `json:"reminders,omitempty"`
}

// Service is the medicine tracker
type Service struct {
	store     Store
	reminders Reminders
	logger    *zap.Logger
}

func NewService(store Store, reminders Reminders, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		reminders: reminders,
		logger:    logger,
	}
}

// Add validates and stores a new medicine, then schedules its reminders
// when notify is set. A scheduling problem never fails the add.
func (s *Service) Add(ctx context.Context, in medicine.Input, notify bool) (Result, error) {
	med, err := medicine.New(in)
	if err != nil {
		return Result{}, err
	}

	if err := s.store.SaveMedicine(med); err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to save medicine")
	}

	s.logger.Info("Medicine added",
		zap.String("medicine_id", med.ID),
		zap.String("name", med.Name))

	result := Result{Medicine: med}
	if notify {
		batch := s.reminders.ScheduleReminders(ctx, med)
		result.Reminders = &batch
	}
	return result, nil
}

// Edit replaces the medicine stored under id. Reminders are rebuilt when
// notify is set and removed otherwise.
func (s *Service) Edit(ctx context.Context, id string, in medicine.Input, notify bool) (Result, error) {
	if _, err := s.Get(id); err != nil {
		return Result{}, err
	}

	med, err := medicine.Build(id, in)
	if err != nil {
		return Result{}, err
	}

	if err := s.store.SaveMedicine(med); err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to save medicine")
	}

	s.logger.Info("Medicine updated", zap.String("medicine_id", id))

	result := Result{Medicine: med}
	if notify {
		batch := s.reminders.ScheduleReminders(ctx, med)
		result.Reminders = &batch
		return result, nil
	}

	if _, err := s.reminders.CancelReminders(ctx, id); err != nil {
		s.logger.Warn("Failed to cancel reminders after edit",
			zap.String("medicine_id", id),
			zap.Error(err))
	}
	return result, nil
}

// Delete cancels a medicine's reminders, then removes it. If cancelling
// fails the medicine is kept so the delete can be retried.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}

	cancelled, err := s.reminders.CancelReminders(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to cancel reminders: %w", err)
	}

	if err := s.store.DeleteMedicine(id); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to delete medicine")
	}

	s.logger.Info("Medicine deleted",
		zap.String("medicine_id", id),
		zap.Int("reminders_cancelled", cancelled))
	return nil
}

// Get returns the medicine with id
func (s *Service) Get(id string) (medicine.Medicine, error) {
	med, err := s.store.GetMedicine(id)
	if err != nil {
		return medicine.Medicine{}, apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to load medicines")
	}
	if med == nil {
		return medicine.Medicine{}, apperrors.New(apperrors.ErrMedicineNotFound.Code, fmt.Sprintf("medicine %s not found", id))
	}
	return *med, nil
}

// List returns the medicines in stored order
func (s *Service) List() ([]medicine.Medicine, error) {
	meds, err := s.store.LoadMedicines()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to load medicines")
	}
	return meds, nil
}

// Reschedule rebuilds the reminders of one stored medicine
func (s *Service) Reschedule(ctx context.Context, id string) (reminder.BatchResult, error) {
	med, err := s.Get(id)
	if err != nil {
		return reminder.BatchResult{}, err
	}
	return s.reminders.ScheduleReminders(ctx, med), nil
}

// CancelReminders removes the reminders of one stored medicine
func (s *Service) CancelReminders(ctx context.Context, id string) (int, error) {
	if _, err := s.Get(id); err != nil {
		return 0, err
	}
	return s.reminders.CancelReminders(ctx, id)
}

// RescheduleAll rebuilds reminders for every stored medicine
func (s *Service) RescheduleAll(ctx context.Context) ([]reminder.BatchResult, error) {
	meds, err := s.List()
	if err != nil {
		return nil, err
	}

	results := s.reminders.RescheduleAll(ctx, meds)
	if err := ctx.Err(); err != nil {
		return results, err
	}

	s.logger.Info("Rescheduled all medicines", zap.Int("count", len(results)))
	return results, nil
}
