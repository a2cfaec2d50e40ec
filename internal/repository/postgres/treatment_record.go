package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type treatmentRecordRepository struct {
	db *sqlx.DB
}

func NewTreatmentRecordRepository(db *sqlx.DB) repository.TreatmentRecordRepository {
	return &treatmentRecordRepository{db: db}
}

func (r *treatmentRecordRepository) Create(ctx context.Context, record *model.TreatmentRecord) error {
	query := `
		INSERT INTO treatment_records (id, patient_id, clinician_id, session_date, session_type, notes, progress, created_at)
		VALUES (:id, :patient_id, :clinician_id, :session_date, :session_type, :notes, :progress, :created_at)
	`
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now().UTC()

	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("failed to create treatment record: %w", err)
	}
	return nil
}

func (r *treatmentRecordRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.TreatmentRecord, error) {
	query := `
		SELECT id, patient_id, clinician_id, session_date, session_type, notes, progress, created_at
		FROM treatment_records
		WHERE patient_id = $1
		ORDER BY session_date DESC
	`
	var records []*model.TreatmentRecord
	if err := r.db.SelectContext(ctx, &records, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list treatment records: %w", err)
	}
	return records, nil
}
