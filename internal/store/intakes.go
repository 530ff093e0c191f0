package store

import (
	"fmt"
	"time"

	"github.com/lazypower/caffeine/internal/intake"
)

// DB implements intake.Journal.
var _ intake.Journal = (*DB)(nil)

// SaveIntake appends an intake to the journal. Saving an id twice is a no-op.
func (db *DB) SaveIntake(in intake.Intake) error {
	if !intake.ValidAmount(in.AmountMg) {
		return fmt.Errorf("save intake %s: %w", in.ID, intake.ErrInvalidAmount)
	}
	_, err := db.Exec(`
		INSERT INTO intakes (id, taken_at, amount_mg, label)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, in.ID, in.TakenAt.UnixNano(), in.AmountMg, in.Label)
	if err != nil {
		return fmt.Errorf("save intake: %w", err)
	}
	return nil
}

// DeleteIntake removes an intake by id. Unknown ids are not an error.
func (db *DB) DeleteIntake(id string) error {
	if _, err := db.Exec(`DELETE FROM intakes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete intake: %w", err)
	}
	return nil
}

// LoadIntakes returns every journaled intake ordered by taken_at, ties in
// the order they were saved.
func (db *DB) LoadIntakes() ([]intake.Intake, error) {
	rows, err := db.Query(`
		SELECT id, taken_at, amount_mg, label
		FROM intakes ORDER BY taken_at, seq
	`)
	if err != nil {
		return nil, fmt.Errorf("load intakes: %w", err)
	}
	defer rows.Close()

	var out []intake.Intake
	for rows.Next() {
		var in intake.Intake
		var takenAt int64
		if err := rows.Scan(&in.ID, &takenAt, &in.AmountMg, &in.Label); err != nil {
			return nil, fmt.Errorf("scan intake: %w", err)
		}
		in.TakenAt = time.Unix(0, takenAt)
		out = append(out, in)
	}
	return out, rows.Err()
}

// CountIntakes returns the number of journaled intakes.
func (db *DB) CountIntakes() (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM intakes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count intakes: %w", err)
	}
	return n, nil
}
