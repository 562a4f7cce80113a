package repository

import (
	"context"
	"fmt"

	"github.com/UnknownOlympus/rdgeo/internal/models"
)

// FetchTasksForGeocoding retrieves a list of addresses that require geocoding.
// It returns addresses that have a NULL latitude, have fewer than 5 geocoding attempts,
// and have a non-empty postcode. The results are ordered by creation date and limited to the specified count.
func (r *Repository) FetchTasksForGeocoding(ctx context.Context, limit int) ([]models.Task, error) {
	var tasks []models.Task
	query := `
		SELECT address_id, postcode, house_number
		FROM public.addresses
		WHERE
			latitude IS NULL
			AND geocoding_attempts < 5
			AND postcode IS NOT NULL AND postcode <> ''
		ORDER BY created_at ASC
		LIMIT $1;
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses without location: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var task models.Task
		if errScan := rows.Scan(&task.ID, &task.Address.Postcode, &task.Address.HouseNumber); errScan != nil {
			return nil, fmt.Errorf("failed to scan address: %w", errScan)
		}
		r.log.DebugContext(ctx, "A new address without location has been received.",
			"ID", task.ID, "Address", task.Address.String())
		tasks = append(tasks, task)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return tasks, nil
}

// UpdateTaskLocation stores the RD and WGS84 coordinates of an address identified by taskID.
// It sets the geocoding_error field to NULL.
func (r *Repository) UpdateTaskLocation(ctx context.Context, taskID int, loc models.Location) error {
	query := `
		UPDATE addresses
		SET
			rd_x = $1,
			rd_y = $2,
			latitude = $3,
			longitude = $4,
			geocoding_error = NULL
		WHERE
			address_id = $5;
	`

	_, err := r.db.Exec(ctx, query, loc.RD.X, loc.RD.Y, loc.WGS84.Latitude, loc.WGS84.Longitude, taskID)
	if err != nil {
		return fmt.Errorf("failed to update address location: %w", err)
	}

	return nil
}

// IncrementFailureCount increments the geocoding attempt count for the address
// identified by taskID and records the error message.
func (r *Repository) IncrementFailureCount(ctx context.Context, taskID int, errMsg string) error {
	query := `
		UPDATE addresses
		SET
			geocoding_attempts = geocoding_attempts + 1,
			geocoding_error = $1
		WHERE address_id = $2;
	`

	_, err := r.db.Exec(ctx, query, errMsg, taskID)
	if err != nil {
		return fmt.Errorf("failed to update geocoding error and number of attempts: %w", err)
	}

	return nil
}
