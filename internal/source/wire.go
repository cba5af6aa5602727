package source

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"sewamonitor/internal/models"
)

// dashboardPayload mirrors the backend's dashboard response.
type dashboardPayload struct {
	AvailableUnits []string      `json:"availableUnits"`
	Rentals        *rentalGroups `json:"rentals"`
}

type rentalGroups struct {
	Active   []rentalDTO `json:"active"`
	Upcoming []rentalDTO `json:"upcoming"`
	Finish   []rentalDTO `json:"finish"`
}

// envelope accepts both the bare payload and {"data": payload}.
type envelope struct {
	Data *dashboardPayload `json:"data"`
	dashboardPayload
}

type rentalDTO struct {
	ID            json.RawMessage `json:"id"`
	Client        string          `json:"client"`
	Unit          string          `json:"unit"`
	Start         string          `json:"waktu_mulai"`
	End           string          `json:"waktu_selesai"`
	Price         json.RawMessage `json:"price"`
	BookingSource string          `json:"booking_source"`
}

// DecodeSnapshot parses a dashboard response body.
func DecodeSnapshot(body []byte) (*models.Snapshot, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", models.ErrMalformedSnapshot, err)
	}

	payload := &env.dashboardPayload
	if env.Data != nil {
		payload = env.Data
	}

	if payload.AvailableUnits == nil {
		return nil, fmt.Errorf("%w: availableUnits missing", models.ErrMalformedSnapshot)
	}
	if payload.Rentals == nil {
		return nil, fmt.Errorf("%w: rentals missing", models.ErrMalformedSnapshot)
	}

	snap := &models.Snapshot{AvailableUnits: payload.AvailableUnits}
	var err error
	if snap.Active, err = convertRentals(payload.Rentals.Active); err != nil {
		return nil, err
	}
	if snap.Upcoming, err = convertRentals(payload.Rentals.Upcoming); err != nil {
		return nil, err
	}
	if snap.Finished, err = convertRentals(payload.Rentals.Finish); err != nil {
		return nil, err
	}
	return snap, nil
}

func convertRentals(in []rentalDTO) ([]models.Rental, error) {
	out := make([]models.Rental, 0, len(in))
	for i, dto := range in {
		r, err := dto.toModel()
		if err != nil {
			return nil, fmt.Errorf("%w: rental #%d: %v", models.ErrMalformedSnapshot, i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (d rentalDTO) toModel() (models.Rental, error) {
	id := rawScalar(d.ID)
	if id == "" {
		return models.Rental{}, fmt.Errorf("id missing")
	}

	start, err := models.ParseTimestamp(d.Start)
	if err != nil {
		return models.Rental{}, fmt.Errorf("id %s waktu_mulai: %w", id, err)
	}
	end, err := models.ParseTimestamp(d.End)
	if err != nil {
		return models.Rental{}, fmt.Errorf("id %s waktu_selesai: %w", id, err)
	}

	var price float64
	if raw := rawScalar(d.Price); raw != "" {
		// Price is display-only; an unreadable value is shown as zero.
		price, _ = strconv.ParseFloat(raw, 64)
	}

	return models.Rental{
		ID:            id,
		Client:        strings.TrimSpace(d.Client),
		Unit:          strings.TrimSpace(d.Unit),
		Start:         start,
		End:           end,
		Price:         price,
		BookingSource: models.NormalizeSource(d.BookingSource),
	}, nil
}

// rawScalar renders a JSON string or number as plain text.
func rawScalar(raw json.RawMessage) string {
	value := strings.TrimSpace(string(raw))
	if value == "" || value == "null" {
		return ""
	}
	if unquoted, err := strconv.Unquote(value); err == nil {
		return strings.TrimSpace(unquoted)
	}
	return value
}
