package ticket

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/model"
)

func TestRender(t *testing.T) {
	confirmed := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	d := model.ReservationDetail{
		Reservation: model.Reservation{ID: 10, EventID: 4, UserID: 3, NumberOfSeats: 2,
			Status: model.ReservationConfirmed, ConfirmedAt: &confirmed},
		Event: &model.EventSummary{ID: 4, Title: "Café night", Location: "Berlin", Date: confirmed.Add(72 * time.Hour)},
		User:  &model.UserSummary{ID: 3, Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"},
	}

	pdf, err := Render(d)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	assert.Greater(t, len(pdf), 1000)
}

func TestRenderNeedsSummaries(t *testing.T) {
	_, err := Render(model.ReservationDetail{Reservation: model.Reservation{ID: 1}})
	assert.Error(t, err)
}

func TestSerialIsStable(t *testing.T) {
	assert.Equal(t, "RESERVATION:10:4", QRPayload(10, 4))
	assert.Equal(t, Serial(10, 4), Serial(10, 4))
	assert.NotEqual(t, Serial(10, 4), Serial(11, 4))
}
