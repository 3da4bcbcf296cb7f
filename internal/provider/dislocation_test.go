package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDislocationClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var creds exportRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "acct", creds.Name)
		assert.Equal(t, "pw", creds.Password)

		rows := []exportRow{
			{WagonNumber: "12345678", WagonType: "gondola", StationCode: "180002",
				StationName: "Brest", Operation: "arrival", OperationAt: "2026-08-30 14:05:00"},
			{WagonNumber: "87654321", WagonType: "tank", StationCode: "180002",
				StationName: "Brest", Operation: "departure"},
			{WagonNumber: "", StationCode: "999999"}, // no wagon number, skipped
		}
		_ = json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	c := NewDislocationClient(srv.URL, "acct", "pw")
	snap, err := c.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Wagons, 2)
	assert.Equal(t, "12345678", snap.Wagons[0].Number)
	assert.Equal(t, "180002", snap.Wagons[0].CurrentStation)
	require.NotNil(t, snap.Wagons[0].LastOperationAt)
	assert.Nil(t, snap.Wagons[1].LastOperationAt)

	// Stations deduplicated by code.
	require.Len(t, snap.Stations, 1)
	assert.Equal(t, "Brest", snap.Stations[0].Name)
}

func TestDislocationClientBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewDislocationClient(srv.URL, "acct", "pw")
	_, err := c.Fetch(context.Background())
	assert.Error(t, err)
}
