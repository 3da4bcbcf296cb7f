// Package provider holds clients for external data suppliers.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/expeditor/backoffice/internal/model"
)

// Snapshot is one wagon tracking export: the current position of every
// tracked wagon plus the stations referenced by those positions.
type Snapshot struct {
	Wagons   []model.Wagon
	Stations []model.Station
}

// DislocationFetcher pulls a tracking snapshot from a railway data
// provider. The HTTP client is the production implementation; tests stub
// the interface.
type DislocationFetcher interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// DislocationClient talks to the provider's export endpoint. The endpoint
// takes account credentials in the request body and answers with the full
// wagon list.
type DislocationClient struct {
	URL      string
	Name     string
	Password string
	HTTP     *http.Client
}

func NewDislocationClient(url, name, password string) *DislocationClient {
	return &DislocationClient{
		URL:      url,
		Name:     name,
		Password: password,
		HTTP:     &http.Client{Timeout: 60 * time.Second},
	}
}

type exportRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type exportRow struct {
	WagonNumber string `json:"wagon_number"`
	WagonType   string `json:"wagon_type"`
	StationGUID string `json:"station_guid"`
	StationName string `json:"station_name"`
	StationCode string `json:"station_code"`
	Operation   string `json:"operation"`
	OperationAt string `json:"operation_datetime"`
}

// Fetch posts the account credentials and maps the provider rows into
// wagons and stations. Stations are deduplicated by code; rows without a
// wagon number are skipped.
func (c *DislocationClient) Fetch(ctx context.Context) (Snapshot, error) {
	body, err := json.Marshal(exportRequest{Name: c.Name, Password: c.Password})
	if err != nil {
		return Snapshot{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return Snapshot{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var rows []exportRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return Snapshot{}, fmt.Errorf("decode provider response: %w", err)
	}

	var snap Snapshot
	seen := make(map[string]bool)
	for _, row := range rows {
		if row.WagonNumber == "" {
			continue
		}
		w := model.Wagon{
			Number:         row.WagonNumber,
			TypeName:       row.WagonType,
			CurrentStation: row.StationCode,
			LastOperation:  row.Operation,
		}
		if t, err := time.Parse("2006-01-02 15:04:05", row.OperationAt); err == nil {
			w.LastOperationAt = &t
		}
		snap.Wagons = append(snap.Wagons, w)

		if row.StationCode != "" && !seen[row.StationCode] {
			seen[row.StationCode] = true
			snap.Stations = append(snap.Stations, model.Station{
				GUID: row.StationGUID,
				Name: row.StationName,
				Code: row.StationCode,
			})
		}
	}
	return snap, nil
}
