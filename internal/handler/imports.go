package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/expeditor/backoffice/internal/middleware"
	"github.com/expeditor/backoffice/internal/model"
	"github.com/expeditor/backoffice/internal/provider"
	"github.com/expeditor/backoffice/internal/queue"
	"github.com/expeditor/backoffice/internal/repository"
	queue_publisher "github.com/expeditor/backoffice/internal/service"
)

// ImportHandler receives bulk dictionary loads: accounting exports pushed
// from 1C and wagon tracking snapshots pulled from the railway data
// provider.
type ImportHandler struct {
	Imports      *repository.ImportRepo
	Fetcher      provider.DislocationFetcher
	ProviderName string
}

func NewImportHandler(imports *repository.ImportRepo, fetcher provider.DislocationFetcher, providerName string) *ImportHandler {
	return &ImportHandler{Imports: imports, Fetcher: fetcher, ProviderName: providerName}
}

type oneCCurrency struct {
	GUID     string `json:"guid"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Code     string `json:"code"`
}
type oneCCountry struct {
	GUID     string `json:"guid"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Code     string `json:"code"`
}
type oneCImportReq struct {
	Currencies []oneCCurrency `json:"currencies"`
	Countries  []oneCCountry  `json:"countries"`
}

// ImportOneC applies one 1C export in a single transaction. Every row must
// carry a well-formed GUID; the whole batch is rejected on the first bad
// one, so 1C can resend it after fixing the export.
func (h *ImportHandler) ImportOneC(c echo.Context) error {
	var req oneCImportReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.Currencies) == 0 && len(req.Countries) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "empty payload"})
	}

	currencies := make([]model.Currency, 0, len(req.Currencies))
	for i, row := range req.Currencies {
		g := strings.TrimSpace(row.GUID)
		if _, err := uuid.Parse(g); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": fmt.Sprintf("currencies[%d]: bad guid %q", i, row.GUID),
			})
		}
		currencies = append(currencies, model.Currency{
			GUID: g, Name: row.Name, FullName: row.FullName, Code: row.Code,
		})
	}
	countries := make([]model.Country, 0, len(req.Countries))
	for i, row := range req.Countries {
		g := strings.TrimSpace(row.GUID)
		if _, err := uuid.Parse(g); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": fmt.Sprintf("countries[%d]: bad guid %q", i, row.GUID),
			})
		}
		countries = append(countries, model.Country{
			GUID: g, Name: row.Name, FullName: row.FullName, Code: row.Code,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	nCur, nCou, err := h.Imports.Apply1C(ctx, currencies, countries)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "import failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"currencies": nCur, "countries": nCou})
}

// ImportDislocation pulls the current tracking snapshot from the provider,
// applies it in one transaction and announces the result on the broker.
// The publish is best effort: a broker outage does not undo the import.
func (h *ImportHandler) ImportDislocation(c echo.Context) error {
	if h.Fetcher == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "tracking provider not configured"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Minute)
	defer cancel()

	snap, err := h.Fetcher.Fetch(ctx)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "provider fetch failed"})
	}
	if len(snap.Wagons) == 0 {
		return c.JSON(http.StatusOK, echo.Map{"wagons": 0, "stations": 0})
	}

	nWag, nSta, err := h.Imports.ApplyDislocation(ctx, snap.Wagons, snap.Stations)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "import failed"})
	}

	uid, _ := c.Get(middleware.CtxUserID).(uint64)
	_ = queue_publisher.PublishDislocationImported(ctx, queue.DislocationImportedEvent{
		Provider:    h.ProviderName,
		Wagons:      nWag,
		Stations:    nSta,
		RequestedBy: uid,
		ImportedAt:  time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{"wagons": nWag, "stations": nSta})
}
