package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/expeditor/backoffice/internal/model"
	"github.com/expeditor/backoffice/internal/repository"
)

// DictionaryHandler serves the reference data the back office operates on:
// currencies, countries, banks, railway stations, wagons and contracts.
// Most of these are read-only through the API and refreshed by the import
// endpoints; currencies and banks additionally allow manual corrections.
type DictionaryHandler struct {
	Currencies *repository.CurrencyRepo
	Countries  *repository.CountryRepo
	Banks      *repository.BankRepo
	Stations   *repository.StationRepo
	Wagons     *repository.WagonRepo
	Contracts  *repository.ContractRepo
}

func NewDictionaryHandler(cur *repository.CurrencyRepo, cou *repository.CountryRepo,
	b *repository.BankRepo, st *repository.StationRepo, w *repository.WagonRepo,
	con *repository.ContractRepo) *DictionaryHandler {
	return &DictionaryHandler{
		Currencies: cur, Countries: cou, Banks: b,
		Stations: st, Wagons: w, Contracts: con,
	}
}

type currencyReq struct {
	GUID     string `json:"guid"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Code     string `json:"code"`
}

type bankReq struct {
	GUID    string `json:"guid"`
	Name    string `json:"name"`
	BIC     string `json:"bic"`
	Address string `json:"address"`
}

func dictCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// ----- currencies -----

func (h *DictionaryHandler) ListCurrencies(c echo.Context) error {
	ctx, cancel := dictCtx(c)
	defer cancel()
	offset, limit := pageParams(c)
	out, err := h.Currencies.List(ctx, offset, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list currencies failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"currencies": out})
}

func (h *DictionaryHandler) GetCurrency(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dictCtx(c)
	defer cancel()
	cur, err := h.Currencies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "currency not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load currency failed"})
	}
	return c.JSON(http.StatusOK, cur)
}

func (h *DictionaryHandler) CreateCurrency(c echo.Context) error {
	var req currencyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/code required"})
	}
	ctx, cancel := dictCtx(c)
	defer cancel()
	id, err := h.Currencies.Create(ctx, model.Currency{
		GUID: req.GUID, Name: req.Name, FullName: req.FullName, Code: req.Code,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "currency already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create currency failed"})
	}
	cur, err := h.Currencies.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load currency failed"})
	}
	return c.JSON(http.StatusCreated, cur)
}

func (h *DictionaryHandler) UpdateCurrency(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req currencyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := dictCtx(c)
	defer cancel()
	err = h.Currencies.Update(ctx, model.Currency{
		ID: id, Name: req.Name, FullName: req.FullName, Code: req.Code,
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "currency not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "currency code already exists"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update currency failed"})
	}
	cur, err := h.Currencies.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load currency failed"})
	}
	return c.JSON(http.StatusOK, cur)
}

func (h *DictionaryHandler) DeleteCurrency(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dictCtx(c)
	defer cancel()
	switch err := h.Currencies.Delete(ctx, id); {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "currency not found"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete currency failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- countries -----

func (h *DictionaryHandler) ListCountries(c echo.Context) error {
	ctx, cancel := dictCtx(c)
	defer cancel()
	offset, limit := pageParams(c)
	out, err := h.Countries.List(ctx, offset, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list countries failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"countries": out})
}

func (h *DictionaryHandler) GetCountry(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dictCtx(c)
	defer cancel()
	cou, err := h.Countries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "country not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load country failed"})
	}
	return c.JSON(http.StatusOK, cou)
}

// ----- banks -----

func (h *DictionaryHandler) ListBanks(c echo.Context) error {
	ctx, cancel := dictCtx(c)
	defer cancel()
	offset, limit := pageParams(c)
	out, err := h.Banks.List(ctx, offset, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list banks failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"banks": out})
}

func (h *DictionaryHandler) GetBank(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dictCtx(c)
	defer cancel()
	b, err := h.Banks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bank not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load bank failed"})
	}
	return c.JSON(http.StatusOK, b)
}

func (h *DictionaryHandler) CreateBank(c echo.Context) error {
	var req bankReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	ctx, cancel := dictCtx(c)
	defer cancel()
	id, err := h.Banks.Create(ctx, model.Bank{
		GUID: req.GUID, Name: req.Name, BIC: req.BIC, Address: req.Address,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "bank already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create bank failed"})
	}
	b, err := h.Banks.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load bank failed"})
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *DictionaryHandler) UpdateBank(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req bankReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := dictCtx(c)
	defer cancel()
	err = h.Banks.Update(ctx, model.Bank{
		ID: id, Name: req.Name, BIC: req.BIC, Address: req.Address,
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bank not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "bank already exists"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update bank failed"})
	}
	b, err := h.Banks.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load bank failed"})
	}
	return c.JSON(http.StatusOK, b)
}

func (h *DictionaryHandler) DeleteBank(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dictCtx(c)
	defer cancel()
	switch err := h.Banks.Delete(ctx, id); {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bank not found"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete bank failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- stations, wagons, contracts -----

func (h *DictionaryHandler) ListStations(c echo.Context) error {
	ctx, cancel := dictCtx(c)
	defer cancel()
	offset, limit := pageParams(c)
	out, err := h.Stations.List(ctx, offset, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list stations failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"stations": out})
}

func (h *DictionaryHandler) GetStation(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dictCtx(c)
	defer cancel()
	s, err := h.Stations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load station failed"})
	}
	return c.JSON(http.StatusOK, s)
}

func (h *DictionaryHandler) ListWagons(c echo.Context) error {
	ctx, cancel := dictCtx(c)
	defer cancel()
	offset, limit := pageParams(c)
	out, err := h.Wagons.List(ctx, offset, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list wagons failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"wagons": out})
}

func (h *DictionaryHandler) GetWagon(c echo.Context) error {
	number := strings.TrimSpace(c.Param("number"))
	if number == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "wagon number required"})
	}
	ctx, cancel := dictCtx(c)
	defer cancel()
	w, err := h.Wagons.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "wagon not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load wagon failed"})
	}
	return c.JSON(http.StatusOK, w)
}

func (h *DictionaryHandler) ListContracts(c echo.Context) error {
	ctx, cancel := dictCtx(c)
	defer cancel()
	offset, limit := pageParams(c)
	out, err := h.Contracts.List(ctx, offset, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list contracts failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"contracts": out})
}

func (h *DictionaryHandler) GetContract(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dictCtx(c)
	defer cancel()
	con, err := h.Contracts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "contract not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load contract failed"})
	}
	return c.JSON(http.StatusOK, con)
}
