package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rent-monitor-service/internal/contextkeys"
	"rent-monitor-service/internal/contracts"
	"rent-monitor-service/internal/core/domain"
	"rent-monitor-service/internal/core/port"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200

	defaultHistoryLimit = 100

	maxFilterBodyBytes = 64 * 1024
)

// RunTrigger запускает внеочередной прогон мониторинга.
// Возвращает domain.ErrRunInFlight, если прогон уже идет.
type RunTrigger interface {
	TryRunNow() error
}

type MonitorHandlers struct {
	listings port.ListingQueryPort
	filters  port.FilterRepositoryPort
	runs     port.RunRepositoryPort
	trigger  RunTrigger
}

// NewMonitorHandlers - конструктор для наших обработчиков.
func NewMonitorHandlers(
	listings port.ListingQueryPort,
	filters port.FilterRepositoryPort,
	runs port.RunRepositoryPort,
	trigger RunTrigger,
) *MonitorHandlers {
	return &MonitorHandlers{
		listings: listings,
		filters:  filters,
		runs:     runs,
		trigger:  trigger,
	}
}

// HandleFindListings - обработчик для GET /api/v1/listings
func (h *MonitorHandlers) HandleFindListings(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleFindListings"})

	q := r.URL.Query()
	filters := port.ListingQueryFilters{
		MinPrice:   queryInt(q.Get("min_price")),
		MaxPrice:   queryInt(q.Get("max_price")),
		MinRooms:   queryFloat(q.Get("min_rooms")),
		MaxRooms:   queryFloat(q.Get("max_rooms")),
		Location:   q.Get("location"),
		ActiveOnly: q.Get("status") != "all",
	}

	limit := queryInt(q.Get("limit"))
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset := queryInt(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	listings, total, err := h.listings.FindListings(r.Context(), filters, limit, offset)
	if err != nil {
		logger.Error("Failed to query listings", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to query listings")
		return
	}

	page := ListingsPageDTO{
		Items:  make([]ListingDTO, 0, len(listings)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, l := range listings {
		page.Items = append(page.Items, toListingDTO(l))
	}
	RespondWithJSON(w, http.StatusOK, page)
}

// HandleGetListing - обработчик для GET /api/v1/listings/{id}
func (h *MonitorHandlers) HandleGetListing(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleGetListing"})

	listingID := chi.URLParam(r, "id")
	listing, err := h.listings.GetListingByID(r.Context(), listingID)
	if errors.Is(err, domain.ErrListingNotFound) {
		WriteJSONError(w, http.StatusNotFound, "Listing not found")
		return
	}
	if err != nil {
		logger.Error("Failed to get listing", err, port.Fields{"listing_id": listingID})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to get listing")
		return
	}
	RespondWithJSON(w, http.StatusOK, toListingDTO(*listing))
}

// HandleGetPriceHistory - обработчик для GET /api/v1/listings/{id}/price-history
func (h *MonitorHandlers) HandleGetPriceHistory(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleGetPriceHistory"})

	listingID := chi.URLParam(r, "id")
	history, err := h.listings.GetPriceHistory(r.Context(), listingID, defaultHistoryLimit)
	if err != nil {
		logger.Error("Failed to get price history", err, port.Fields{"listing_id": listingID})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to get price history")
		return
	}

	observations := make([]PriceObservationDTO, 0, len(history))
	for _, obs := range history {
		observations = append(observations, PriceObservationDTO{Price: obs.Price, ObservedAt: obs.ObservedAt})
	}
	RespondWithJSON(w, http.StatusOK, observations)
}

// HandleListFilters - обработчик для GET /api/v1/filters?recipient_id=...
func (h *MonitorHandlers) HandleListFilters(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleListFilters"})

	recipientID := r.URL.Query().Get("recipient_id")
	if recipientID == "" {
		WriteJSONError(w, http.StatusBadRequest, "Query parameter 'recipient_id' is required")
		return
	}

	filters, err := h.filters.ListFilters(r.Context(), recipientID)
	if err != nil {
		logger.Error("Failed to list filters", err, port.Fields{"recipient_id": recipientID})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to list filters")
		return
	}

	dtos := make([]FilterDTO, 0, len(filters))
	for _, f := range filters {
		dtos = append(dtos, toFilterDTO(f))
	}
	RespondWithJSON(w, http.StatusOK, dtos)
}

// HandleSaveFilter - обработчик для POST /api/v1/filters
func (h *MonitorHandlers) HandleSaveFilter(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleSaveFilter"})

	body, err := io.ReadAll(io.LimitReader(r.Body, maxFilterBodyBytes))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read request body: %v", err))
		return
	}
	if len(body) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "Request body is empty")
		return
	}

	if err := contracts.ValidateEvent("RecipientFilter", "1.0.0", body); err != nil {
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid filter payload: %v", err))
		return
	}

	var reqDTO FilterDTO
	if err := json.Unmarshal(body, &reqDTO); err != nil {
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if reqDTO.MinPrice != nil && reqDTO.MaxPrice != nil && *reqDTO.MinPrice > *reqDTO.MaxPrice {
		WriteJSONError(w, http.StatusBadRequest, "Field 'min_price' cannot exceed 'max_price'")
		return
	}
	if reqDTO.MinRooms != nil && reqDTO.MaxRooms != nil && *reqDTO.MinRooms > *reqDTO.MaxRooms {
		WriteJSONError(w, http.StatusBadRequest, "Field 'min_rooms' cannot exceed 'max_rooms'")
		return
	}

	id, err := h.filters.SaveFilter(r.Context(), reqDTO.toDomain())
	if errors.Is(err, domain.ErrFilterNotFound) {
		WriteJSONError(w, http.StatusNotFound, "Filter not found")
		return
	}
	if err != nil {
		logger.Error("Failed to save filter", err, port.Fields{"recipient_id": reqDTO.RecipientID})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to save filter")
		return
	}

	logger.Info("Filter saved", port.Fields{"filter_id": id, "recipient_id": reqDTO.RecipientID})
	RespondWithJSON(w, http.StatusOK, map[string]int64{"id": id})
}

// HandleDeleteFilter - обработчик для DELETE /api/v1/filters/{id}
func (h *MonitorHandlers) HandleDeleteFilter(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleDeleteFilter"})

	filterID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Filter id must be a number")
		return
	}

	err = h.filters.DeleteFilter(r.Context(), filterID)
	if errors.Is(err, domain.ErrFilterNotFound) {
		WriteJSONError(w, http.StatusNotFound, "Filter not found")
		return
	}
	if err != nil {
		logger.Error("Failed to delete filter", err, port.Fields{"filter_id": filterID})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to delete filter")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListRuns - обработчик для GET /api/v1/runs
func (h *MonitorHandlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleListRuns"})

	limit := queryInt(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > maxPageLimit {
		limit = 20
	}

	runs, err := h.runs.ListRecentRuns(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to list runs", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	dtos := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toRunDTO(run))
	}
	RespondWithJSON(w, http.StatusOK, dtos)
}

// HandleRunNow - обработчик для POST /api/v1/runs/now.
// Прогоны не накладываются: если один уже идет, возвращается 409.
func (h *MonitorHandlers) HandleRunNow(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "HandleRunNow"})

	err := h.trigger.TryRunNow()
	if errors.Is(err, domain.ErrRunInFlight) {
		WriteJSONError(w, http.StatusConflict, "A monitoring run is already in progress")
		return
	}
	if err != nil {
		logger.Error("Failed to trigger run", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to trigger run")
		return
	}

	logger.Info("Manual monitoring run triggered", nil)
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// HandleHealthz - обработчик для GET /healthz
func (h *MonitorHandlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(raw string) int {
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

func queryFloat(raw string) float64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}
