package rides

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ridehail/pkg/auth"
	"ridehail/pkg/validation"
)

// ErrNoDriversAvailable means dispatch found zero eligible drivers. The
// ride stays persisted in pending, so the caller may resubmit later.
var ErrNoDriversAvailable = errors.New("no drivers available")

// Booker is the dispatch entry point the booking endpoint calls. A
// non-nil ride may accompany ErrNoDriversAvailable.
type Booker interface {
	BookRide(ctx context.Context, passengerID string, pickup, drop Stop, notes string) (*Ride, error)
}

// Handler exposes ride HTTP endpoints.
type Handler struct {
	booker    Booker
	lifecycle *Lifecycle
	store     Store
}

func NewHandler(booker Booker, lifecycle *Lifecycle, store Store) *Handler {
	return &Handler{booker: booker, lifecycle: lifecycle, store: store}
}

// Routes returns a chi.Router with all ride routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireAuth)

	r.With(auth.RequireRole(auth.RolePassenger)).Post("/book", h.Book)
	r.Get("/mine", h.Mine)
	r.With(auth.RequireRole(auth.RoleDriver)).Get("/pending", h.Pending)
	r.Get("/{id}", h.GetByID)
	r.Patch("/{id}/status", h.UpdateStatus)

	return r
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())

	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if !validation.ValidateStop(req.Pickup.Address, req.Pickup.Lat, req.Pickup.Lng) ||
		!validation.ValidateStop(req.Drop.Address, req.Drop.Lat, req.Drop.Lng) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pickup or drop"})
		return
	}
	if !validation.ValidateNotes(req.Notes) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "notes too long"})
		return
	}

	ride, err := h.booker.BookRide(r.Context(), claims.UserID, req.Pickup, req.Drop, req.Notes)
	if errors.Is(err, ErrNoDriversAvailable) {
		// The ride is persisted and stays bookable; tell the caller to
		// retry rather than pretending the booking completed.
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "no drivers available",
			"ride":  ride,
		})
		return
	}
	if err != nil {
		writeJSON(w, statusForRideErr(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ride": ride})
}

// Mine lists the caller's ride history: rides they booked for
// passengers, rides they drove for drivers.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())

	var (
		list []Ride
		err  error
	)
	if claims.Role == auth.RoleDriver {
		list, err = h.store.ListByDriver(r.Context(), claims.UserID)
	} else {
		list, err = h.store.ListByPassenger(r.Context(), claims.UserID)
	}
	if err != nil {
		writeJSON(w, statusForRideErr(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rides": list})
}

// Pending lists the driver's rides that still need action.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r.Context())

	list, err := h.store.ListByDriver(r.Context(), claims.UserID)
	if err != nil {
		writeJSON(w, statusForRideErr(err), map[string]string{"error": err.Error()})
		return
	}
	out := make([]Ride, 0, len(list))
	for _, ride := range list {
		if ride.Status == StatusPending || ride.Status == StatusAssigned {
			out = append(out, ride)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rides": out})
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	ride, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, statusForRideErr(err), map[string]string{"error": err.Error()})
		return
	}
	// Only the two parties on the ride may read it. 404 rather than 403
	// so ride ids cannot be probed.
	if !rideVisibleTo(ride, auth.GetClaims(r.Context()).UserID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": ErrNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func rideVisibleTo(r *Ride, userID string) bool {
	if r.PassengerID == userID {
		return true
	}
	return r.DriverID != nil && *r.DriverID == userID
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	ride, err := h.lifecycle.RequestTransition(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeJSON(w, statusForRideErr(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func statusForRideErr(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
