package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/garage-labs/garage-api/internal/app/users"
	"github.com/garage-labs/garage-api/internal/app/vehicles"
	"github.com/garage-labs/garage-api/internal/domain"
	clockport "github.com/garage-labs/garage-api/internal/ports/out/clock"
	"github.com/garage-labs/garage-api/internal/ports/out/idempotency"
)

const (
	maxBodyBytes = 1 << 20

	createCarRoute       = "POST /api/cars"
	idempotencyRetention = 24 * time.Hour
)

// Server holds the HTTP handlers for users, sign-in and cars.
type Server struct {
	Users    *users.Service
	Vehicles *vehicles.Service
	Idem     idempotency.Store

	clk    clockport.Clock
	logger *slog.Logger
}

func NewServer(usersSvc *users.Service, vehiclesSvc *vehicles.Service, idem idempotency.Store, clk clockport.Clock, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Users:    usersSvc,
		Vehicles: vehiclesSvc,
		Idem:     idem,
		clk:      clk,
		logger:   logger,
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeAppError(w, r, s.logger, err)
}

// decodeBody reads a JSON body into v. Malformed input is a field error.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "Invalid fields"
		if errors.Is(err, io.EOF) {
			msg = "Missing fields"
		}
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", msg, nil)
		return false
	}
	return true
}

func (s *Server) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	res, err := s.Users.SignIn(r.Context(), req.Login, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, signInResponse{User: userFromDomain(res.User), Token: res.Token})
}

func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	p, err := s.Users.Register(r.Context(), req.registerInput())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, profileFromApp(p))
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	us, err := s.Users.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(us))
	for _, u := range us {
		out = append(out, userFromDomain(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.Users.Get(r.Context(), domain.UserID(chi.URLParam(r, "id")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userFromDomain(u))
}

// requireSelf answers 403 unless the caller is the user named in the path.
func (s *Server) requireSelf(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	id := domain.UserID(chi.URLParam(r, "id"))
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return "", false
	}
	if p.SubjectID() != id {
		writeError(w, r, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		return "", false
	}
	return id, true
}

func (s *Server) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireSelf(w, r)
	if !ok {
		return
	}
	var req userRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	u, err := s.Users.Update(r.Context(), id, req.updateInput())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userFromDomain(u))
}

func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireSelf(w, r)
	if !ok {
		return
	}
	if err := s.Users.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	profile, err := s.Users.Me(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileFromApp(profile))
}

func (s *Server) ListCars(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	vs, err := s.Vehicles.ListMine(r.Context(), p.SubjectID())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, carsFromDomain(vs))
}

func (s *Server) GetCar(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	v, err := s.Vehicles.GetMine(r.Context(), p.SubjectID(), domain.VehicleID(chi.URLParam(r, "id")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, carFromDomain(v))
}

// CreateCar registers a car for the caller. With an Idempotency-Key header,
// a retry carrying the same body replays the first response, and a retry
// carrying a different body is rejected with 409.
func (s *Server) CreateCar(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	var req carRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" || s.Idem == nil {
		v, err := s.Vehicles.Register(r.Context(), p.SubjectID(), req.fields())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, carFromDomain(v))
		return
	}

	reqHash, err := hashCarBody(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	scope := idempotency.Scope{
		Key:   idempotency.Key(key),
		Owner: p.SubjectID(),
		Route: createCarRoute,
	}
	rec, ok, err := s.Idem.Lookup(r.Context(), scope, s.clk.Now().Add(-idempotencyRetention))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ok {
		if rec.RequestHash != reqHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	v, err := s.Vehicles.Register(r.Context(), p.SubjectID(), req.fields())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := carFromDomain(v)
	if b, err := json.Marshal(resp); err == nil {
		err = s.Idem.Save(r.Context(), scope, idempotency.Record{
			RequestHash: reqHash,
			StatusCode:  http.StatusCreated,
			ContentType: "application/json",
			Body:        b,
			CreatedAt:   s.clk.Now().UTC(),
		})
		if err != nil {
			s.logger.Warn("idempotency record not saved", "key", key, "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) UpdateCar(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	var req carRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	v, err := s.Vehicles.Update(r.Context(), p.SubjectID(), domain.VehicleID(chi.URLParam(r, "id")), vehicles.UpdateVehicleInput{
		Fields: req.fields(),
		InUse:  req.InUse,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, carFromDomain(v))
}

func (s *Server) DeleteCar(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	if err := s.Vehicles.Delete(r.Context(), p.SubjectID(), domain.VehicleID(chi.URLParam(r, "id"))); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func hashCarBody(req carRequest) (string, error) {
	canon := struct {
		Year         int    `json:"year"`
		LicensePlate string `json:"licensePlate"`
		Model        string `json:"model"`
		Color        string `json:"color"`
	}{
		Year:         req.Year,
		LicensePlate: strings.ToUpper(strings.TrimSpace(req.LicensePlate)),
		Model:        strings.TrimSpace(req.Model),
		Color:        strings.TrimSpace(req.Color),
	}
	b, err := json.Marshal(canon)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
