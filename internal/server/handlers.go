package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/vctrpage/vctr/internal/newsletter"
)

type subscribeRequest struct {
	Email          string `json:"email"`
	TurnstileToken string `json:"turnstileToken"`
	Website        string `json:"website"` // honeypot, must stay empty
}

type apiResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// pendingResponse is returned for every accepted subscribe request, so the
// response never reveals whether the address was already registered.
var pendingResponse = apiResponse{
	Code:    "pending_confirmation",
	Message: "Si el correo existe, recibirás un email de confirmación.",
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func remoteIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // a malformed body fails later checks

	// Bots fill the hidden field. Answer as if everything went fine.
	if strings.TrimSpace(req.Website) != "" {
		s.metrics.IncRequest("subscribe", "honeypot")
		s.writeJSON(w, http.StatusOK, pendingResponse)
		return
	}

	token := strings.TrimSpace(req.TurnstileToken)
	if token == "" {
		s.metrics.IncRequest("subscribe", "missing_turnstile")
		s.writeJSON(w, http.StatusBadRequest, apiResponse{
			Code:    "missing_turnstile",
			Message: "Verificación de seguridad requerida.",
		})
		return
	}

	ok, err := s.verifier.Verify(r.Context(), token, remoteIP(r))
	if err != nil {
		s.logger.Error("turnstile verification failed", "error", err)
		s.metrics.IncRequest("subscribe", "server_error")
		s.writeJSON(w, http.StatusInternalServerError, apiResponse{
			Code:    "server_error",
			Message: "Error interno del servidor",
		})
		return
	}
	if !ok {
		s.metrics.IncRequest("subscribe", "invalid_turnstile")
		s.writeJSON(w, http.StatusBadRequest, apiResponse{
			Code:    "invalid_turnstile",
			Message: "No se ha podido verificar la petición. Por favor, inténtalo de nuevo.",
		})
		return
	}

	err = s.service.Subscribe(r.Context(), req.Email)
	switch {
	case err == nil:
		s.metrics.IncRequest("subscribe", "accepted")
		s.writeJSON(w, http.StatusOK, pendingResponse)
	case errors.Is(err, newsletter.ErrInvalidEmail):
		s.metrics.IncRequest("subscribe", "invalid_email")
		s.writeJSON(w, http.StatusBadRequest, apiResponse{
			Code:    "invalid_email",
			Message: "Email inválido",
		})
	case errors.Is(err, newsletter.ErrSendFailed):
		s.metrics.IncRequest("subscribe", "email_send_failed")
		s.writeJSON(w, http.StatusInternalServerError, apiResponse{
			Code:    "email_send_failed",
			Message: "No se ha podido enviar el email de confirmación. Inténtalo de nuevo más tarde.",
		})
	default:
		s.logger.Error("subscribe failed", "error", err)
		s.metrics.IncRequest("subscribe", "server_error")
		s.writeJSON(w, http.StatusInternalServerError, apiResponse{
			Code:    "server_error",
			Message: "Error interno del servidor",
		})
	}
}

const confirmPageTitle = "Confirmación de suscripción"

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		s.metrics.IncRequest("confirm", "missing_token")
		s.statusPage(w, http.StatusBadRequest, confirmPageTitle, "Token inválido o ausente.")
		return
	}

	err := s.service.Confirm(r.Context(), token)
	switch {
	case err == nil:
		s.metrics.IncRequest("confirm", "confirmed")
		s.statusPage(w, http.StatusOK, confirmPageTitle, "Gracias por unirte a la newsletter.")
	case errors.Is(err, newsletter.ErrTokenInvalid):
		s.metrics.IncRequest("confirm", "invalid")
		s.statusPage(w, http.StatusBadRequest, confirmPageTitle, "Enlace de confirmación inválido o expirado.")
	case errors.Is(err, newsletter.ErrTokenUsed):
		s.metrics.IncRequest("confirm", "used")
		s.statusPage(w, http.StatusBadRequest, confirmPageTitle, "Este enlace de confirmación ya no es válido.")
	case errors.Is(err, newsletter.ErrTokenExpired):
		s.metrics.IncRequest("confirm", "expired")
		s.statusPage(w, http.StatusBadRequest, confirmPageTitle, "Este enlace ha expirado. Solicita una nueva suscripción.")
	default:
		s.logger.Error("confirm failed", "error", err)
		s.metrics.IncRequest("confirm", "server_error")
		s.statusPage(w, http.StatusInternalServerError, confirmPageTitle, "Error interno del servidor.")
	}
}

const unsubPageTitle = "Darse de baja"

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	encoded, tsRaw, sig := q.Get("e"), q.Get("ts"), q.Get("s")

	if encoded == "" || tsRaw == "" || sig == "" {
		s.metrics.IncRequest("unsubscribe", "bad_request")
		s.statusPage(w, http.StatusBadRequest, unsubPageTitle, "Solicitud inválida.")
		return
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		s.metrics.IncRequest("unsubscribe", "bad_request")
		s.statusPage(w, http.StatusBadRequest, unsubPageTitle, "Solicitud inválida.")
		return
	}

	err = s.service.Unsubscribe(r.Context(), encoded, ts, sig)
	switch {
	case err == nil:
		s.metrics.IncRequest("unsubscribe", "removed")
		s.statusPage(w, http.StatusOK, unsubPageTitle, "Si estabas suscrito, has sido dado de baja correctamente.")
	case errors.Is(err, newsletter.ErrLinkExpired):
		s.metrics.IncRequest("unsubscribe", "expired")
		s.statusPage(w, http.StatusBadRequest, unsubPageTitle, "El enlace para darse de baja ha expirado.")
	case errors.Is(err, newsletter.ErrSignatureInvalid):
		s.metrics.IncRequest("unsubscribe", "bad_signature")
		s.statusPage(w, http.StatusBadRequest, unsubPageTitle, "Firma inválida.")
	case errors.Is(err, newsletter.ErrInvalidEmail), errors.Is(err, newsletter.ErrMalformedLink):
		s.metrics.IncRequest("unsubscribe", "bad_request")
		s.statusPage(w, http.StatusBadRequest, unsubPageTitle, "Solicitud inválida.")
	default:
		s.logger.Error("unsubscribe failed", "error", err)
		s.metrics.IncRequest("unsubscribe", "server_error")
		s.statusPage(w, http.StatusInternalServerError, unsubPageTitle, "Error interno del servidor.")
	}
}
