package handler

import (
	"net/http"

	"github.com/palacemc/palace-web/internal/api/request"
	"github.com/palacemc/palace-web/internal/model"
	"github.com/palacemc/palace-web/internal/services/mail"
)

// MailHandler handles mail endpoints
type MailHandler struct {
	mail *mail.Service
}

// NewMailHandler creates a new mail handler
func NewMailHandler(mail *mail.Service) *MailHandler {
	return &MailHandler{
		mail: mail,
	}
}

// Save handles POST /api/mail
func (h *MailHandler) Save(w http.ResponseWriter, r *http.Request) {
	v, err := requireStrings(request.FromContext(r.Context()), "to", "from", "origin", "message")
	if err != nil {
		WriteError(w, err)
		return
	}

	_, err = h.mail.Save(r.Context(), v[0], v[1], v[2], v[3])
	respondOK(w, err)
}

func (h *MailHandler) box(box model.MailBox) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := request.FromContext(r.Context())
		id, err := f.String("uuid")
		if err != nil {
			WriteError(w, err)
			return
		}

		page, err := h.mail.Get(r.Context(), string(box), id, f.Get("offset"))
		respond(w, page, err)
	}
}

// To handles POST /api/mail/to
func (h *MailHandler) To(w http.ResponseWriter, r *http.Request) {
	h.box(model.MailBoxTo)(w, r)
}

// From handles POST /api/mail/from
func (h *MailHandler) From(w http.ResponseWriter, r *http.Request) {
	h.box(model.MailBoxFrom)(w, r)
}

func (h *MailHandler) mark(read bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := requireStrings(request.FromContext(r.Context()), "uuid", "id")
		if err != nil {
			WriteError(w, err)
			return
		}

		respondOK(w, h.mail.Read(r.Context(), v[0], v[1], read))
	}
}

// Read handles POST /api/mail/read
func (h *MailHandler) Read(w http.ResponseWriter, r *http.Request) {
	h.mark(true)(w, r)
}

// Unread handles POST /api/mail/unread
func (h *MailHandler) Unread(w http.ResponseWriter, r *http.Request) {
	h.mark(false)(w, r)
}

// Delete handles POST /api/mail/delete
func (h *MailHandler) Delete(w http.ResponseWriter, r *http.Request) {
	v, err := requireStrings(request.FromContext(r.Context()), "uuid", "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	respondOK(w, h.mail.Delete(r.Context(), v[0], v[1]))
}
